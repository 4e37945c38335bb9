// Package httpclient provides the outbound HTTP client loom uses for
// remote operation persistence. It applies shared transport defaults and
// validates request URLs up front so a misconfigured endpoint fails the
// build immediately instead of stalling on a dial that can never succeed.
package httpclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loomql/loom/errors"
)

const (
	defaultMaxRedirects = 5
	defaultIdleConns    = 16
)

// Client wraps http.Client with URL validation and bounded redirects.
type Client struct {
	*http.Client
	allowedSchemes []string
	maxRedirects   int
}

// Options customizes a Client. The zero value gives the defaults the
// persist store uses: http and https only, five redirects.
type Options struct {
	Timeout        time.Duration
	MaxRedirects   int
	AllowedSchemes []string
}

// New builds a client with pooled transport defaults.
func New(opts Options) *Client {
	schemes := opts.AllowedSchemes
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	redirects := opts.MaxRedirects
	if redirects <= 0 {
		redirects = defaultMaxRedirects
	}

	c := &Client{
		Client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        defaultIdleConns,
				MaxIdleConnsPerHost: defaultIdleConns,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		allowedSchemes: schemes,
		maxRedirects:   redirects,
	}
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		return c.validate(req.URL)
	}
	return c
}

// ValidateURL checks an endpoint string without issuing a request, so a
// bad persist URL is rejected before any build runs.
func (c *Client) ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %q", raw)
	}
	if err := c.validate(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) validate(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	ok := false
	for _, allowed := range c.allowedSchemes {
		if scheme == allowed {
			ok = true
			break
		}
	}
	if !ok {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}
	if u.Hostname() == "" {
		return errors.New("URL missing hostname")
	}
	if u.User != nil {
		// Tokens belong in persist.token or LOOM_PERSIST_TOKEN, never in
		// the URL where they leak into logs.
		return errors.New("URL must not embed credentials")
	}
	return nil
}

// Do validates the request URL, then delegates to the wrapped client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.validate(req.URL); err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}
