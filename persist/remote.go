package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/internal/httpclient"
)

// RemoteStore persists operation text against an HTTP endpoint, one POST
// per operation. When a rate is configured, Put paces itself through the
// limiter and suspends on the caller's context.
type RemoteStore struct {
	url     string
	token   string
	client  *httpclient.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewRemoteStore builds a store for the project's remote persist endpoint.
func NewRemoteStore(cfg *config.PersistConfig, log *zap.SugaredLogger) *RemoteStore {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultPersistTimeoutSeconds) * time.Second
	}

	store := &RemoteStore{
		url:    cfg.URL,
		token:  cfg.Token,
		client: httpclient.New(httpclient.Options{Timeout: timeout}),
		log:    log,
	}
	if cfg.RatePerSecond > 0 {
		store.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return store
}

type persistRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Put sends one operation to the endpoint. Any non-2xx response fails the
// persist.
func (s *RemoteStore) Put(ctx context.Context, id, name, text string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limit wait aborted")
		}
	}

	body, err := json.Marshal(persistRequest{ID: id, Name: name, Text: text})
	if err != nil {
		return errors.Wrap(err, "failed to encode persist request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build persist request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to persist operation %q", name)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("persist endpoint returned %s for operation %q", resp.Status, name)
	}
	return nil
}

// Close is a no-op; the transport manages its own connections.
func (s *RemoteStore) Close() error {
	return nil
}
