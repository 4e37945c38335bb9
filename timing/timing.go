// Package timing measures named build phases. Spans wrap every pipeline
// stage, stop on every exit path, and report to a pluggable sink; they
// observe the build and never alter its control flow.
package timing

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loomql/loom/logger"
)

// Completed is one finished span as delivered to a sink.
type Completed struct {
	Name     string // Phase name, e.g. "build_ir"
	Project  string // Project the phase ran for
	Duration time.Duration
}

// Label returns the conventional "<phase> <project>" span label.
func (c Completed) Label() string {
	if c.Project == "" {
		return c.Name
	}
	return c.Name + " " + c.Project
}

// Sink receives completed spans.
type Sink interface {
	Record(span Completed)
}

// Span is one in-flight measurement. Stop records it exactly once.
type Span struct {
	name    string
	project string
	start   time.Time
	sink    Sink
	stopped bool
}

// Start begins measuring a phase.
func Start(sink Sink, name, project string) *Span {
	return &Span{
		name:    name,
		project: project,
		start:   time.Now(),
		sink:    sink,
	}
}

// Stop finishes the span and reports it. Safe to call more than once;
// only the first call records.
func (s *Span) Stop() {
	if s == nil || s.stopped {
		return
	}
	s.stopped = true
	if s.sink == nil {
		return
	}
	s.sink.Record(Completed{
		Name:     s.name,
		Project:  s.project,
		Duration: time.Since(s.start),
	})
}

// Time runs fn inside a span, recording it whether or not fn fails.
func Time(sink Sink, name, project string, fn func() error) error {
	span := Start(sink, name, project)
	defer span.Stop()
	return fn()
}

// NopSink discards all spans.
type NopSink struct{}

func (NopSink) Record(Completed) {}

// LogSink reports spans through a zap logger at debug level, tagged with
// the build invocation id when one is set.
type LogSink struct {
	Logger  *zap.SugaredLogger
	BuildID string
}

// NewLogSink builds a sink over the given logger; a nil logger falls back
// to the package-global one.
func NewLogSink(log *zap.SugaredLogger, buildID string) *LogSink {
	if log == nil {
		log = logger.Logger
	}
	return &LogSink{Logger: log, BuildID: buildID}
}

func (s *LogSink) Record(span Completed) {
	if s == nil || s.Logger == nil {
		return
	}
	fields := []interface{}{
		logger.FieldStage, span.Name,
		logger.FieldDurationMS, span.Duration.Milliseconds(),
	}
	if span.Project != "" {
		fields = append(fields, logger.FieldProject, span.Project)
	}
	if s.BuildID != "" {
		fields = append(fields, logger.FieldBuildID, s.BuildID)
	}
	s.Logger.Debugw("stage complete", fields...)
}

// Collector retains every recorded span, in order. Used by build reports
// and tests.
type Collector struct {
	mu    sync.Mutex
	spans []Completed
}

func (c *Collector) Record(span Completed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, span)
}

// Spans returns a copy of everything recorded so far.
func (c *Collector) Spans() []Completed {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Completed, len(c.spans))
	copy(out, c.spans)
	return out
}

// Fanout duplicates spans to several sinks.
type Fanout []Sink

func (f Fanout) Record(span Completed) {
	for _, sink := range f {
		if sink != nil {
			sink.Record(span)
		}
	}
}
