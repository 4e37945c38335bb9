package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomql/loom/errors"
)

func TestSpanRecordsOnce(t *testing.T) {
	var c Collector

	span := Start(&c, "build_ir", "app")
	span.Stop()
	span.Stop()

	spans := c.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "build_ir", spans[0].Name)
	assert.Equal(t, "app", spans[0].Project)
	assert.GreaterOrEqual(t, spans[0].Duration.Nanoseconds(), int64(0))
}

func TestSpanLabel(t *testing.T) {
	assert.Equal(t, "build_ir app", Completed{Name: "build_ir", Project: "app"}.Label())
	assert.Equal(t, "load", Completed{Name: "load"}.Label())
}

func TestTimeRecordsOnFailure(t *testing.T) {
	var c Collector
	boom := errors.New("boom")

	err := Time(&c, "validate", "app", func() error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.Len(t, c.Spans(), 1)
	assert.Equal(t, "validate", c.Spans()[0].Name)
}

func TestNilSpanStop(t *testing.T) {
	var span *Span
	assert.NotPanics(t, func() { span.Stop() })

	// A span with no sink still stops cleanly.
	assert.NotPanics(t, func() { Start(nil, "x", "y").Stop() })
}

func TestFanout(t *testing.T) {
	var a, b Collector

	sink := Fanout{&a, nil, &b}
	sink.Record(Completed{Name: "generate", Project: "app"})

	assert.Len(t, a.Spans(), 1)
	assert.Len(t, b.Spans(), 1)
}

func TestLogSinkNilLogger(t *testing.T) {
	var sink *LogSink
	assert.NotPanics(t, func() { sink.Record(Completed{Name: "x"}) })
}
