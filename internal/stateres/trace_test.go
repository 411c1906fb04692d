package stateres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/roomstate/internal/testutil"
)

func TestResolve_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r, maps := topicRace()
	resolver := New(
		WithLogger(testutil.DiscardLogger()),
		WithTracer(tp.Tracer("test")),
		WithRunIDGenerator(testutil.NewFixedRunIDs("run-trace")),
	)
	_, err := resolver.Resolve(context.Background(), rules, maps, r.Fetcher())
	require.NoError(t, err)

	spans := sr.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	assert.ElementsMatch(t, []string{
		"stateres.auth_difference",
		"stateres.power_events",
		"stateres.mainline",
		"stateres.Resolve",
	}, names)

	root := spans[len(spans)-1]
	require.Equal(t, "stateres.Resolve", root.Name())
	var runID string
	for _, kv := range root.Attributes() {
		if kv.Key == "roomstate.run_id" {
			runID = kv.Value.AsString()
		}
	}
	assert.Equal(t, "run-trace", runID)

	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), s.Name())
	}
}

func TestResolve_FailedSpanStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r, maps := topicRace()
	resolver := New(WithLogger(testutil.DiscardLogger()), WithTracer(tp.Tracer("test")))
	_, err := resolver.Resolve(context.Background(), rules, maps, failingFetcher{r.Fetcher()})
	require.Error(t, err)

	spans := sr.Ended()
	root := spans[len(spans)-1]
	assert.Equal(t, "stateres.Resolve", root.Name())
	assert.Equal(t, string(ErrCodeStoreFailure), root.Status().Description)
}
