package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
	"github.com/couchcryptid/crime-dashboard/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockAppender struct {
	mu       sync.Mutex
	appended []domain.Dataset
	sources  []string
	err      error
}

func (m *mockAppender) AppendIncidents(ds domain.Dataset, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, ds)
	m.sources = append(m.sources, source)
	return nil
}

func (m *mockAppender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ds := range m.appended {
		n += len(ds.Incidents)
	}
	return n
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func run(t *testing.T, p *pipeline.Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		incidentMessage("a", "Centro"),
		incidentMessage("b", "Norte"),
	}}}
	app := &mockAppender{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), metrics, 10)
	run(t, p)

	require.Len(t, app.appended, 1, "one batch is one append")
	assert.Equal(t, 2, app.count())
	assert.Equal(t, []string{"incidents"}, app.sources)
	assert.Equal(t, "Norte", app.appended[0].Incidents[1].Neighborhood)
	assert.True(t, p.Ready())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.IncidentsIngested), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no messages, will block
	app := &mockAppender{}

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, app.appended)
}

func TestPipeline_Run_DecodeErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int64
	bad := domain.RawMessage{Topic: "incidents", Value: []byte("not geojson")}
	bad.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}
	good := incidentMessage("a", "Centro")
	good.Commit = bad.Commit

	ext := &mockExtractor{batches: [][]domain.RawMessage{{bad, good}}}
	app := &mockAppender{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), metrics, 10)
	run(t, p)

	assert.Equal(t, 1, app.count())
	assert.Equal(t, int64(2), commits.Load())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.DecodeErrors), 0)
}

func TestPipeline_Run_AllDecodeErrorsNotReady(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{{{Value: []byte("{}")}}}}
	app := &mockAppender{}

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), newTestMetrics(), 10)
	run(t, p)

	assert.Empty(t, app.appended)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_AppendFailureDoesNotCommit(t *testing.T) {
	commitCalled := false
	msg := incidentMessage("a", "Centro")
	msg.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{msg}}}
	app := &mockAppender{err: errors.New("dataset not loaded")}

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), newTestMetrics(), 10)
	run(t, p)

	assert.False(t, commitCalled)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_CommitsAfterAppend(t *testing.T) {
	commitCalled := false
	msg := incidentMessage("a", "Centro")
	msg.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{msg}}}
	app := &mockAppender{}

	p := pipeline.New(ext, pipeline.NewDecoder(), app, slog.Default(), newTestMetrics(), 10)
	run(t, p)

	assert.True(t, commitCalled)
}

func TestIncidentDecoder_KeyFillsMissingID(t *testing.T) {
	raw := domain.RawMessage{
		Key:   []byte("k-9"),
		Value: []byte(`{"type": "Feature", "properties": {"barrio": "Centro"}, "geometry": null}`),
	}

	ds, err := pipeline.NewDecoder().Decode(raw)
	require.NoError(t, err)
	require.Len(t, ds.Incidents, 1)
	assert.Equal(t, "k-9", ds.Incidents[0].ID)
	assert.False(t, ds.Incidents[0].HasLocation)
}

func TestIncidentDecoder_FeatureIDWins(t *testing.T) {
	ds, err := pipeline.NewDecoder().Decode(incidentMessage("feature-id", "Centro"))
	require.NoError(t, err)
	assert.Equal(t, "feature-id", ds.Incidents[0].ID)
}

// --- helpers ---

func incidentMessage(id, barrio string) domain.RawMessage {
	value := fmt.Sprintf(`{"type": "Feature",
	  "properties": {"id": %q, "tipo_crimen": "Hurto", "fecha": "2024-03-05", "hora": "10:00", "barrio": %q},
	  "geometry": {"type": "Point", "coordinates": [-75.5, 6.25]}}`, id, barrio)
	return domain.RawMessage{
		Key:   []byte("key-" + id),
		Value: []byte(value),
		Topic: "incidents",
	}
}
