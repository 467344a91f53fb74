package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func houstonBody(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../data/mock/weather_houston.json")
	require.NoError(t, err)
	return data
}

func lookupCSV(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../data/mock/us_city.csv")
	require.NoError(t, err)
	return data
}

// withoutField deletes a top-level or nested key ("main.temp") from body.
func withoutField(t *testing.T, body []byte, parent, key string) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	if parent == "" {
		delete(doc, key)
	} else {
		delete(doc[parent].(map[string]any), key)
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

// fakeGate becomes ready on poke number readyOn (1-based); zero never. Each
// failed poke advances the fake clock by step so the poll loop moves on.
type fakeGate struct {
	readyOn int64
	clock   *clockwork.FakeClock
	step    time.Duration
	pokes   atomic.Int64
}

func (g *fakeGate) IsReady(_ context.Context) bool {
	n := g.pokes.Add(1)
	if g.readyOn > 0 && n >= g.readyOn {
		return true
	}
	if g.clock != nil {
		g.clock.Advance(g.step)
	}
	return false
}

func (g *fakeGate) Endpoint() string { return "https://weather.test/data/2.5/weather" }

type fakeFetcher struct {
	body    []byte
	err     error
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.entered != nil {
		close(f.entered)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.body, f.err
}

type recordingStore struct {
	ensureErr error
	appendErr error
	appended  []domain.NormalizedObservation
}

func (s *recordingStore) EnsureObservationTable(context.Context) error { return s.ensureErr }

func (s *recordingStore) AppendObservation(_ context.Context, obs domain.NormalizedObservation) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, obs)
	return nil
}

type fakeRefresher struct {
	rows int
	err  error
}

func (r *fakeRefresher) Refresh(context.Context) (int, error) { return r.rows, r.err }

type fakePublisher struct {
	handle domain.SnapshotHandle
	err    error
	calls  int
}

func (p *fakePublisher) Publish(context.Context) (domain.SnapshotHandle, error) {
	p.calls++
	return p.handle, p.err
}

type fakeFeed struct {
	err   error
	runID string
	got   []domain.NormalizedObservation
}

func (f *fakeFeed) PublishObservation(_ context.Context, runID string, obs domain.NormalizedObservation) error {
	f.runID = runID
	f.got = append(f.got, obs)
	return f.err
}

type failingWriter struct{ err error }

func (w failingWriter) WriteObject(context.Context, string, []byte) error { return w.err }

type fakeJoinSource struct {
	observations int64
	lookup       int64
	records      []domain.JoinedRecord
	joinCalls    int
}

func (s *fakeJoinSource) Counts(context.Context) (int64, int64, error) {
	return s.observations, s.lookup, nil
}

func (s *fakeJoinSource) JoinedRecords(context.Context) ([]domain.JoinedRecord, error) {
	s.joinCalls++
	return s.records, nil
}
