package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// ReadinessGate probes the weather API without side effects.
type ReadinessGate interface {
	IsReady(ctx context.Context) bool
	Endpoint() string
}

// Fetcher retrieves one raw observation body.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Transformer converts a raw body into a normalized observation.
type Transformer interface {
	Transform(ctx context.Context, body []byte) (domain.NormalizedObservation, error)
}

// ObservationStore appends normalized observations.
type ObservationStore interface {
	EnsureObservationTable(ctx context.Context) error
	AppendObservation(ctx context.Context, obs domain.NormalizedObservation) error
}

// LookupLoader replaces the reference table contents.
type LookupLoader interface {
	ReloadLookup(ctx context.Context, records []domain.LookupRecord) error
}

// LookupRefresher rebuilds the reference table from its source and returns
// the row count, or -1 when the count is unknown.
type LookupRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// SnapshotPublisher joins the stores and writes the export.
type SnapshotPublisher interface {
	Publish(ctx context.Context) (domain.SnapshotHandle, error)
}

// ObjectWriter stores bytes under a key.
type ObjectWriter interface {
	WriteObject(ctx context.Context, key string, data []byte) error
}

// ObjectReader opens the bytes stored under a key.
type ObjectReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObservationFeed receives every loaded observation.
type ObservationFeed interface {
	PublishObservation(ctx context.Context, runID string, obs domain.NormalizedObservation) error
}

// Stages wires the pipeline's collaborators. Staging and Feed are optional.
type Stages struct {
	Gate         ReadinessGate
	Fetcher      Fetcher
	Transformer  Transformer
	Observations ObservationStore
	Lookup       LookupRefresher
	Publisher    SnapshotPublisher

	Staging    ObjectWriter
	StagingKey string
	Feed       ObservationFeed
}

// Options tunes the readiness wait. Zero values fall back to one minute
// between pokes and ten minutes overall.
type Options struct {
	PokeInterval     time.Duration
	ReadinessTimeout time.Duration
	Clock            clockwork.Clock
}

// RunReport summarizes one run.
type RunReport struct {
	ID          string                        `json:"id"`
	StartedAt   time.Time                     `json:"started_at"`
	FinishedAt  time.Time                     `json:"finished_at"`
	Outcome     string                        `json:"outcome"`
	Error       string                        `json:"error,omitempty"`
	LookupRows  int                           `json:"lookup_rows"`
	Observation *domain.NormalizedObservation `json:"observation,omitempty"`
	Snapshot    *domain.SnapshotHandle        `json:"snapshot,omitempty"`
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Pipeline runs the two independent ingestion paths, waits for both, and
// publishes the joined export when both succeeded.
type Pipeline struct {
	stages  Stages
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	running atomic.Bool
	mu      sync.Mutex
	lastRun *RunReport
}

// New creates a Pipeline with the given stages and observability.
func New(stages Stages, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.PokeInterval <= 0 {
		opts.PokeInterval = time.Minute
	}
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = 10 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		stages:  stages,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns an error when the most recent run failed. Before the
// first run the pipeline counts as ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	last, ok := p.LastRun()
	if ok && last.Outcome == outcomeFailure {
		return fmt.Errorf("last run %s failed: %s", last.ID, last.Error)
	}
	return nil
}

// LastRun returns the report of the most recent finished run.
func (p *Pipeline) LastRun() (RunReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastRun == nil {
		return RunReport{}, false
	}
	return *p.lastRun, true
}

// Run executes one pipeline run. The lookup and observation paths run
// concurrently and do not cancel each other; the publish step runs only when
// both succeeded. Errors from both paths are joined.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return RunReport{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := RunReport{ID: uuid.NewString(), StartedAt: p.opts.Clock.Now()}
	logger := p.logger.With("run_id", report.ID)
	logger.Info("pipeline run started")

	var (
		wg        sync.WaitGroup
		lookupErr error
		obsErr    error
		obs       domain.NormalizedObservation
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.LookupRows, lookupErr = p.refreshLookup(ctx, logger)
	}()
	go func() {
		defer wg.Done()
		obs, obsErr = p.ingestObservation(ctx, report.ID, logger)
	}()
	wg.Wait()

	if obsErr == nil {
		report.Observation = &obs
	}
	if err := errors.Join(lookupErr, obsErr); err != nil {
		return p.finish(report, logger, err)
	}

	handle, err := p.stages.Publisher.Publish(ctx)
	if err != nil {
		return p.finish(report, logger, fmt.Errorf("publish: %w", err))
	}
	report.Snapshot = &handle
	return p.finish(report, logger, nil)
}

func (p *Pipeline) refreshLookup(ctx context.Context, logger *slog.Logger) (int, error) {
	rows, err := p.stages.Lookup.Refresh(ctx)
	if err != nil {
		logger.Error("lookup refresh failed", "error", err)
		return 0, fmt.Errorf("lookup: %w", err)
	}
	if rows >= 0 {
		p.metrics.LookupRows.Set(float64(rows))
	}
	logger.Info("lookup refreshed", "rows", rows)
	return rows, nil
}

func (p *Pipeline) ingestObservation(ctx context.Context, runID string, logger *slog.Logger) (domain.NormalizedObservation, error) {
	if err := p.stages.Observations.EnsureObservationTable(ctx); err != nil {
		return domain.NormalizedObservation{}, fmt.Errorf("observation: %w", err)
	}

	waited, err := WaitReady(ctx, p.stages.Gate, p.opts.PokeInterval, p.opts.ReadinessTimeout, p.opts.Clock)
	p.metrics.ReadinessWait.Observe(waited.Seconds())
	if err != nil {
		logger.Error("weather api never became ready", "error", err, "waited", waited)
		return domain.NormalizedObservation{}, fmt.Errorf("observation: %w", err)
	}

	body, err := p.stages.Fetcher.Fetch(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return domain.NormalizedObservation{}, fmt.Errorf("observation: %w", err)
	}

	obs, err := p.stages.Transformer.Transform(ctx, body)
	if err != nil {
		p.metrics.MalformedObservations.Inc()
		logger.Error("observation rejected", "error", err)
		return domain.NormalizedObservation{}, fmt.Errorf("observation: %w", err)
	}

	p.stage(ctx, obs, logger)

	if err := p.stages.Observations.AppendObservation(ctx, obs); err != nil {
		logger.Error("observation load failed", "error", err)
		return domain.NormalizedObservation{}, fmt.Errorf("observation: %w", err)
	}
	p.metrics.ObservationsLoaded.Inc()
	logger.Info("observation loaded", "city", obs.City, "time_of_record", obs.TimeOfRecord.Format(domain.LocalTimeLayout))

	if p.stages.Feed != nil {
		if err := p.stages.Feed.PublishObservation(ctx, runID, obs); err != nil {
			logger.Warn("observation feed publish failed", "error", err)
		}
	}
	return obs, nil
}

// stage writes the headerless row artifact when a staging target is set. It
// is never read back, so a failure only warns.
func (p *Pipeline) stage(ctx context.Context, obs domain.NormalizedObservation, logger *slog.Logger) {
	if p.stages.Staging == nil || p.stages.StagingKey == "" {
		return
	}
	row, err := domain.EncodeObservationRow(obs)
	if err == nil {
		err = p.stages.Staging.WriteObject(ctx, p.stages.StagingKey, row)
	}
	if err != nil {
		logger.Warn("staging write failed", "key", p.stages.StagingKey, "error", err)
	}
}

func (p *Pipeline) finish(report RunReport, logger *slog.Logger, err error) (RunReport, error) {
	report.FinishedAt = p.opts.Clock.Now()
	duration := report.FinishedAt.Sub(report.StartedAt)
	p.metrics.RunDuration.Observe(duration.Seconds())

	if err != nil {
		report.Outcome = outcomeFailure
		report.Error = err.Error()
		p.metrics.RunsTotal.WithLabelValues(outcomeFailure).Inc()
		logger.Error("pipeline run failed", "error", err, "duration", duration)
	} else {
		report.Outcome = outcomeSuccess
		p.metrics.RunsTotal.WithLabelValues(outcomeSuccess).Inc()
		p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
		logger.Info("pipeline run finished", "duration", duration, "key", report.Snapshot.Key, "rows", report.Snapshot.Rows)
	}

	p.mu.Lock()
	p.lastRun = &report
	p.mu.Unlock()
	return report, err
}
