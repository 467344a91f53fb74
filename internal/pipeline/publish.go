package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// JoinSource runs the observation/reference join.
type JoinSource interface {
	Counts(ctx context.Context) (observations, lookup int64, err error)
	JoinedRecords(ctx context.Context) ([]domain.JoinedRecord, error)
}

// Publisher writes the joined export twice: once to the mutable latest
// location and once as an immutable snapshot named after the publish time.
type Publisher struct {
	source     JoinSource
	latest     ObjectWriter
	latestPath string
	snapshots  ObjectWriter
	prefix     string
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// PublisherConfig names the two export targets.
type PublisherConfig struct {
	Latest         ObjectWriter
	LatestPath     string
	Snapshots      ObjectWriter
	SnapshotPrefix string
}

// NewPublisher creates a Publisher. A nil clock uses the real clock.
func NewPublisher(source JoinSource, cfg PublisherConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		source:     source,
		latest:     cfg.Latest,
		latestPath: cfg.LatestPath,
		snapshots:  cfg.Snapshots,
		prefix:     cfg.SnapshotPrefix,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Publish joins the stores and writes the export. It fails with
// domain.ErrStoreEmpty before joining when either store has no rows. An empty
// join is logged and still produces a header-only export. Both writes are
// always attempted; failures come back together as *domain.PublishError.
func (p *Publisher) Publish(ctx context.Context) (domain.SnapshotHandle, error) {
	observations, lookup, err := p.source.Counts(ctx)
	if err != nil {
		return domain.SnapshotHandle{}, fmt.Errorf("count stores: %w", err)
	}
	if observations == 0 || lookup == 0 {
		return domain.SnapshotHandle{}, fmt.Errorf("%w: observations=%d lookup=%d", domain.ErrStoreEmpty, observations, lookup)
	}

	records, err := p.source.JoinedRecords(ctx)
	if err != nil {
		return domain.SnapshotHandle{}, fmt.Errorf("join stores: %w", err)
	}
	if len(records) == 0 {
		p.logger.Warn("publishing header-only export", "error", domain.ErrEmptyJoin,
			"observations", observations, "lookup", lookup)
		p.metrics.EmptyJoins.Inc()
	}
	p.metrics.JoinedRows.Set(float64(len(records)))

	data, err := domain.EncodeJoinedCSV(records)
	if err != nil {
		return domain.SnapshotHandle{}, err
	}

	now := p.clock.Now().UTC()
	key := domain.SnapshotKey(p.prefix, now)

	latestErr := p.latest.WriteObject(ctx, p.latestPath, data)
	if latestErr != nil {
		p.metrics.PublishErrors.WithLabelValues("latest").Inc()
	}
	snapshotErr := p.snapshots.WriteObject(ctx, key, data)
	if snapshotErr != nil {
		p.metrics.PublishErrors.WithLabelValues("snapshot").Inc()
	} else {
		p.metrics.SnapshotsPublished.Inc()
	}

	if latestErr != nil || snapshotErr != nil {
		return domain.SnapshotHandle{}, &domain.PublishError{
			LatestPath:  p.latestPath,
			SnapshotKey: key,
			LatestErr:   latestErr,
			SnapshotErr: snapshotErr,
		}
	}

	p.logger.Info("export published", "key", key, "latest", p.latestPath, "rows", len(records))
	return domain.SnapshotHandle{
		Key:         key,
		LatestPath:  p.latestPath,
		Rows:        len(records),
		GeneratedAt: now,
	}, nil
}
