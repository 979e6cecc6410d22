package jobs

import (
	"context"
	"time"

	"github.com/leafsii/crypto-tracker/internal/assets"
	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/internal/view"
	"go.uber.org/zap"
)

// SnapshotSource is the observer side of the asset store.
type SnapshotSource interface {
	Snapshot() assets.Snapshot
	Subscribe() (<-chan assets.Snapshot, func())
}

// TablePublisher stores and broadcasts a rendered table.
type TablePublisher interface {
	PublishTable(ctx context.Context, table interface{}) error
}

// SnapshotPublisher turns every store change into a published view.Table.
type SnapshotPublisher struct {
	source  SnapshotSource
	cache   TablePublisher
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewSnapshotPublisher(source SnapshotSource, cache TablePublisher, logger *zap.SugaredLogger, m *metrics.Metrics) *SnapshotPublisher {
	return &SnapshotPublisher{
		source:  source,
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// Run publishes the current snapshot, then each subsequent one, until ctx
// is cancelled. Publish failures are logged and skipped.
func (p *SnapshotPublisher) Run(ctx context.Context) error {
	updates, cancel := p.source.Subscribe()
	defer cancel()

	p.logger.Infow("Snapshot publisher started")
	p.publish(ctx, p.source.Snapshot())

	for {
		select {
		case <-ctx.Done():
			p.logger.Infow("Snapshot publisher stopping")
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			p.publish(ctx, snap)
		}
	}
}

func (p *SnapshotPublisher) publish(ctx context.Context, snap assets.Snapshot) {
	table := view.Build(snap)

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.cache.PublishTable(pubCtx, table); err != nil {
		p.logger.Warnw("Failed to publish table", "version", snap.Version, "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.RecordSnapshot(ctx)
	}
}
