package usecase

import (
	"context"
	"errors"
	"time"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	mid "ShredPull/internal/middleware"
	"ShredPull/pkg/logger"
)

// DefaultReportInterval is how often stage metrics are logged.
const DefaultReportInterval = 6 * time.Second

type snapshotter interface {
	Snapshot(ctx context.Context) (models.StageMetrics, error)
}

// Reporter periodically logs the reconstruction stage counters, taken
// through the adapter, plus fan-out drop totals when a router is in use.
type Reporter struct {
	stage    snapshotter
	stats    func() []mid.BranchStats
	interval time.Duration
	logger   *logger.Logger
	metrics  drepo.Metrics
}

func NewReporter(stage snapshotter, stats func() []mid.BranchStats, interval time.Duration, lg *logger.Logger, metrics drepo.Metrics) *Reporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	if lg == nil {
		lg = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Reporter{stage: stage, stats: stats, interval: interval, logger: lg, metrics: metrics}
}

// Run reports every interval until ctx is done or the adapter stops.
func (r *Reporter) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.report(ctx); err != nil {
				return
			}
		}
	}
}

func (r *Reporter) report(ctx context.Context) error {
	m, err := r.stage.Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, ErrAdapterStopped) && ctx.Err() == nil {
			r.logger.Error("stage snapshot failed", logger.Error(err))
		}
		return err
	}
	r.metrics.RecordStage(m)
	r.logger.Info("metrics", logger.String("stage", m.String()))

	if r.stats == nil {
		return nil
	}
	for _, s := range r.stats() {
		if s.Dropped > 0 {
			r.logger.Warn("fan-out drops",
				logger.String("branch", s.Branch),
				logger.String("stream", s.Stream),
				logger.Uint64("dropped", s.Dropped),
				logger.Uint64("delivered", s.Delivered),
			)
		}
	}
	return nil
}
