package usecase

import (
	"context"
	"time"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	"ShredPull/pkg/logger"
)

// StrategySpec is everything needed to run one strategy: its detector and an
// optional initialization that must finish before the first batch is read.
type StrategySpec struct {
	Name     string
	Detector drepo.Detector
	Init     func(ctx context.Context) error
}

// StrategyFactory builds a fresh StrategySpec per pipeline instance, so no
// strategy state is shared between pipelines.
type StrategyFactory interface {
	Build(name string, webhookURL string) (StrategySpec, error)
}

// StrategyPipeline drains one pair of entry and error channels through a
// detector and forwards resulting signatures to the sink.
type StrategyPipeline struct {
	spec    StrategySpec
	entries <-chan *models.EntryBatch
	errs    <-chan models.ErrorNote
	sigs    chan<- models.Signature
	logger  *logger.Logger
	metrics drepo.Metrics
}

func NewStrategyPipeline(spec StrategySpec, entries <-chan *models.EntryBatch, errs <-chan models.ErrorNote, sigs chan<- models.Signature, log *logger.Logger, metrics drepo.Metrics) *StrategyPipeline {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &StrategyPipeline{
		spec:    spec,
		entries: entries,
		errs:    errs,
		sigs:    sigs,
		logger:  log.With(logger.String("strategy", spec.Name)),
		metrics: metrics,
	}
}

func (p *StrategyPipeline) Name() string { return p.spec.Name }

// Run initializes the strategy, then consumes until both input channels are
// closed or ctx is done. A failed init is logged and the pipeline keeps
// draining with whatever state the strategy was left in, so its inputs
// never back up.
func (p *StrategyPipeline) Run(ctx context.Context) error {
	if p.spec.Init != nil {
		start := time.Now()
		if err := p.spec.Init(ctx); err != nil {
			p.metrics.RecordError("strategy_init")
			p.logger.Error("strategy init failed", logger.Error(err))
		} else {
			p.logger.Info("strategy initialized", logger.Duration("took", time.Since(start)))
		}
	}

	entries, errs := p.entries, p.errs
	for entries != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			p.handle(ctx, b)
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.metrics.RecordError("reconstruction")
			p.logger.Warn("reconstruction error", logger.Uint64("slot", e.Slot), logger.String("reason", e.Reason))
		}
	}
	p.logger.Debug("pipeline drained")
	return nil
}

func (p *StrategyPipeline) handle(ctx context.Context, b *models.EntryBatch) {
	if b == nil {
		return
	}
	start := time.Now()
	found := p.spec.Detector.Detect(ctx, b)
	p.metrics.RecordLatency("detect_"+p.spec.Name, time.Since(start).Seconds())

	for _, s := range found {
		select {
		case p.sigs <- s:
			p.metrics.RecordSignature(p.spec.Name)
		case <-ctx.Done():
			return
		}
	}
}
