package usecase

import (
	"context"
	"fmt"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	mid "ShredPull/internal/middleware"
	"ShredPull/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// layout is how pipelines sit behind the stage outputs. It is chosen once
// from the topology and never changes while running.
type layout interface {
	start(ctx context.Context)
	// wait returns once every pipeline has finished draining.
	wait() error
	// stats is nil when there is no router.
	stats() []mid.BranchStats
}

// directLayout wires a single pipeline straight onto the stage outputs.
type directLayout struct {
	pipeline *StrategyPipeline
	done     chan error
}

func (d *directLayout) start(ctx context.Context) {
	go func() { d.done <- d.pipeline.Run(ctx) }()
}

func (d *directLayout) wait() error { return <-d.done }
func (d *directLayout) stats() []mid.BranchStats { return nil }

// replicatedLayout puts a router between the stage and every pipeline.
type replicatedLayout struct {
	router     *mid.Router
	pipelines  []*StrategyPipeline
	g          errgroup.Group
	routerDone chan struct{}
}

func (r *replicatedLayout) start(ctx context.Context) {
	go func() {
		defer close(r.routerDone)
		r.router.Run(ctx)
	}()
	for _, p := range r.pipelines {
		r.g.Go(func() error { return p.Run(ctx) })
	}
}

func (r *replicatedLayout) wait() error {
	err := r.g.Wait()
	<-r.routerDone
	return err
}

func (r *replicatedLayout) stats() []mid.BranchStats { return r.router.Stats() }

// replicatedOrder is the branch order of the all topology.
var replicatedOrder = []string{models.StrategyArb, models.StrategyPump, models.StrategyGraduates}

type layoutConfig struct {
	topology   models.Topology
	webhookURL string
	capacity   int
	strategies StrategyFactory
	logger     *logger.Logger
	metrics    drepo.Metrics
}

func newLayout(cfg layoutConfig, entries <-chan *models.EntryBatch, errs <-chan models.ErrorNote, sigs chan<- models.Signature) (layout, error) {
	build := func(name string, e <-chan *models.EntryBatch, n <-chan models.ErrorNote) (*StrategyPipeline, error) {
		spec, err := cfg.strategies.Build(name, cfg.webhookURL)
		if err != nil {
			return nil, fmt.Errorf("build %s strategy: %w", name, err)
		}
		return NewStrategyPipeline(spec, e, n, sigs, cfg.logger, cfg.metrics), nil
	}

	if !cfg.topology.Replicated() {
		p, err := build(cfg.topology.String(), entries, errs)
		if err != nil {
			return nil, err
		}
		return &directLayout{pipeline: p, done: make(chan error, 1)}, nil
	}

	router := mid.NewRouter(entries, errs, cfg.capacity, replicatedOrder, cfg.metrics)
	r := &replicatedLayout{router: router, routerDone: make(chan struct{})}
	for _, name := range replicatedOrder {
		e, n := router.Branch(name)
		p, err := build(name, e, n)
		if err != nil {
			return nil, err
		}
		r.pipelines = append(r.pipelines, p)
	}
	return r, nil
}
