package strategy

import (
	"fmt"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	"ShredPull/internal/usecase"
	"ShredPull/pkg/logger"
)

// NotifierFactory returns the notifier for a webhook URL. It is only called
// with a non-empty URL.
type NotifierFactory func(url string) drepo.Notifier

// Registry builds a fresh detector per pipeline.
type Registry struct {
	pools       drepo.PoolSource
	newNotifier NotifierFactory
	minPools    int
	logger      *logger.Logger
}

type RegistryOption func(*Registry)

func WithPoolSource(src drepo.PoolSource) RegistryOption {
	return func(r *Registry) { r.pools = src }
}

func WithNotifierFactory(f NotifierFactory) RegistryOption {
	return func(r *Registry) { r.newNotifier = f }
}

func WithMinPools(n int) RegistryOption {
	return func(r *Registry) { r.minPools = n }
}

func NewRegistry(lg *logger.Logger, opts ...RegistryOption) *Registry {
	if lg == nil {
		lg = logger.Nop()
	}
	r := &Registry{minPools: DefaultMinPools, logger: lg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build implements usecase.StrategyFactory.
func (r *Registry) Build(name string, webhookURL string) (usecase.StrategySpec, error) {
	switch name {
	case models.StrategyArb:
		state := NewPoolsState(r.pools)
		return usecase.StrategySpec{
			Name:     name,
			Detector: NewArbDetector(state, r.minPools),
			Init:     state.Initialize,
		}, nil
	case models.StrategyPump:
		var n drepo.Notifier
		if webhookURL != "" && r.newNotifier != nil {
			n = r.newNotifier(webhookURL)
		}
		return usecase.StrategySpec{Name: name, Detector: NewPumpDetector("", n, r.logger)}, nil
	case models.StrategyGraduates:
		return usecase.StrategySpec{Name: name, Detector: NewGraduatesDetector("", "")}, nil
	default:
		return usecase.StrategySpec{}, fmt.Errorf("unknown strategy %q", name)
	}
}
