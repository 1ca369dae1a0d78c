package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
	mid "ShredPull/internal/middleware"
)

func TestPipelineDrainsQueuedBatchesAfterClose(t *testing.T) {
	entries := make(chan *models.EntryBatch, 10)
	errs := make(chan models.ErrorNote, 10)
	sigs := make(chan models.Signature, 10)
	for i := 1; i <= 5; i++ {
		entries <- &models.EntryBatch{Slot: uint64(i)}
	}
	errs <- models.ErrorNote{Slot: 1, Reason: "boom"}
	close(entries)
	close(errs)

	p := NewStrategyPipeline(StrategySpec{Name: "pump", Detector: slotDetector{name: "pump"}}, entries, errs, sigs, nil, nil)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	close(sigs)

	var got []models.Signature
	for s := range sigs {
		got = append(got, s)
	}
	if len(got) != 5 || got[0] != "pump-1" || got[4] != "pump-5" {
		t.Fatalf("signatures = %v", got)
	}
}

func TestPipelineInitRunsBeforeFirstBatch(t *testing.T) {
	entries := make(chan *models.EntryBatch, 1)
	sigs := make(chan models.Signature, 1)
	initialized := false

	det := detectorFunc(func(b *models.EntryBatch) []models.Signature {
		if !initialized {
			t.Errorf("batch seen before init")
		}
		return nil
	})
	spec := StrategySpec{Name: "arb", Detector: det, Init: func(context.Context) error {
		initialized = true
		return nil
	}}
	entries <- &models.EntryBatch{Slot: 1}
	close(entries)

	p := NewStrategyPipeline(spec, entries, nil, sigs, nil, nil)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestPipelineKeepsDrainingAfterInitFailure(t *testing.T) {
	entries := make(chan *models.EntryBatch, 2)
	sigs := make(chan models.Signature, 2)
	entries <- &models.EntryBatch{Slot: 1}
	close(entries)

	spec := StrategySpec{
		Name:     "arb",
		Detector: slotDetector{name: "arb"},
		Init:     func(context.Context) error { return errors.New("redis unavailable") },
	}
	p := NewStrategyPipeline(spec, entries, nil, sigs, nil, nil)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("pipeline stopped draining after init failure")
	}
}

func TestSaturatedPipelineDoesNotStallOthers(t *testing.T) {
	entries := make(chan *models.EntryBatch)
	errs := make(chan models.ErrorNote)
	sigs := make(chan models.Signature, 100)

	block := make(chan struct{})
	blockedDone := make(chan struct{})
	strategies := strategyFunc(func(name string) StrategySpec {
		if name == models.StrategyArb {
			return StrategySpec{Name: name, Detector: detectorFunc(func(*models.EntryBatch) []models.Signature {
				<-block
				return nil
			})}
		}
		return StrategySpec{Name: name, Detector: slotDetector{name: name}}
	})

	lay, err := newLayout(layoutConfig{
		topology:   models.TopologyAll,
		capacity:   2,
		strategies: strategies,
	}, entries, errs, sigs)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lay.start(ctx)
	go func() {
		_ = lay.wait()
		close(blockedDone)
	}()

	for i := 0; i < 20; i++ {
		select {
		case entries <- &models.EntryBatch{Slot: uint64(i)}:
		case <-time.After(time.Second):
			t.Fatalf("upstream stalled at batch %d", i)
		}
		want := 2 * (i + 1)
		waitFor(t, "pump and graduates output", func() bool { return len(sigs) == want })
	}

	var arb mid.BranchStats
	for _, s := range lay.stats() {
		if s.Branch == models.StrategyArb && s.Stream == mid.StreamEntries {
			arb = s
		}
	}
	// at most one batch is stuck in the detector and two fill the queue
	if arb.Delivered+arb.Dropped != 20 || arb.Dropped < 17 {
		t.Fatalf("expected drops on the saturated branch, stats=%+v", lay.stats())
	}

	close(block)
	close(entries)
	close(errs)
	<-blockedDone
}

type detectorFunc func(*models.EntryBatch) []models.Signature

func (f detectorFunc) Name() string { return "func" }

func (f detectorFunc) Detect(_ context.Context, b *models.EntryBatch) []models.Signature {
	return f(b)
}

type strategyFunc func(name string) StrategySpec

func (f strategyFunc) Build(name, _ string) (StrategySpec, error) { return f(name), nil }
