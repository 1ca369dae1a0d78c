package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
	mid "ShredPull/internal/middleware"
)

type stageRecorder struct {
	nopMetrics
	mu     sync.Mutex
	stages []models.StageMetrics
}

func (r *stageRecorder) RecordStage(m models.StageMetrics) {
	r.mu.Lock()
	r.stages = append(r.stages, m)
	r.mu.Unlock()
}

func (r *stageRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stages)
}

func TestReporterSnapshotsThroughAdapter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewReconstructionAdapter(newEchoStage(nil, nil))
	go a.Run(ctx)
	_ = a.Accept(ctx, models.Packet{1, 2, 3})

	rec := &stageRecorder{}
	statsCalled := make(chan struct{}, 1)
	stats := func() []mid.BranchStats {
		select {
		case statsCalled <- struct{}{}:
		default:
		}
		return []mid.BranchStats{{Branch: "arb", Stream: mid.StreamEntries, Dropped: 4}}
	}

	done := make(chan struct{})
	go func() {
		NewReporter(a, stats, 10*time.Millisecond, nil, rec).Run(ctx)
		close(done)
	}()

	waitFor(t, "two reports", func() bool { return rec.count() >= 2 })
	<-statsCalled

	rec.mu.Lock()
	first := rec.stages[0]
	rec.mu.Unlock()
	if first.PacketsReceived != 1 || first.BytesReceived != 3 {
		t.Fatalf("stage = %s", first)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reporter did not stop")
	}
}

func TestReporterStopsWhenAdapterStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewReconstructionAdapter(newEchoStage(nil, nil))
	go a.Run(ctx)
	cancel()
	<-a.Done()

	done := make(chan struct{})
	go func() {
		NewReporter(a, nil, 5*time.Millisecond, nil, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reporter kept running after adapter stopped")
	}
}
