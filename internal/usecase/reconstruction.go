package usecase

import (
	"context"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
)

// stageRequest is one message in the adapter inbox. A nil reply means
// "collect this packet"; otherwise it asks for a metrics snapshot.
type stageRequest struct {
	packet models.Packet
	reply  chan models.StageMetrics
}

// ReconstructionAdapter gives the ingestion loop and the reporter serialized
// access to a single reconstruction stage. One goroutine owns the stage and
// serves an inbox in FIFO order, so a snapshot never interleaves with a
// packet being collected.
type ReconstructionAdapter struct {
	stage drepo.Reconstructor
	inbox chan stageRequest
	done  chan struct{}
}

// NewReconstructionAdapter wraps stage. Nothing is processed until Run.
func NewReconstructionAdapter(stage drepo.Reconstructor) *ReconstructionAdapter {
	return &ReconstructionAdapter{
		stage: stage,
		inbox: make(chan stageRequest),
		done:  make(chan struct{}),
	}
}

// Run serves the inbox until ctx is done. The stage's own emissions are
// bounded by the same ctx, so Run never outlives it.
func (a *ReconstructionAdapter) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.inbox:
			if req.reply != nil {
				req.reply <- a.stage.Metrics()
				continue
			}
			a.stage.Collect(ctx, req.packet)
		}
	}
}

// Done is closed once Run has returned.
func (a *ReconstructionAdapter) Done() <-chan struct{} { return a.done }

// Accept waits for the stage and hands it packet. It returns once the actor
// has taken the packet.
func (a *ReconstructionAdapter) Accept(ctx context.Context, packet models.Packet) error {
	select {
	case a.inbox <- stageRequest{packet: packet}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrAdapterStopped
	}
}

// Snapshot returns the stage counters, queued behind any packets already
// accepted.
func (a *ReconstructionAdapter) Snapshot(ctx context.Context) (models.StageMetrics, error) {
	reply := make(chan models.StageMetrics, 1)
	select {
	case a.inbox <- stageRequest{reply: reply}:
	case <-ctx.Done():
		return models.StageMetrics{}, ctx.Err()
	case <-a.done:
		return models.StageMetrics{}, ErrAdapterStopped
	}
	select {
	case m := <-reply:
		return m, nil
	case <-ctx.Done():
		return models.StageMetrics{}, ctx.Err()
	case <-a.done:
		select {
		case m := <-reply:
			return m, nil
		default:
			return models.StageMetrics{}, ErrAdapterStopped
		}
	}
}
