package repository

import (
	"context"

	"ShredPull/internal/domain/models"
)

// Reconstructor turns shreds into entry batches. Collect is only ever called
// from a single goroutine; Metrics must not mutate state.
type Reconstructor interface {
	Collect(ctx context.Context, packet models.Packet)
	Metrics() models.StageMetrics
}

// Detector is the decision logic of one strategy pipeline.
type Detector interface {
	Name() string
	Detect(ctx context.Context, batch *models.EntryBatch) []models.Signature
}

// Notifier delivers detected signatures to an external consumer.
type Notifier interface {
	Notify(ctx context.Context, sigs []models.Signature) error
}

// SignaturePublisher forwards timestamped signatures downstream.
type SignaturePublisher interface {
	Publish(ctx context.Context, sig models.TimestampedSignature) error
	Close() error
}

// PoolSource loads the pool registry the arbitrage strategy tracks.
type PoolSource interface {
	LoadPools(ctx context.Context) ([]models.Pool, error)
}

type Metrics interface {
	RecordPacket(bytes int)
	RecordError(kind string)
	RecordDrop(branch, stream string)
	RecordSignature(strategy string)
	RecordLatency(op string, seconds float64)
	RecordStage(m models.StageMetrics)
}
