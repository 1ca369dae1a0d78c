package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	"ShredPull/pkg/logger"
)

// BenchmarkLog is an append-only record of signatures and when the sink saw
// them. It is safe for concurrent use.
type BenchmarkLog struct {
	mu      sync.Mutex
	entries []models.TimestampedSignature
}

func NewBenchmarkLog() *BenchmarkLog { return &BenchmarkLog{} }

func (l *BenchmarkLog) Append(ts models.TimestampedSignature) {
	l.mu.Lock()
	l.entries = append(l.entries, ts)
	l.mu.Unlock()
}

func (l *BenchmarkLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a copy of every entry in arrival order.
func (l *BenchmarkLog) Snapshot() []models.TimestampedSignature {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.TimestampedSignature, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns up to limit entries received at or after sinceMs, newest
// last. A limit of zero or less means no limit.
func (l *BenchmarkLog) Since(sinceMs uint64, limit int) []models.TimestampedSignature {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.TimestampedSignature
	for _, e := range l.entries {
		if e.ReceivedMs >= sinceMs {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

const (
	defaultPublishQueue = 1024
	defaultPublishDrain = time.Second
)

// SignatureSink is the single consumer of every pipeline's signatures.
// Publishing runs on its own worker behind a bounded queue, so a slow
// publisher drops signatures instead of backing up the pipelines.
type SignatureSink struct {
	in        <-chan models.Signature
	log       *BenchmarkLog
	enabled   bool
	publisher drepo.SignaturePublisher
	now       func() time.Time
	logger    *logger.Logger
	metrics   drepo.Metrics

	queueSize      int
	drainTimeout   time.Duration
	publishDropped atomic.Uint64
}

type SinkOption func(*SignatureSink)

// WithPublisher forwards every stamped signature downstream as well.
func WithPublisher(p drepo.SignaturePublisher) SinkOption {
	return func(s *SignatureSink) { s.publisher = p }
}

// WithPublishQueue sets how many signatures may wait for the publisher.
func WithPublishQueue(n int) SinkOption {
	return func(s *SignatureSink) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithPublishDrain bounds how long Run waits for queued publishes once its
// input is exhausted.
func WithPublishDrain(d time.Duration) SinkOption {
	return func(s *SignatureSink) {
		if d > 0 {
			s.drainTimeout = d
		}
	}
}

// WithSinkClock overrides the receipt clock.
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *SignatureSink) { s.now = now }
}

// NewSignatureSink records into log only when enabled is set and log is
// non-nil; otherwise signatures are consumed and discarded.
func NewSignatureSink(in <-chan models.Signature, log *BenchmarkLog, enabled bool, lg *logger.Logger, metrics drepo.Metrics, opts ...SinkOption) *SignatureSink {
	if lg == nil {
		lg = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &SignatureSink{
		in:      in,
		log:     log,
		enabled: enabled,
		now:     time.Now,
		logger:  lg,
		metrics: metrics,

		queueSize:    defaultPublishQueue,
		drainTimeout: defaultPublishDrain,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishDropped counts signatures the publish queue had no room for.
func (s *SignatureSink) PublishDropped() uint64 { return s.publishDropped.Load() }

// Run consumes until the channel is closed or ctx is done.
func (s *SignatureSink) Run(ctx context.Context) {
	var queue chan models.TimestampedSignature
	if s.publisher != nil {
		queue = make(chan models.TimestampedSignature, s.queueSize)
		pubCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.publish(pubCtx, queue)
		}()
		defer func() {
			close(queue)
			timer := time.NewTimer(s.drainTimeout)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
				s.logger.Warn("publisher drain timed out", logger.Int("pending", len(queue)))
			}
			cancel()
			<-done
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-s.in:
			if !ok {
				return
			}
			s.record(sig, queue)
		}
	}
}

func (s *SignatureSink) record(sig models.Signature, queue chan<- models.TimestampedSignature) {
	ts := models.TimestampedSignature{ReceivedMs: uint64(s.now().UnixMilli()), Signature: sig}

	if s.enabled && s.log != nil {
		s.log.Append(ts)
		s.logger.Info("algo", logger.Uint64("received_ms", ts.ReceivedMs), logger.String("signature", string(sig)))
	}

	if queue == nil {
		return
	}
	select {
	case queue <- ts:
	default:
		s.publishDropped.Add(1)
		s.metrics.RecordDrop("publisher", "signatures")
	}
}

// publish drains queue until it is closed. Once ctx is done the remaining
// signatures are discarded.
func (s *SignatureSink) publish(ctx context.Context, queue <-chan models.TimestampedSignature) {
	for ts := range queue {
		if ctx.Err() != nil {
			continue
		}
		if err := s.publisher.Publish(ctx, ts); err != nil {
			s.metrics.RecordError("publish_signature")
			s.logger.Error("publish signature failed", logger.Error(err), logger.String("signature", string(ts.Signature)))
		}
	}
}
