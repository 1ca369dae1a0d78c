package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/domain/repository"
	"ShredPull/internal/service/ratelimit"
	xhttp "ShredPull/pkg/http"
	"ShredPull/pkg/logger"
)

var ErrNotifierBusy = errors.New("webhook queue full")

// WebhookPayload is the JSON body posted for every detection batch.
type WebhookPayload struct {
	Signatures []models.Signature `json:"signatures"`
	SentMs     int64              `json:"sent_ms"`
}

// WebhookNotifier posts detected signatures to a webhook from a single
// background worker, so detection never waits on the network. When the
// queue is full the batch is dropped and ErrNotifierBusy returned.
type WebhookNotifier struct {
	client  *xhttp.Client
	url     string
	logger  *logger.Logger
	limiter *ratelimit.Limiter

	queue   chan []models.Signature
	once    sync.Once
	dropped atomic.Uint64
	sent    atomic.Uint64
}

type WebhookOption func(*WebhookNotifier)

// WithRateLimit paces deliveries through l, keyed by webhook URL. Batches
// wait in the queue while the limit is exhausted.
func WithRateLimit(l *ratelimit.Limiter) WebhookOption {
	return func(n *WebhookNotifier) { n.limiter = l }
}

// NewWebhookNotifier creates a notifier with room for queueSize batches.
func NewWebhookNotifier(client *xhttp.Client, url string, queueSize int, lg *logger.Logger, opts ...WebhookOption) repository.Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	if lg == nil {
		lg = logger.Nop()
	}
	n := &WebhookNotifier{
		client: client,
		url:    url,
		logger: lg.With(logger.String("component", "webhook")),
		queue:  make(chan []models.Signature, queueSize),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify enqueues sigs. The worker is started on first use and lives as
// long as the ctx of that first call.
func (n *WebhookNotifier) Notify(ctx context.Context, sigs []models.Signature) error {
	n.once.Do(func() { go n.run(ctx) })
	batch := append([]models.Signature(nil), sigs...)
	select {
	case n.queue <- batch:
		return nil
	default:
		n.dropped.Add(1)
		return ErrNotifierBusy
	}
}

// Stats returns delivered and dropped batch counts.
func (n *WebhookNotifier) Stats() (sent, dropped uint64) {
	return n.sent.Load(), n.dropped.Load()
}

func (n *WebhookNotifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-n.queue:
			if n.limiter != nil {
				if err := n.limiter.Wait(ctx, n.url); err != nil {
					return
				}
			}
			if err := n.post(ctx, batch); err != nil {
				n.logger.Warn("webhook delivery failed", logger.Error(err), logger.Int("count", len(batch)))
				continue
			}
			n.sent.Add(1)
		}
	}
}

func (n *WebhookNotifier) post(ctx context.Context, sigs []models.Signature) error {
	return n.client.PostJSON(ctx, n.url, WebhookPayload{Signatures: sigs, SentMs: time.Now().UnixMilli()})
}
