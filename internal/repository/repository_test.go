package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/service/ratelimit"
	"ShredPull/pkg/cache"
	xhttp "ShredPull/pkg/http"
)

type captured struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	msgs   []captured
	closed bool
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.msgs = append(p.msgs, captured{topic: topic, key: key, value: value})
	return nil
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

func TestKafkaSignaturePublisher(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewKafkaSignaturePublisher(prod, "shredpull.signatures")

	ts := models.TimestampedSignature{ReceivedMs: 42, Signature: "5igA"}
	if err := pub.Publish(context.Background(), ts); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(prod.msgs) != 1 {
		t.Fatalf("messages = %d", len(prod.msgs))
	}
	m := prod.msgs[0]
	if m.topic != "shredpull.signatures" || string(m.key) != "5igA" || m.value.(models.TimestampedSignature) != ts {
		t.Fatalf("message = %+v", m)
	}
	_ = pub.Close()
	if !prod.closed {
		t.Fatalf("producer not closed")
	}
}

func TestCachePoolSourceFallsBackToStatic(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := NewCachePoolSource(mc, "pools", []string{"static1", "static2"})

	pools, err := src.LoadPools(context.Background())
	if err != nil || len(pools) != 2 || pools[0].Address != "static1" {
		t.Fatalf("static fallback = %+v, %v", pools, err)
	}
}

func TestCachePoolSourcePrefersCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	_ = mc.Set(ctx, "pools", []models.Pool{{Address: "cached", Name: "SOL-USDC"}}, 0)

	pools, err := NewCachePoolSource(mc, "pools", []string{"static"}).LoadPools(ctx)
	if err != nil || len(pools) != 1 || pools[0].Name != "SOL-USDC" {
		t.Fatalf("cached pools = %+v, %v", pools, err)
	}
}

func TestCachePoolSourceSeedsOnFirstLoad(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if _, err := NewCachePoolSource(mc, "pools", []string{"a", "b"}).LoadPools(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	var stored []models.Pool
	if err := mc.Get(ctx, "pools", &stored); err != nil || len(stored) != 2 {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	// a later source with other defaults does not overwrite the registry
	pools, err := NewCachePoolSource(mc, "pools", []string{"c"}).LoadPools(ctx)
	if err != nil || len(pools) != 2 || pools[0].Address != "a" {
		t.Fatalf("pools = %+v, %v", pools, err)
	}
}

type brokenCache struct{ cache.Service }

func (brokenCache) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func TestCachePoolSourceSurfacesBackendErrors(t *testing.T) {
	if _, err := NewCachePoolSource(brokenCache{}, "pools", nil).LoadPools(context.Background()); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestWebhookNotifierPostsSignatures(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []WebhookPayload
		hits = make(chan struct{}, 4)
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		hits <- struct{}{}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := NewWebhookNotifier(xhttp.NewClient(xhttp.WithTimeout(time.Second)), srv.URL, 4, nil)
	if err := n.Notify(ctx, []models.Signature{"a", "b"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatalf("webhook not called")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || len(got[0].Signatures) != 2 || got[0].Signatures[1] != "b" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestWebhookNotifierDropsWhenQueueFull(t *testing.T) {
	n := NewWebhookNotifier(xhttp.NewClient(), "http://127.0.0.1:1/hook", 1, nil).(*WebhookNotifier)
	// no worker, so nothing drains the queue
	n.once.Do(func() {})
	ctx := context.Background()

	if err := n.Notify(ctx, []models.Signature{"a"}); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	err := n.Notify(ctx, []models.Signature{"b"})
	if !errors.Is(err, ErrNotifierBusy) {
		t.Fatalf("expected ErrNotifierBusy, got %v", err)
	}
	if _, dropped := n.Stats(); dropped != 1 {
		t.Fatalf("dropped = %d", dropped)
	}
}

func TestWebhookNotifierHonoursRateLimit(t *testing.T) {
	hits := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		hits <- struct{}{}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// one token, effectively no refill
	lim := ratelimit.New(0.001, 1)
	n := NewWebhookNotifier(xhttp.NewClient(), srv.URL, 4, nil, WithRateLimit(lim))
	_ = n.Notify(ctx, []models.Signature{"a"})
	_ = n.Notify(ctx, []models.Signature{"b"})

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatalf("first batch not delivered")
	}
	select {
	case <-hits:
		t.Fatalf("second batch delivered despite exhausted limit")
	case <-time.After(200 * time.Millisecond):
	}
}
