package usecase

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
)

// echoStage emits one batch per packet, with the first byte as the slot.
// A packet starting with 0xff yields an error note instead.
type echoStage struct {
	entries chan<- *models.EntryBatch
	errs    chan<- models.ErrorNote

	mu      sync.Mutex
	packets []models.Packet
	m       models.StageMetrics
}

func newEchoStage(entries chan<- *models.EntryBatch, errs chan<- models.ErrorNote) *echoStage {
	return &echoStage{entries: entries, errs: errs}
}

func (s *echoStage) Collect(ctx context.Context, p models.Packet) {
	s.mu.Lock()
	s.packets = append(s.packets, p)
	s.m.PacketsReceived++
	s.m.BytesReceived += uint64(len(p))
	s.mu.Unlock()

	if s.entries == nil || len(p) == 0 {
		return
	}
	if p[0] == 0xff {
		select {
		case s.errs <- models.ErrorNote{Slot: 0, Reason: "bad packet"}:
		case <-ctx.Done():
		}
		return
	}
	select {
	case s.entries <- &models.EntryBatch{Slot: uint64(p[0])}:
	case <-ctx.Done():
	}
}

func (s *echoStage) Metrics() models.StageMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

func (s *echoStage) received() []models.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Packet(nil), s.packets...)
}

// slotDetector reports "<name>-<slot>" for every batch.
type slotDetector struct{ name string }

func (d slotDetector) Name() string { return d.name }

func (d slotDetector) Detect(_ context.Context, b *models.EntryBatch) []models.Signature {
	return []models.Signature{models.Signature(fmt.Sprintf("%s-%d", d.name, b.Slot))}
}

type fakeStrategies struct {
	mu    sync.Mutex
	built []string
	inits int
}

func (f *fakeStrategies) Build(name, _ string) (StrategySpec, error) {
	f.mu.Lock()
	f.built = append(f.built, name)
	f.mu.Unlock()
	return StrategySpec{
		Name:     name,
		Detector: slotDetector{name: name},
		Init: func(context.Context) error {
			f.mu.Lock()
			f.inits++
			f.mu.Unlock()
			return nil
		},
	}, nil
}

func sendUDP(t *testing.T, addr net.Addr, payloads ...[]byte) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	for _, p := range payloads {
		if _, err := conn.Write(p); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
