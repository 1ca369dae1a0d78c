package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
)

func TestBindFailureIsBindError(t *testing.T) {
	_, err := Bind(context.Background(), "256.0.0.1:bad")
	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("expected BindError, got %v", err)
	}
	if be.Addr != "256.0.0.1:bad" {
		t.Fatalf("addr = %q", be.Addr)
	}
}

func TestIngestorForwardsExactCopies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := Bind(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	stage := newEchoStage(nil, nil)
	adapter := NewReconstructionAdapter(stage)
	go adapter.Run(ctx)

	ing := NewIngestor(conn, adapter, nil, nil)
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	payloads := [][]byte{
		bytes.Repeat([]byte{1}, 10),
		bytes.Repeat([]byte{2}, 500),
		bytes.Repeat([]byte{3}, models.MaxPacketSize),
	}
	sendUDP(t, ing.Addr(), payloads...)

	waitFor(t, "three packets", func() bool {
		m, err := adapter.Snapshot(ctx)
		return err == nil && m.PacketsReceived == 3
	})

	got := stage.received()
	for i, p := range payloads {
		if !bytes.Equal(got[i], p) {
			t.Fatalf("packet %d: got %d bytes, want %d", i, len(got[i]), len(p))
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("ingestor did not stop")
	}
}

func TestAdapterSnapshotIsOrderedAfterAccepts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stage := newEchoStage(nil, nil)
	a := NewReconstructionAdapter(stage)
	go a.Run(ctx)

	for i := 0; i < 50; i++ {
		if err := a.Accept(ctx, models.Packet{byte(i)}); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	m, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// accepts queued ahead of the snapshot are collected first
	if m.PacketsReceived != 50 {
		t.Fatalf("packets = %d, want 50", m.PacketsReceived)
	}
	again, _ := a.Snapshot(ctx)
	if again != m {
		t.Fatalf("snapshot mutated the stage")
	}
}

func TestAdapterStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewReconstructionAdapter(newEchoStage(nil, nil))
	go a.Run(ctx)
	cancel()
	<-a.Done()

	if err := a.Accept(context.Background(), models.Packet{1}); !errors.Is(err, ErrAdapterStopped) {
		t.Fatalf("accept after stop = %v", err)
	}
	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrAdapterStopped) {
		t.Fatalf("snapshot after stop = %v", err)
	}
}
