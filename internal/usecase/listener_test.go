package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
)

func echoFactory(entries chan<- *models.EntryBatch, errs chan<- models.ErrorNote) drepo.Reconstructor {
	return newEchoStage(entries, errs)
}

func TestRunAllTopologyReplicatesToEveryPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	strategies := &fakeStrategies{}
	bench := NewBenchmarkLog()
	l := NewListener(echoFactory, strategies, nil, nil)
	rt, err := l.Start(ctx, Options{
		BindAddr:         "127.0.0.1:0",
		Topology:         models.TopologyAll,
		BenchmarkLog:     bench,
		BenchmarkEnabled: true,
		MetricsInterval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	sendUDP(t, rt.Addr(), []byte{1}, []byte{0xff}, []byte{2}, []byte{3})
	waitFor(t, "nine signatures", func() bool { return bench.Len() == 9 })

	m, err := rt.Snapshot(ctx)
	if err != nil || m.PacketsReceived != 4 {
		t.Fatalf("snapshot = %+v, %v", m, err)
	}

	cancel()
	if err := rt.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	perStrategy := map[string][]string{}
	for _, e := range bench.Snapshot() {
		name, _, _ := strings.Cut(string(e.Signature), "-")
		perStrategy[name] = append(perStrategy[name], string(e.Signature))
		if e.ReceivedMs == 0 {
			t.Fatalf("signature %s not stamped", e.Signature)
		}
	}
	for _, name := range []string{models.StrategyArb, models.StrategyPump, models.StrategyGraduates} {
		got := perStrategy[name]
		want := []string{name + "-1", name + "-2", name + "-3"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("%s signatures = %v, want %v", name, got, want)
		}
	}

	built := append([]string(nil), strategies.built...)
	if strings.Join(built, ",") != "arb,pump,graduates" {
		t.Fatalf("built strategies = %v", built)
	}
	if strategies.inits != 3 {
		t.Fatalf("inits = %d, want one per pipeline", strategies.inits)
	}
	for _, s := range rt.Stats() {
		if s.Dropped != 0 {
			t.Fatalf("unexpected drops %+v", s)
		}
	}
}

func TestRunDirectTopologyBuildsOnePipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	strategies := &fakeStrategies{}
	bench := NewBenchmarkLog()
	rt, err := NewListener(echoFactory, strategies, nil, nil).Start(ctx, Options{
		BindAddr:         "127.0.0.1:0",
		Topology:         models.TopologyPump,
		BenchmarkLog:     bench,
		BenchmarkEnabled: true,
		MetricsInterval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.Stats() != nil {
		t.Fatalf("direct topology has no router")
	}

	sendUDP(t, rt.Addr(), []byte{5}, []byte{6})
	waitFor(t, "two signatures", func() bool { return bench.Len() == 2 })
	cancel()
	if err := rt.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(strategies.built) != 1 || strategies.built[0] != models.StrategyPump {
		t.Fatalf("built = %v", strategies.built)
	}
	var sigs []string
	for _, e := range bench.Snapshot() {
		sigs = append(sigs, string(e.Signature))
	}
	sort.Strings(sigs)
	if strings.Join(sigs, ",") != "pump-5,pump-6" {
		t.Fatalf("signatures = %v", sigs)
	}
}

func TestBlockedPublisherDoesNotStallIngestion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bench := NewBenchmarkLog()
	l := NewListener(echoFactory, &fakeStrategies{}, nil, nil,
		WithSignaturePublisher(stuckPublisher{calls: make(chan struct{}, 1)}))
	rt, err := l.Start(ctx, Options{
		BindAddr:         "127.0.0.1:0",
		Topology:         models.TopologyPump,
		ChannelCapacity:  2,
		BenchmarkLog:     bench,
		BenchmarkEnabled: true,
		MetricsInterval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	const n = 40
	for i := 1; i <= n; i++ {
		sendUDP(t, rt.Addr(), []byte{byte(i)})
	}
	waitFor(t, "every signature recorded", func() bool { return bench.Len() == n })

	snapCtx, snapCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer snapCancel()
	m, err := rt.Snapshot(snapCtx)
	if err != nil || m.PacketsReceived != n {
		t.Fatalf("snapshot = %+v, %v", m, err)
	}

	cancel()
	if err := rt.Shutdown(3 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestRunWithStrategiesBindFailure(t *testing.T) {
	l := NewListener(echoFactory, &fakeStrategies{}, nil, nil)
	err := l.RunWithStrategies(context.Background(), Options{BindAddr: "not-an-address"})
	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("expected BindError, got %v", err)
	}
}

func TestRunWithStrategiesReturnsAfterInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(echoFactory, &fakeStrategies{}, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- l.RunWithStrategies(ctx, Options{
			BindAddr:        "127.0.0.1:0",
			Topology:        models.TopologyAll,
			ShutdownTimeout: 200 * time.Millisecond,
		})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after interrupt")
	}
}
