package metrics

import (
	"testing"

	"ShredPull/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordPacket(10)
	r.RecordPacket(1232)
	r.RecordDrop("pump", "entries")
	r.RecordDrop("pump", "entries")
	r.RecordSignature("arb")

	if got := testutil.ToFloat64(r.packets); got != 2 {
		t.Fatalf("packets = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.packetBytes); got != 1242 {
		t.Fatalf("bytes = %v, want 1242", got)
	}
	if got := testutil.ToFloat64(r.drops.WithLabelValues("pump", "entries")); got != 2 {
		t.Fatalf("drops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.signatures.WithLabelValues("arb")); got != 1 {
		t.Fatalf("signatures = %v, want 1", got)
	}
}

func TestRecorderStageGauges(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())
	r.RecordStage(models.StageMetrics{PacketsReceived: 3, HighestSlot: 42})

	if got := testutil.ToFloat64(r.stage.WithLabelValues("packets_received")); got != 3 {
		t.Fatalf("packets_received gauge = %v", got)
	}
	if got := testutil.ToFloat64(r.stage.WithLabelValues("highest_slot")); got != 42 {
		t.Fatalf("highest_slot gauge = %v", got)
	}
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	NewWithRegisterer(prometheus.NewRegistry())
	NewWithRegisterer(prometheus.NewRegistry())
}
