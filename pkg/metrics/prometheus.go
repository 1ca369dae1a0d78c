package metrics

import (
	"ShredPull/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	packets     prometheus.Counter
	packetBytes prometheus.Counter
	errorsTotal *prometheus.CounterVec
	drops       *prometheus.CounterVec
	signatures  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	stage       *prometheus.GaugeVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		packets: f.NewCounter(prometheus.CounterOpts{
			Name: "shredpull_packets_received_total",
			Help: "Datagrams received on the shred socket",
		}),
		packetBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "shredpull_packet_bytes_total",
			Help: "Bytes received on the shred socket",
		}),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shredpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		drops: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shredpull_fanout_dropped_total",
				Help: "Copies the fan-out router dropped because a branch was full",
			},
			[]string{"branch", "stream"},
		),
		signatures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shredpull_signatures_total",
				Help: "Signatures emitted per strategy",
			},
			[]string{"strategy"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shredpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
			},
			[]string{"operation"},
		),
		stage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shredpull_stage",
				Help: "Reconstruction stage counters as of the last metrics tick",
			},
			[]string{"counter"},
		),
	}
}

func (r *Recorder) RecordPacket(bytes int) {
	r.packets.Inc()
	r.packetBytes.Add(float64(bytes))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordDrop(branch, stream string) {
	r.drops.WithLabelValues(branch, stream).Inc()
}

func (r *Recorder) RecordSignature(strategy string) {
	r.signatures.WithLabelValues(strategy).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordStage mirrors a stage snapshot into gauges.
func (r *Recorder) RecordStage(m models.StageMetrics) {
	r.stage.WithLabelValues("packets_received").Set(float64(m.PacketsReceived))
	r.stage.WithLabelValues("data_shreds").Set(float64(m.DataShreds))
	r.stage.WithLabelValues("code_shreds").Set(float64(m.CodeShreds))
	r.stage.WithLabelValues("invalid_shreds").Set(float64(m.InvalidShreds))
	r.stage.WithLabelValues("duplicate_shreds").Set(float64(m.DuplicateShreds))
	r.stage.WithLabelValues("stale_shreds").Set(float64(m.StaleShreds))
	r.stage.WithLabelValues("outlier_shreds").Set(float64(m.OutlierShreds))
	r.stage.WithLabelValues("batches_emitted").Set(float64(m.BatchesEmitted))
	r.stage.WithLabelValues("entries_emitted").Set(float64(m.EntriesEmitted))
	r.stage.WithLabelValues("decode_errors").Set(float64(m.DecodeErrors))
	r.stage.WithLabelValues("slots_tracked").Set(float64(m.SlotsTracked))
	r.stage.WithLabelValues("highest_slot").Set(float64(m.HighestSlot))
}
