package usecase

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	mid "ShredPull/internal/middleware"
	"ShredPull/pkg/logger"
)

const (
	DefaultChannelCapacity = 2000
	DefaultShutdownTimeout = 5 * time.Second
)

// StageFactory builds the reconstruction stage that will emit on the given
// channels.
type StageFactory func(entries chan<- *models.EntryBatch, errs chan<- models.ErrorNote) drepo.Reconstructor

// Options configure one RunWithStrategies call.
type Options struct {
	BindAddr         string
	Topology         models.Topology
	WebhookURL       string
	BenchmarkLog     *BenchmarkLog
	BenchmarkEnabled bool

	ChannelCapacity int
	MetricsInterval time.Duration
	ShutdownTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.ChannelCapacity <= 0 {
		o.ChannelCapacity = DefaultChannelCapacity
	}
	if o.MetricsInterval <= 0 {
		o.MetricsInterval = DefaultReportInterval
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// CaptureOptions configure one RunWithCapture call.
type CaptureOptions struct {
	BindAddr     string
	Path         string
	Threshold    int
	PollInterval time.Duration
}

// Listener owns the process lifecycle: socket, reconstruction stage,
// pipelines, sink and reporter.
type Listener struct {
	newStage   StageFactory
	strategies StrategyFactory
	publisher  drepo.SignaturePublisher
	logger     *logger.Logger
	metrics    drepo.Metrics

	current atomic.Pointer[Runtime]
}

type ListenerOption func(*Listener)

// WithSignaturePublisher forwards every sink signature to p.
func WithSignaturePublisher(p drepo.SignaturePublisher) ListenerOption {
	return func(l *Listener) { l.publisher = p }
}

func NewListener(newStage StageFactory, strategies StrategyFactory, lg *logger.Logger, metrics drepo.Metrics, opts ...ListenerOption) *Listener {
	if lg == nil {
		lg = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	l := &Listener{newStage: newStage, strategies: strategies, logger: lg, metrics: metrics}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Runtime is a started strategies run.
type Runtime struct {
	addr    net.Addr
	adapter *ReconstructionAdapter
	layout  layout
	logger  *logger.Logger

	cancelPipelines context.CancelFunc
	ingestDone      chan struct{}
	layoutDone      chan struct{}
	sinkDone        chan struct{}

	mu        sync.Mutex
	ingestErr error
	layoutErr error
}

// Addr is the bound UDP address.
func (r *Runtime) Addr() net.Addr { return r.addr }

// Snapshot returns the stage counters through the adapter.
func (r *Runtime) Snapshot(ctx context.Context) (models.StageMetrics, error) {
	return r.adapter.Snapshot(ctx)
}

// Stats returns fan-out counters, or nil for direct topologies.
func (r *Runtime) Stats() []mid.BranchStats { return r.layout.stats() }

// Start binds the socket and launches every task. Ingestion, the adapter and
// the reporter stop when ctx is done; pipelines and the sink keep draining
// until Shutdown lets them finish or gives up.
func (l *Listener) Start(ctx context.Context, opts Options) (*Runtime, error) {
	opts.setDefaults()

	conn, err := Bind(ctx, opts.BindAddr)
	if err != nil {
		return nil, err
	}

	entries := make(chan *models.EntryBatch, opts.ChannelCapacity)
	errs := make(chan models.ErrorNote, opts.ChannelCapacity)
	sigs := make(chan models.Signature, opts.ChannelCapacity)

	lay, err := newLayout(layoutConfig{
		topology:   opts.Topology,
		webhookURL: opts.WebhookURL,
		capacity:   opts.ChannelCapacity,
		strategies: l.strategies,
		logger:     l.logger,
		metrics:    l.metrics,
	}, entries, errs, sigs)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	adapter := NewReconstructionAdapter(l.newStage(entries, errs))
	ingestor := NewIngestor(conn, adapter, l.logger, l.metrics)

	var sinkOpts []SinkOption
	if l.publisher != nil {
		sinkOpts = append(sinkOpts, WithPublisher(l.publisher))
	}
	sink := NewSignatureSink(sigs, opts.BenchmarkLog, opts.BenchmarkEnabled, l.logger, l.metrics, sinkOpts...)

	pipeCtx, cancelPipelines := context.WithCancel(context.WithoutCancel(ctx))
	rt := &Runtime{
		addr:            conn.LocalAddr(),
		adapter:         adapter,
		layout:          lay,
		logger:          l.logger,
		cancelPipelines: cancelPipelines,
		ingestDone:      make(chan struct{}),
		layoutDone:      make(chan struct{}),
		sinkDone:        make(chan struct{}),
	}

	go func() {
		adapter.Run(ctx)
		// the stage only emits from the adapter goroutine
		close(entries)
		close(errs)
	}()

	lay.start(pipeCtx)
	go func() {
		defer close(rt.layoutDone)
		err := lay.wait()
		rt.mu.Lock()
		rt.layoutErr = err
		rt.mu.Unlock()
		close(sigs)
	}()

	go func() {
		defer close(rt.sinkDone)
		sink.Run(pipeCtx)
	}()

	go func() {
		defer close(rt.ingestDone)
		err := ingestor.Run(ctx)
		rt.mu.Lock()
		rt.ingestErr = err
		rt.mu.Unlock()
	}()

	l.current.Store(rt)

	reporter := NewReporter(adapter, lay.stats, opts.MetricsInterval, l.logger, l.metrics)
	go reporter.Run(ctx)

	l.logger.Info("Starting entries rx",
		logger.String("mode", opts.Topology.String()),
		logger.String("addr", rt.addr.String()),
		logger.Bool("benchmark", opts.BenchmarkEnabled),
	)
	return rt, nil
}

// Shutdown waits up to timeout for pipelines and the sink to drain what was
// already queued, then cancels them. It must be called after the ctx passed
// to Start is done.
func (r *Runtime) Shutdown(timeout time.Duration) error {
	<-r.ingestDone
	<-r.adapter.Done()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.sinkDone:
	case <-timer.C:
		r.logger.Warn("drain timed out, abandoning queued work", logger.Duration("timeout", timeout))
	}
	r.cancelPipelines()
	<-r.layoutDone
	<-r.sinkDone

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ingestErr != nil && !errors.Is(r.ingestErr, net.ErrClosed) {
		return r.ingestErr
	}
	return r.layoutErr
}

// Snapshot returns the stage counters of the most recent run.
func (l *Listener) Snapshot(ctx context.Context) (models.StageMetrics, error) {
	rt := l.current.Load()
	if rt == nil {
		return models.StageMetrics{}, ErrAdapterStopped
	}
	return rt.Snapshot(ctx)
}

// Stats returns the fan-out counters of the most recent run.
func (l *Listener) Stats() []mid.BranchStats {
	rt := l.current.Load()
	if rt == nil {
		return nil
	}
	return rt.Stats()
}

// RunWithStrategies runs the strategies mode until ctx is done, then drains
// within the shutdown timeout. Only startup failures are returned.
func (l *Listener) RunWithStrategies(ctx context.Context, opts Options) error {
	opts.setDefaults()
	rt, err := l.Start(ctx, opts)
	if err != nil {
		return err
	}
	<-ctx.Done()
	l.logger.Info("shutting down", logger.Duration("drain_timeout", opts.ShutdownTimeout))
	if err := rt.Shutdown(opts.ShutdownTimeout); err != nil {
		l.logger.Error("shutdown finished with error", logger.Error(err))
	}
	return nil
}

// RunWithCapture records raw packets until the threshold is reached and
// writes them to disk. Ingestion halts at the threshold.
func (l *Listener) RunWithCapture(ctx context.Context, opts CaptureOptions) error {
	conn, err := Bind(ctx, opts.BindAddr)
	if err != nil {
		return err
	}
	return l.Capture(ctx, conn, opts)
}

// Capture runs a capture on an already bound socket, which it closes.
func (l *Listener) Capture(ctx context.Context, conn net.PacketConn, opts CaptureOptions) error {
	buf := NewPacketBuffer(opts.Threshold)
	ingestCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ingestor := NewIngestor(conn, buf, l.logger, l.metrics)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ingestor.Run(ingestCtx); err != nil {
			if errors.Is(err, ErrBufferFull) {
				l.logger.Info("capture buffer full, ingestion halted", logger.Int("count", buf.Len()))
				return
			}
			l.logger.Error("capture ingestion stopped", logger.Error(err))
		}
	}()

	l.logger.Info("Starting packet capture",
		logger.String("addr", conn.LocalAddr().String()),
		logger.Int("threshold", buf.Limit()),
	)
	err := NewCapturer(buf, opts.Path, opts.PollInterval, l.logger).Supervise(ctx)
	cancel()
	<-done
	return err
}
