package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/usecase"
	"ShredPull/pkg/config"
	xhttp "ShredPull/pkg/http"
	applogger "ShredPull/pkg/logger"
)

// Resource is closed once the listener has stopped.
type Resource struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	listener   *usecase.Listener
	benchmark  *usecase.BenchmarkLog
	httpServer *xhttp.Server
	resources  []Resource
}

// New creates a new App instance. httpServer may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	listener *usecase.Listener,
	benchmark *usecase.BenchmarkLog,
	httpServer *xhttp.Server,
	resources ...Resource,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		listener:   listener,
		benchmark:  benchmark,
		httpServer: httpServer,
		resources:  resources,
	}
}

// Benchmark returns the log the sink records into.
func (a *App) Benchmark() *usecase.BenchmarkLog { return a.benchmark }

// Run starts the configured mode and blocks until it finishes or the process
// receives SIGINT or SIGTERM. Only startup failures are returned.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.close()
			return err
		}
	}

	err := a.runMode(ctx)
	a.shutdown()
	return err
}

func (a *App) runMode(ctx context.Context) error {
	if a.cfg.Capture.Enabled {
		return a.listener.RunWithCapture(ctx, usecase.CaptureOptions{
			BindAddr:     a.cfg.Listener.BindAddr,
			Path:         a.cfg.Capture.Path,
			Threshold:    a.cfg.Capture.Threshold,
			PollInterval: a.cfg.Capture.PollInterval,
		})
	}

	topology, err := models.ParseTopology(a.cfg.Listener.Topology)
	if err != nil {
		return fmt.Errorf("listener topology: %w", err)
	}
	return a.listener.RunWithStrategies(ctx, usecase.Options{
		BindAddr:         a.cfg.Listener.BindAddr,
		Topology:         topology,
		WebhookURL:       a.cfg.Pump.WebhookURL,
		BenchmarkLog:     a.benchmark,
		BenchmarkEnabled: a.cfg.Benchmark.Enabled,
		ChannelCapacity:  a.cfg.Listener.ChannelCapacity,
		MetricsInterval:  a.cfg.Listener.MetricsInterval,
		ShutdownTimeout:  a.cfg.Listener.ShutdownTimeout,
	})
}

// shutdown stops the admin server and releases infrastructure clients.
func (a *App) shutdown() {
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Warn("http shutdown error", applogger.Error(err))
		}
		cancel()
	}
	if a.benchmark != nil && a.cfg.Benchmark.Enabled {
		a.logger.Info("benchmark summary", applogger.Int("signatures", a.benchmark.Len()))
	}
	a.close()
	a.logger.Info("shutdown complete")
}

func (a *App) close() {
	// flush aggregated error logs while the producer is still open
	a.logger.RemoveCollector()
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if r.Close == nil {
			continue
		}
		if err := r.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", r.Name), applogger.Error(err))
		}
	}
}
