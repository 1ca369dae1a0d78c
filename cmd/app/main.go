package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ShredPull/internal/di"
	"ShredPull/internal/usecase"
	"ShredPull/pkg/config"

	"github.com/spf13/pflag"
)

const (
	exitFailure     = 1
	exitConfig      = 2
	exitBind        = 3
	exitCaptureFile = 4
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		bindErr    *usecase.BindError
		captureErr *usecase.CaptureFileError
		cfgErr     configError
	)
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &bindErr):
		return exitBind
	case errors.As(err, &captureErr):
		return exitCaptureFile
	default:
		return exitFailure
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("shredpull", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "config/config.yaml", "config file path")
	save := flagSet.Bool("save", false, "capture raw packets to a file instead of running strategies")
	bind := flagSet.String("bind", "", "UDP bind address (host:port)")
	mode := flagSet.String("mode", "", "strategy topology: arb, pump, graduates or all")
	benchmark := flagSet.Bool("benchmark", false, "record and log every emitted signature")
	webhook := flagSet.String("webhook", "", "webhook URL for pump notifications")
	output := flagSet.String("output", "", "capture file path")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return configError{err}
	}

	cfg, err := loadConfig(*configPath, flagSet.Changed("config"))
	if err != nil {
		return configError{err}
	}

	if flagSet.Changed("save") {
		cfg.Capture.Enabled = *save
	}
	if flagSet.Changed("bind") {
		cfg.Listener.BindAddr = *bind
	}
	if flagSet.Changed("mode") {
		cfg.Listener.Topology = *mode
	}
	if flagSet.Changed("benchmark") {
		cfg.Benchmark.Enabled = *benchmark
	}
	if flagSet.Changed("webhook") {
		cfg.Pump.WebhookURL = *webhook
	}
	if flagSet.Changed("output") {
		cfg.Capture.Path = *output
	}
	if err := cfg.Validate(); err != nil {
		return configError{fmt.Errorf("validate config: %w", err)}
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	return app.Run(context.Background())
}

// loadConfig reads path with env overrides. A missing default file falls
// back to built-in defaults; a missing explicit file is an error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		cfg, err := config.Default()
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnv(os.Getenv)
		return cfg, nil
	}
	return config.LoadWithEnv(path)
}
