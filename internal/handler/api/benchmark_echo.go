package api

import (
	"context"
	"errors"
	"time"

	"ShredPull/internal/domain/models"
	mid "ShredPull/internal/middleware"
	"ShredPull/internal/usecase"
	xhttp "ShredPull/pkg/http"
	xlogger "ShredPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StageView exposes the counters of the running listener.
type StageView interface {
	Snapshot(ctx context.Context) (models.StageMetrics, error)
	Stats() []mid.BranchStats
}

// BenchmarkRequest filters GET /api/benchmark.
type BenchmarkRequest struct {
	SinceMs uint64 `query:"since_ms"`
	Limit   int    `query:"limit" default:"500" validate:"gte=1,lte=10000"`
}

// StageResponse is the body of GET /api/stage.
type StageResponse struct {
	Stage    models.StageMetrics `json:"stage"`
	Branches []mid.BranchStats   `json:"branches"`
}

// DefaultSnapshotTimeout bounds how long /api/stage waits for the adapter.
const DefaultSnapshotTimeout = 2 * time.Second

// BenchmarkEchoHandler serves the benchmark log and the stage counters.
type BenchmarkEchoHandler struct {
	logger          *xlogger.Logger
	log             *usecase.BenchmarkLog
	stage           StageView
	snapshotTimeout time.Duration
}

type HandlerOption func(*BenchmarkEchoHandler)

// WithSnapshotTimeout overrides DefaultSnapshotTimeout.
func WithSnapshotTimeout(d time.Duration) HandlerOption {
	return func(h *BenchmarkEchoHandler) {
		if d > 0 {
			h.snapshotTimeout = d
		}
	}
}

func NewBenchmarkEchoHandler(logger *xlogger.Logger, log *usecase.BenchmarkLog, stage StageView, opts ...HandlerOption) *BenchmarkEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &BenchmarkEchoHandler{logger: logger, log: log, stage: stage, snapshotTimeout: DefaultSnapshotTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *BenchmarkEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/benchmark", h.Benchmark)
	g.GET("/stage", h.Stage)
}

// Benchmark returns the newest matching entries, oldest first. Total is the
// number of entries recorded so far.
func (h *BenchmarkEchoHandler) Benchmark(c echo.Context) error {
	req := &BenchmarkRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.log == nil {
		return xhttp.ListResponse(c, []models.TimestampedSignature{}, 0)
	}
	rows := h.log.Since(req.SinceMs, req.Limit)
	if rows == nil {
		rows = []models.TimestampedSignature{}
	}
	return xhttp.ListResponse(c, rows, int64(h.log.Len()))
}

// Stage returns the stage counters. A busy adapter that cannot answer
// within the snapshot timeout yields 503.
func (h *BenchmarkEchoHandler) Stage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.snapshotTimeout)
	defer cancel()
	m, err := h.stage.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrAdapterStopped) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("listener is not running"))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("stage snapshot timed out", xlogger.Duration("timeout", h.snapshotTimeout))
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("stage is busy"))
		}
		h.logger.Error("stage snapshot failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("stage snapshot", err))
	}
	branches := h.stage.Stats()
	if branches == nil {
		branches = []mid.BranchStats{}
	}
	return xhttp.SuccessResponse(c, StageResponse{Stage: m, Branches: branches})
}
