package usecase

import (
	"context"
	"errors"
	"net"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	"ShredPull/pkg/logger"
)

// PacketSink receives every datagram the ingestion loop reads.
type PacketSink interface {
	Accept(ctx context.Context, packet models.Packet) error
}

// Bind opens the UDP socket shreds arrive on.
func Bind(ctx context.Context, addr string) (net.PacketConn, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return conn, nil
}

// Ingestor reads datagrams off a bound socket and hands an exact copy of
// each one to its sink, in arrival order.
type Ingestor struct {
	conn    net.PacketConn
	sink    PacketSink
	logger  *logger.Logger
	metrics drepo.Metrics
}

// NewIngestor takes ownership of conn; Run closes it on return.
func NewIngestor(conn net.PacketConn, sink PacketSink, log *logger.Logger, metrics drepo.Metrics) *Ingestor {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Ingestor{conn: conn, sink: sink, logger: log, metrics: metrics}
}

// Addr returns the local address of the socket.
func (i *Ingestor) Addr() net.Addr { return i.conn.LocalAddr() }

// Run loops until ctx is done or the sink refuses a packet. Receive errors
// are logged and the loop carries on. Cancellation is a normal exit.
func (i *Ingestor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = i.conn.Close() })
	defer func() {
		stop()
		_ = i.conn.Close()
	}()

	buf := make([]byte, models.MaxPacketSize)
	for {
		n, _, err := i.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			i.metrics.RecordError("receive")
			i.logger.Error("udp receive failed", logger.Error(err))
			continue
		}

		packet := make(models.Packet, n)
		copy(packet, buf[:n])
		i.metrics.RecordPacket(n)

		if err := i.sink.Accept(ctx, packet); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordPacket(int) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordDrop(string, string) {}
func (nopMetrics) RecordSignature(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordStage(models.StageMetrics) {}
