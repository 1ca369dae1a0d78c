package usecase

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"ShredPull/internal/domain/models"
	"ShredPull/pkg/logger"

	"github.com/sugawarayuuta/sonnet"
)

const (
	DefaultCaptureThreshold = 100_000
	DefaultCapturePath      = "packets.json"
	DefaultCapturePoll      = time.Second
)

// PacketBuffer collects raw packets up to a fixed limit and refuses the
// rest, so a capture never holds more than limit packets.
type PacketBuffer struct {
	mu      sync.Mutex
	packets []models.Packet
	limit   int
}

func NewPacketBuffer(limit int) *PacketBuffer {
	if limit <= 0 {
		limit = DefaultCaptureThreshold
	}
	return &PacketBuffer{limit: limit}
}

// Accept appends packet, or returns ErrBufferFull once the limit is reached.
func (b *PacketBuffer) Accept(_ context.Context, packet models.Packet) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.packets) >= b.limit {
		return ErrBufferFull
	}
	b.packets = append(b.packets, packet)
	return nil
}

func (b *PacketBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.packets)
}

func (b *PacketBuffer) Limit() int { return b.limit }

func (b *PacketBuffer) Full() bool { return b.Len() >= b.limit }

// Packets returns the captured packets. The slice must not be modified.
func (b *PacketBuffer) Packets() []models.Packet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.packets[:len(b.packets):len(b.packets)]
}

// capturedPacket encodes as a JSON array of byte values instead of base64.
type capturedPacket []byte

func (p capturedPacket) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(p)*4)
	out = append(out, '[')
	for i, v := range p {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// EncodeCapture renders packets as a JSON array of byte arrays.
func EncodeCapture(packets []models.Packet) ([]byte, error) {
	rows := make([]capturedPacket, len(packets))
	for i, p := range packets {
		rows[i] = capturedPacket(p)
	}
	return sonnet.Marshal(rows)
}

// DecodeCapture parses a capture file back into packets.
func DecodeCapture(data []byte) ([]models.Packet, error) {
	var rows [][]uint16
	if err := sonnet.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Packet, len(rows))
	for i, row := range rows {
		p := make(models.Packet, len(row))
		for j, v := range row {
			if v > 0xff {
				return nil, strconv.ErrRange
			}
			p[j] = byte(v)
		}
		out[i] = p
	}
	return out, nil
}

// Capturer watches a PacketBuffer and dumps it to disk once it is full.
type Capturer struct {
	buf      *PacketBuffer
	path     string
	interval time.Duration
	logger   *logger.Logger
}

func NewCapturer(buf *PacketBuffer, path string, interval time.Duration, lg *logger.Logger) *Capturer {
	if path == "" {
		path = DefaultCapturePath
	}
	if interval <= 0 {
		interval = DefaultCapturePoll
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &Capturer{buf: buf, path: path, interval: interval, logger: lg}
}

// Supervise polls the buffer until it is full and then writes the file.
// It returns nil without writing if ctx ends first.
func (c *Capturer) Supervise(ctx context.Context) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("capture interrupted", logger.Int("count", c.buf.Len()))
			return nil
		case <-t.C:
		}
		n := c.buf.Len()
		c.logger.Info("Total packets received", logger.Int("count", n))
		if n >= c.buf.Limit() {
			c.logger.Info("Dumping packets to file", logger.String("path", c.path))
			return c.Dump()
		}
	}
}

// Dump writes the current buffer contents in a single write.
func (c *Capturer) Dump() error {
	data, err := EncodeCapture(c.buf.Packets())
	if err != nil {
		return &CaptureFileError{Path: c.path, Op: "encode", Err: err}
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return &CaptureFileError{Path: c.path, Op: "write", Err: err}
	}
	return nil
}
