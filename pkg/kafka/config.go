package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// BatchConfig controls how the writer groups signature records before a
// broker round trip.
type BatchConfig struct {
	Size   int
	Bytes  int
	Linger time.Duration
}

// ProducerConfig holds the writer settings NewProducer applies.
type ProducerConfig struct {
	Brokers      []string
	Compression  string
	RequiredAcks int
	MaxAttempts  int
	Batch        BatchConfig
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Async        bool
	// KeyedPartitioning sends records sharing a key to one partition, so
	// every sighting of a signature lands in order.
	KeyedPartitioning bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Compression:  "lz4",
		RequiredAcks: 1,
		MaxAttempts:  3,
		Batch: BatchConfig{
			Size:   100,
			Bytes:  1 << 20,
			Linger: 50 * time.Millisecond,
		},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	return nil
}

func (c *ProducerConfig) balancer() kafka.Balancer {
	if c.KeyedPartitioning {
		return &kafka.Hash{}
	}
	return &kafka.LeastBytes{}
}

var compressionCodecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// WithBrokers sets the bootstrap brokers.
func WithBrokers(brokers ...string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression picks one of gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

// WithDelivery sets acknowledgements (-1 waits for all replicas) and how
// many times the writer retries a failed batch.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithBatching overrides the batch limits. Zero fields keep their default.
func WithBatching(b BatchConfig) ProducerOption {
	return func(c *ProducerConfig) {
		if b.Size > 0 {
			c.Batch.Size = b.Size
		}
		if b.Bytes > 0 {
			c.Batch.Bytes = b.Bytes
		}
		if b.Linger > 0 {
			c.Batch.Linger = b.Linger
		}
	}
}

// WithTimeouts sets writer read/write timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync makes writes return before the broker acknowledges them.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithKeyedPartitioning enables hash partitioning on the record key.
func WithKeyedPartitioning() ProducerOption {
	return func(c *ProducerConfig) { c.KeyedPartitioning = true }
}
