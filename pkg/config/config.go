package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"shredpull.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Listener struct {
		BindAddr        string        `yaml:"bind_addr" default:"0.0.0.0:8001" validate:"required,hostname_port"`
		Topology        string        `yaml:"topology" default:"arb" validate:"oneof=arb pump graduates grads all"`
		ChannelCapacity int           `yaml:"channel_capacity" default:"2000" validate:"gt=0"`
		MetricsInterval time.Duration `yaml:"metrics_interval" default:"6s" validate:"gt=0"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
		MaxSlotLag      uint64        `yaml:"max_slot_lag" default:"64"`
	} `yaml:"listener"`
	Benchmark struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"benchmark"`
	Pump struct {
		WebhookURL     string        `yaml:"webhook_url" validate:"omitempty,url"`
		WebhookTimeout time.Duration `yaml:"webhook_timeout" default:"3s"`
		WebhookQueue   int           `yaml:"webhook_queue" default:"256" validate:"gt=0"`
		// WebhookRate caps deliveries per second; zero disables the cap.
		WebhookRate  float64 `yaml:"webhook_rate" validate:"gte=0"`
		WebhookBurst int     `yaml:"webhook_burst" default:"5" validate:"gte=1"`
	} `yaml:"pump"`
	Arb struct {
		// Static pools are used when Redis is disabled.
		Pools    []string `yaml:"pools"`
		PoolsKey string   `yaml:"pools_key" default:"pools"`
		MinPools int      `yaml:"min_pools" default:"2" validate:"gte=1"`
	} `yaml:"arb"`
	Capture struct {
		// Enabled replaces the strategies run with a raw packet capture.
		Enabled      bool          `yaml:"enabled"`
		Path         string        `yaml:"path" default:"packets.json"`
		Threshold    int           `yaml:"threshold" default:"100000" validate:"gt=0"`
		PollInterval time.Duration `yaml:"poll_interval" default:"1s" validate:"gt=0"`
	} `yaml:"capture"`
	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"9100" validate:"gte=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	} `yaml:"server"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic        string   `yaml:"topic" default:"shredpull.signatures"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"lz4" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"shredpull"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes over the struct defaults and validates.
// Defaults go first so that explicit zero values in the file win.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("BIND_ADDR"); v != "" {
		c.Listener.BindAddr = v
	}
	if v := getenv("TOPOLOGY"); v != "" {
		c.Listener.Topology = strings.ToLower(v)
	}
	if v := getenv("WEBHOOK_URL"); v != "" {
		c.Pump.WebhookURL = v
	}
	if v := getenv("BENCHMARK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Benchmark.Enabled = b
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	return nil
}
