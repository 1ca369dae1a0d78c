package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Listener.BindAddr != "0.0.0.0:8001" || c.Listener.Topology != "arb" {
		t.Fatalf("listener defaults = %+v", c.Listener)
	}
	if c.Listener.ChannelCapacity != 2000 || c.Listener.MetricsInterval != 6*time.Second {
		t.Fatalf("channel defaults = %+v", c.Listener)
	}
	if c.Capture.Path != "packets.json" || c.Capture.Threshold != 100000 {
		t.Fatalf("capture defaults = %+v", c.Capture)
	}
	if c.Arb.MinPools != 2 || c.Kafka.Compression != "lz4" {
		t.Fatalf("strategy defaults = %+v %+v", c.Arb, c.Kafka)
	}
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
listener:
  bind_addr: 127.0.0.1:9000
  topology: all
benchmark:
  enabled: true
server:
  enabled: true
  port: 0
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Listener.BindAddr != "127.0.0.1:9000" || c.Listener.Topology != "all" || !c.Benchmark.Enabled {
		t.Fatalf("explicit values lost: %+v", c.Listener)
	}
	if c.Server.Port != 0 {
		t.Fatalf("explicit zero port replaced by default: %d", c.Server.Port)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"topology":  "listener:\n  topology: sideways\n",
		"bind":      "listener:\n  bind_addr: nowhere\n",
		"webhook":   "pump:\n  webhook_url: not a url\n",
		"kafka":     "kafka:\n  enabled: true\n",
		"log level": "log:\n  level: loud\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listener:\n  topology: arb\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TOPOLOGY", "PUMP")
	t.Setenv("WEBHOOK_URL", "http://127.0.0.1:3000/hook")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Listener.Topology != "pump" || c.Pump.WebhookURL != "http://127.0.0.1:3000/hook" {
		t.Fatalf("env overrides = %+v %+v", c.Listener, c.Pump)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka env = %+v", c.Kafka)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
