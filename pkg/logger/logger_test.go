package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFieldsRenderTyped(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "json", "").With(String("component", "listener"))

	l.Warn("drain timed out",
		Uint64("slot", 312000123),
		Duration("timeout", 1500*time.Millisecond),
		Bool("forced", true),
		Strings("strategies", []string{"arb", "sig"}),
		Error(errors.New("deadline exceeded")),
	)

	var ev map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"level":      "warn",
		"message":    "drain timed out",
		"component":  "listener",
		"slot":       float64(312000123),
		"timeout":    float64(1500),
		"forced":     true,
		"strategies": "arb, sig",
		"error":      "deadline exceeded",
	}
	for k, v := range want {
		if ev[k] != v {
			t.Errorf("%s = %v, want %v", k, ev[k], v)
		}
	}
	if _, ok := ev["caller"]; !ok {
		t.Errorf("caller missing")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}
