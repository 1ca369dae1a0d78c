package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSONSendsJSON(t *testing.T) {
	var gotType, gotUA, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotType, gotUA, gotBody = r.Header.Get("Content-Type"), r.Header.Get("User-Agent"), string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient().PostJSON(context.Background(), srv.URL, map[string][]string{"signatures": {"a"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if gotType != "application/json" || gotUA != "shredpull" || gotBody != `{"signatures":["a"]}` {
		t.Fatalf("type=%q ua=%q body=%q", gotType, gotUA, gotBody)
	}
}

func TestPostJSONReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(WithUserAgent("test")).PostJSON(context.Background(), srv.URL, struct{}{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusTooManyRequests || se.Body != "slow down" {
		t.Fatalf("status error = %+v", se)
	}
}
