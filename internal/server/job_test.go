package server

import (
	"context"
	"testing"
	"time"

	"github.com/minifyco/minify/internal/cache"
	"github.com/minifyco/minify/internal/metrics"
)

func newTestMinifier(t *testing.T) *Minifier {
	t.Helper()
	c, err := cache.New(16, time.Minute, true)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return NewMinifier(c, nil, metrics.NewCollector())
}

func TestMinifier_Run_CSS(t *testing.T) {
	m := newTestMinifier(t)

	result, rep := m.Run(context.Background(), "css", []byte("a   {  color: red;  }"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if result.InputBytes == 0 || result.OutputBytes == 0 {
		t.Fatalf("expected non-zero byte counts, got %+v", result)
	}
	if result.CacheHit {
		t.Fatal("first run should not be a cache hit")
	}
}

func TestMinifier_Run_CacheHitOnSecondCall(t *testing.T) {
	m := newTestMinifier(t)
	input := []byte("a   {  color: red;  }")

	if _, rep := m.Run(context.Background(), "css", input); rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	result, rep := m.Run(context.Background(), "css", input)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !result.CacheHit {
		t.Fatal("second identical run should be a cache hit")
	}
}

func TestMinifier_Run_UnknownFormat(t *testing.T) {
	m := newTestMinifier(t)

	_, rep := m.Run(context.Background(), "yaml", []byte("a: b"))
	if rep == nil {
		t.Fatal("expected an error for unknown format")
	}
}

func TestMinifier_Run_RecordsMetrics(t *testing.T) {
	c, err := cache.New(16, time.Minute, true)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	collector := metrics.NewCollector()
	m := NewMinifier(c, nil, collector)

	if _, rep := m.Run(context.Background(), "json", []byte(`{  "a" :  1  }`)); rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	stats := collector.Stats()
	if stats.TotalJobs != 1 {
		t.Fatalf("expected 1 recorded job, got %d", stats.TotalJobs)
	}
}
