package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey_SameInputsSameKey(t *testing.T) {
	k1 := Key("css", []byte("a{color:red}"))
	k2 := Key("css", []byte("a{color:red}"))
	if k1 != k2 {
		t.Errorf("expected identical keys, got %q and %q", k1, k2)
	}
}

func TestKey_DifferentFormatDifferentKey(t *testing.T) {
	k1 := Key("css", []byte("a{color:red}"))
	k2 := Key("json", []byte("a{color:red}"))
	if k1 == k2 {
		t.Errorf("expected different keys for different formats, both got %q", k1)
	}
}

func TestKey_DifferentInputDifferentKey(t *testing.T) {
	k1 := Key("css", []byte("a{color:red}"))
	k2 := Key("css", []byte("a{color:blue}"))
	if k1 == k2 {
		t.Errorf("expected different keys for different input, both got %q", k1)
	}
}

func TestCache_MissWhenEmpty(t *testing.T) {
	c, err := New(100, time.Hour, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := c.Get(Key("css", []byte("a{}"))); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestCache_SetThenGet(t *testing.T) {
	c, err := New(100, time.Hour, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("css", []byte("a{color:red}"))
	c.Set(key, []byte("a{color:red}"))

	out, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(out) != "a{color:red}" {
		t.Errorf("got %q", out)
	}
}

func TestCache_DisabledIsAlwaysMiss(t *testing.T) {
	c, err := New(100, time.Hour, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("css", []byte("a{}"))
	c.Set(key, []byte("a{}"))

	if _, ok := c.Get(key); ok {
		t.Error("expected disabled cache to always miss")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c, err := New(2, time.Hour, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keys := []string{Key("css", []byte("1")), Key("css", []byte("2")), Key("css", []byte("3"))}
	for _, k := range keys {
		c.Set(k, []byte("out"))
	}

	if _, ok := c.Get(keys[0]); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get(keys[2]); !ok {
		t.Error("expected newest entry to still be cached")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c, err := New(100, 50*time.Millisecond, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("css", []byte("a{}"))
	c.Set(key, []byte("a{}"))

	if _, ok := c.Get(key); !ok {
		t.Error("expected hit before TTL expiry")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestCache_StartPurgerStopsOnCancel(t *testing.T) {
	c, err := New(100, time.Hour, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := c.StartPurger(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected purger goroutine to exit after context cancellation")
	}
}
