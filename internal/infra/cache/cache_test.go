package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/fintrack-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Stop()

	c.Set("summary:u1:2025-06", "value1")
	val, ok := c.Get("summary:u1:2025-06")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Stop()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Stop()

	c.Set("summary:u1:2025-05", 1)
	c.Set("summary:u1:2025-06", 2)
	c.Set("summary:u2:2025-06", 3)

	c.DeletePrefix("summary:u1:")

	if _, ok := c.Get("summary:u1:2025-05"); ok {
		t.Error("expected u1 May entry to be dropped")
	}
	if _, ok := c.Get("summary:u1:2025-06"); ok {
		t.Error("expected u1 June entry to be dropped")
	}
	if v, ok := c.Get("summary:u2:2025-06"); !ok || v != 3 {
		t.Errorf("expected u2 entry to survive, got %v %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := cache.New[int](time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestCache_SetIfGeneration(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Stop()

	gen := c.Generation("summary:u1:")
	c.DeletePrefix("summary:u1:")

	if c.SetIfGeneration("summary:u1:2025-06", "summary:u1:", gen, 1) {
		t.Fatal("expected fill from an older generation to be rejected")
	}
	if _, ok := c.Get("summary:u1:2025-06"); ok {
		t.Fatal("expected no entry after rejected fill")
	}

	if !c.SetIfGeneration("summary:u2:2025-06", "summary:u2:", c.Generation("summary:u2:"), 2) {
		t.Fatal("expected untouched prefix to accept the fill")
	}
	if !c.SetIfGeneration("summary:u1:2025-06", "summary:u1:", c.Generation("summary:u1:"), 3) {
		t.Fatal("expected fill at the current generation to be stored")
	}
	if v, ok := c.Get("summary:u1:2025-06"); !ok || v != 3 {
		t.Errorf("expected 3, got %v %v", v, ok)
	}
}
