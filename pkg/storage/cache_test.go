package storage

import (
	"testing"
	"time"
)

func TestCacheHitMiss(t *testing.T) {
	c := NewCache(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("hit on empty cache")
	}
	c.Set("k", "v")
	v, ok := c.Get("k")
	if !ok || v.(string) != "v" {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("counters wrong: %+v", stats)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetTTL("short", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatalf("expired entry served")
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("invalidated key served")
	}
	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("cleared key served")
	}
	if c.Stats().Entries != 0 {
		t.Fatalf("entries remain after clear")
	}
}

func TestCacheKeys(t *testing.T) {
	if ListKey("docs", "name", "asc") != "file_list:docs:name:asc" {
		t.Fatalf("list key format changed: %s", ListKey("docs", "name", "asc"))
	}
	a, b := VectorStoreKey("folder/a"), VectorStoreKey("folder/b")
	if a == b {
		t.Fatalf("vector store keys collide")
	}
}
