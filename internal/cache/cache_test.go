package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string](30 * time.Minute)

	c.Set("a", "alpha")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for fresh entry")
	}
	if got != "alpha" {
		t.Errorf("Get() = %q, want %q", got, "alpha")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New[int](10 * time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 42)
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}

	c.now = func() time.Time { return base.Add(9 * time.Minute) }
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired early")
	}

	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss at exact TTL boundary")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after eviction, want 0", c.Size())
	}
}

func TestCache_SetResetsExpiry(t *testing.T) {
	c := New[int](10 * time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", 1)

	c.now = func() time.Time { return base.Add(8 * time.Minute) }
	c.Set("k", 2)

	c.now = func() time.Time { return base.Add(15 * time.Minute) }
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after re-set extended the expiry")
	}
	if got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Clear")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() != 4 {
		t.Errorf("Size() = %d, want 4", c.Size())
	}
}
