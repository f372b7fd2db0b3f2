package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestInMemory_GetSet verifies that Set stores values and Get retrieves them.
func TestInMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[string]()

	if err := c.Set(ctx, "weather:40.7128,-74.0060", "record", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "weather:40.7128,-74.0060")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != "record" {
		t.Errorf("Get() = %q, want %q", got, "record")
	}
}

// TestInMemory_Get_Miss verifies that Get returns ok=false for unknown keys.
func TestInMemory_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[string]()

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemory_Get_Expired verifies lazy eviction: expired entries are treated
// as absent and removed on access.
func TestInMemory_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[string]()

	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}

	c.mu.Lock()
	_, stillThere := c.data["k"]
	c.mu.Unlock()
	if stillThere {
		t.Error("expired entry should be deleted from the map on access")
	}
}

// TestInMemory_Set_Overwrite verifies that Set overwrites and resets expiry.
func TestInMemory_Set_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[int]()

	if err := c.Set(ctx, "k", 1, 5*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "k", 2, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	got, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true: second Set should reset expiry")
	}
	if got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

// TestInMemory_ConcurrentAccess exercises concurrent gets and sets. Run with
// -race to catch synchronization regressions.
func TestInMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[int]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Set(ctx, key, i, time.Minute)
		}()
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_, _, _ = c.Get(ctx, key)
		}()
	}
	wg.Wait()
}

// TestSanitizeKey verifies memcached key sanitization for queries with spaces.
func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"weather:40.7128,-74.0060", "weather:40.7128,-74.0060"},
		{"locations:new york", "locations:new_york"},
		{"locations:a\tb\nc", "locations:a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitizeKey(tt.in); got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
