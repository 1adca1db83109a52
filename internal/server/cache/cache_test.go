package cache

import (
	"sync"
	"testing"
	"time"
)

// TestAppend tests bounded list storage.
func TestAppend(t *testing.T) {
	c := New(time.Minute, time.Minute)

	for i := 1; i <= 5; i++ {
		Append(c, "replay:alice", i, 3)
	}

	got := List[int](c, "replay:alice")
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	// the returned slice is a copy
	got[0] = 99
	if List[int](c, "replay:alice")[0] != 3 {
		t.Error("List returned shared storage")
	}

	if List[int](c, "replay:bob") != nil {
		t.Error("expected nil list for unknown key")
	}
	if List[string](c, "replay:alice") != nil {
		t.Error("expected nil list for mismatched element type")
	}
}

// TestAppend_Expiry tests that lists expire with the TTL.
func TestAppend_Expiry(t *testing.T) {
	c := New(20*time.Millisecond, 10*time.Millisecond)
	Append(c, "k", "v", 0)

	time.Sleep(50 * time.Millisecond)
	if got := List[string](c, "k"); len(got) != 0 {
		t.Errorf("expected expired list, got %v", got)
	}
}

// TestAppend_Concurrent tests concurrent appends lose nothing.
func TestAppend_Concurrent(t *testing.T) {
	c := New(time.Minute, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Append(c, "k", i, 0)
		}(i)
	}
	wg.Wait()

	if n := len(List[int](c, "k")); n != 50 {
		t.Errorf("expected 50 entries, got %d", n)
	}
}
