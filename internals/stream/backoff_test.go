package stream

import (
	"testing"
	"time"
)

func TestBackoffLinear(t *testing.T) {
	backoff := BackoffLinear(BackoffConfig{
		Base: 2000 * time.Millisecond,
		Max:  15000 * time.Millisecond,
	})

	want := []time.Duration{
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		6000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond,
	}
	for i, expected := range want {
		if got := backoff(i + 1); got != expected {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, expected, got)
		}
	}
	if got := backoff(8); got != 15000*time.Millisecond {
		t.Fatalf("expected cap 15s, got %v", got)
	}
	if got := backoff(100); got != 15000*time.Millisecond {
		t.Fatalf("expected cap 15s, got %v", got)
	}
}

func TestBackoffLinearDefaults(t *testing.T) {
	backoff := BackoffLinear(BackoffConfig{Base: 50 * time.Millisecond})
	if got := backoff(0); got != 0 {
		t.Fatalf("expected 0 for attempt <= 0, got %v", got)
	}
	if got := backoff(3); got != 150*time.Millisecond {
		t.Fatalf("expected 150ms with no cap, got %v", got)
	}

	zero := BackoffLinear(BackoffConfig{})
	if got := zero(5); got != 0 {
		t.Fatalf("expected 0 with zero base, got %v", got)
	}
}
