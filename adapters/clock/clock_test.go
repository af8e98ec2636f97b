package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/calloutlint/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
}

func TestFake(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	for i := 0; i < 3; i++ {
		if got := c.Now(); !got.Equal(start) {
			t.Fatalf("call %d: Now() = %v, want %v", i, got, start)
		}
	}

	c.Advance(time.Hour)
	if got := c.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("after Advance: Now() = %v, want %v", got, start.Add(time.Hour))
	}

	c.Set(start)
	c.Tick(10 * time.Millisecond)
	first, second := c.Now(), c.Now()
	if d := second.Sub(first); d != 10*time.Millisecond {
		t.Errorf("Tick step = %v, want 10ms", d)
	}
}
