package utils

import (
	"context"
	"testing"
	"time"
)

func TestRandomPacerBounds(t *testing.T) {
	p := NewRandomPacer(5*time.Millisecond, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < 5*time.Millisecond {
			t.Errorf("Wait() returned after %v, want at least 5ms", elapsed)
		}
	}
}

func TestRandomPacerCancellation(t *testing.T) {
	p := NewRandomPacer(10*time.Second, 20*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx)
	if err == nil {
		t.Fatal("Wait() with cancelled context should return an error")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not honor cancellation promptly")
	}
}

func TestRandomPacerDefaults(t *testing.T) {
	p := NewRandomPacer(0, 0)
	if p.Min != 2*time.Second || p.Max != 4*time.Second {
		t.Errorf("NewRandomPacer(0, 0) = [%v, %v], want [2s, 4s]", p.Min, p.Max)
	}

	p = NewRandomPacer(5*time.Second, time.Second)
	if p.Min != 2*time.Second || p.Max != 4*time.Second {
		t.Errorf("inverted bounds = [%v, %v], want [2s, 4s]", p.Min, p.Max)
	}
}

func TestRandomSuffix(t *testing.T) {
	s := RandomSuffix(4)
	if len(s) != 4 {
		t.Fatalf("RandomSuffix(4) length = %d, want 4", len(s))
	}
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			t.Errorf("RandomSuffix(4) contains non-alphanumeric character %q", c)
		}
	}
}
