package state

import (
	"testing"
)

func TestIDPoolSequential(t *testing.T) {
	p := NewIDPool(3)
	for want := uint16(1); want <= 3; want++ {
		id, ok := p.Acquire()
		if !ok {
			t.Fatalf("Acquire() failed at %d", want)
		}
		if id != want {
			t.Errorf("Acquire() = %d, want %d", id, want)
		}
	}
	if _, ok := p.Acquire(); ok {
		t.Error("Acquire() succeeded on exhausted pool")
	}
}

func TestIDPoolRecycle(t *testing.T) {
	p := NewIDPool(10)
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	p.Release(a)
	p.Release(b)

	// most recently released comes back first
	id, ok := p.Acquire()
	if !ok || id != b {
		t.Errorf("Acquire() after release = %d, want %d", id, b)
	}
	id, ok = p.Acquire()
	if !ok || id != a {
		t.Errorf("Acquire() after release = %d, want %d", id, a)
	}
}

func TestIDPoolRemaining(t *testing.T) {
	p := NewIDPool(5)
	if got := p.Remaining(); got != 5 {
		t.Fatalf("Remaining() = %d, want 5", got)
	}
	a, _ := p.Acquire()
	p.Acquire()
	if got := p.Remaining(); got != 3 {
		t.Errorf("Remaining() after two acquires = %d, want 3", got)
	}
	p.Release(a)
	if got := p.Remaining(); got != 4 {
		t.Errorf("Remaining() after release = %d, want 4", got)
	}
}

func TestIDPoolSetLimit(t *testing.T) {
	p := NewIDPool(2)
	p.Acquire()
	p.Acquire()
	if _, ok := p.Acquire(); ok {
		t.Fatal("Acquire() succeeded past limit")
	}

	p.SetLimit(1, true) // grow by one
	if id, ok := p.Acquire(); !ok || id != 3 {
		t.Errorf("Acquire() after grow = %d, %v, want 3, true", id, ok)
	}

	p.SetLimit(1, false) // shrink below what is out
	if _, ok := p.Acquire(); ok {
		t.Error("Acquire() succeeded on shrunken pool")
	}
	if got := p.Remaining(); got != 0 {
		t.Errorf("Remaining() on shrunken pool = %d, want 0", got)
	}
}

func TestIDPoolUnbounded(t *testing.T) {
	p := NewIDPool(0)
	id, ok := p.Acquire()
	if !ok || id != 1 {
		t.Fatalf("Acquire() = %d, %v, want 1, true", id, ok)
	}
	if got := p.Remaining(); got != 65534 {
		t.Errorf("Remaining() = %d, want 65534", got)
	}
}
