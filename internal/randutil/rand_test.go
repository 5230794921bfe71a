package randutil

import "testing"

func TestNewDeterministic(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 16; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("same seed diverged at draw %d: %d vs %d", i, x, y)
		}
	}
}

func TestNewFromString(t *testing.T) {
	a := NewFromString("session-abc")
	b := NewFromString("session-abc")
	if a.Uint64() != b.Uint64() {
		t.Error("equal strings produced different sequences")
	}

	c := NewFromString("session-abd")
	d := NewFromString("session-abc")
	d.Uint64()
	if c.Uint64() == d.Uint64() {
		t.Error("distinct strings produced identical draws")
	}
}
