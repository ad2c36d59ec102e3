package bitpack

import "testing"

func TestPutU40RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		val  uint64
	}{
		{"zero", 0},
		{"one", 1},
		{"max", InvalidIndex},
		{"mid", 0x1234567890},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWriter(1, 5)
			w.Reserve(5)
			w.PutU40(0, c.val)
			got := ReadU40(w.Bytes(), 0)
			if got != c.val&InvalidIndex {
				t.Fatalf("got %d, want %d", got, c.val&InvalidIndex)
			}
		})
	}
}

func TestPutUintCrossesByteBoundary(t *testing.T) {
	w := NewWriter(1, 2)
	w.Reserve(2)
	// 12-bit field starting at bit 4 of byte 0, spanning into byte 1.
	w.PutUint(0, 4, 12, 0xABC)
	b := w.Bytes()
	// low nibble of byte0 untouched (0), high nibble holds low 4 bits of 0xABC = 0xC
	if b[0] != 0xC0 {
		t.Fatalf("byte0 = %#x, want 0xC0", b[0])
	}
	if b[1] != 0xAB {
		t.Fatalf("byte1 = %#x, want 0xAB", b[1])
	}
}

func TestPutIntTruncation(t *testing.T) {
	w := NewWriter(1, 4)
	w.Reserve(4)
	w.PutInt(0, 0, 32, -1)
	if w.Bytes()[0] != 0xFF || w.Bytes()[3] != 0xFF {
		t.Fatalf("expected all bits set for -1, got %x", w.Bytes())
	}
}

func TestReserveGrows(t *testing.T) {
	w := NewWriter(0, 0)
	off1 := w.Reserve(5)
	off2 := w.Reserve(5)
	if off1 != 0 || off2 != 5 {
		t.Fatalf("offsets = %d,%d want 0,5", off1, off2)
	}
	if w.Len() != 10 {
		t.Fatalf("len = %d want 10", w.Len())
	}
}
