package compiler

import (
	"errors"
	"testing"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"input io", wrapInputIO(errors.New("disk gone")), 2},
		{"corrupt", wrapCorrupt(errors.New("bad varint")), 3},
		{"output io", wrapOutputIO(errors.New("disk full")), 4},
		{"plain usage error", errors.New("missing flag"), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExitCode(c.err); got != c.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestCheckIndexOverflow(t *testing.T) {
	if err := checkIndexOverflow(0, "nodes"); err != nil {
		t.Fatalf("unexpected error at count 0: %v", err)
	}
	if err := checkIndexOverflow(1<<40-1, "nodes"); err == nil {
		t.Fatal("expected overflow error at 2^40-1")
	} else if !errors.Is(err, ErrIndexOverflow) {
		t.Fatalf("expected ErrIndexOverflow, got %v", err)
	}
	if ExitCode(checkIndexOverflow(1<<40-1, "nodes")) != 3 {
		t.Fatal("index overflow must map to exit code 3")
	}
}
