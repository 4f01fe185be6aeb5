package utils

import (
	"strings"
	"testing"
)

func TestAppendRandomHexExactLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 2, 7, 8192, 65535} {
		prefix := []byte("xx")
		out, err := AppendRandomHex(prefix, n)
		if err != nil {
			t.Fatalf("AppendRandomHex(%d): %v", n, err)
		}
		if len(out) != len(prefix)+n {
			t.Fatalf("AppendRandomHex(%d) len = %d, want %d", n, len(out), len(prefix)+n)
		}
		if string(out[:2]) != "xx" {
			t.Fatalf("prefix clobbered: %q", out[:2])
		}
		if strings.Trim(string(out[2:]), "0123456789abcdef") != "" {
			t.Fatalf("non-hex output for n=%d", n)
		}
	}
}

func TestRandomHexLength(t *testing.T) {
	t.Parallel()

	s, err := RandomHex(4096)
	if err != nil {
		t.Fatalf("RandomHex: %v", err)
	}
	if len(s) != 8192 {
		t.Fatalf("len = %d, want 8192", len(s))
	}
}

func TestRandomIntRange(t *testing.T) {
	t.Parallel()

	for range 200 {
		v, err := RandomIntRange(5001, 49151)
		if err != nil {
			t.Fatalf("RandomIntRange: %v", err)
		}
		if v < 5001 || v > 49151 {
			t.Fatalf("value %d out of range", v)
		}
	}
	if v, _ := RandomIntRange(10, 10); v != 10 {
		t.Fatalf("degenerate range = %d", v)
	}
}
