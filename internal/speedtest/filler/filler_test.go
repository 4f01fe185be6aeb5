package filler

import (
	"strings"
	"testing"
)

func TestSourcesAppendExactly(t *testing.T) {
	t.Parallel()

	for name, src := range map[string]Source{"random": Random(), "pattern": Pattern()} {
		out, err := src.AppendHex([]byte("{}"), 333)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(out) != 335 {
			t.Fatalf("%s: len = %d, want 335", name, len(out))
		}
		if strings.ContainsRune(string(out[2:]), '\n') {
			t.Fatalf("%s: filler must never contain the terminator", name)
		}
	}
}

func TestPatternIsDeterministic(t *testing.T) {
	t.Parallel()

	out, _ := Pattern().AppendHex(nil, 18)
	if string(out) != "0123456789abcdef01" {
		t.Fatalf("got %q", out)
	}
}
