package ui

import (
	"io"
	"os"

	"github.com/moby/term"
)

// IsTerminal reports whether w is an *os.File attached to a TTY.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	_, isTerm := term.GetFdInfo(f)
	return isTerm
}
