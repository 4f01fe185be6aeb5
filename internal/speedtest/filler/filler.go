// Package filler produces the meaningless hex bytes that occupy bandwidth
// during a download test.
package filler

import (
	"fmt"

	"github.com/cubiclesoft/network-speedtest-cli/internal/utils"
)

//go:generate mockgen -source=filler.go -destination=mocks/filler.go -package=mocks

// Source appends exactly n filler bytes to dst.
type Source interface {
	AppendHex(dst []byte, n int) ([]byte, error)
}

type randomSource struct{}

// Random returns a Source backed by crypto/rand.
func Random() Source {
	return randomSource{}
}

func (randomSource) AppendHex(dst []byte, n int) ([]byte, error) {
	out, err := utils.AppendRandomHex(dst, n)
	if err != nil {
		return dst, fmt.Errorf("generate filler: %w", err)
	}
	return out, nil
}

// Pattern returns a deterministic Source that repeats "0123456789abcdef".
// Tests use it to make stream contents predictable.
func Pattern() Source {
	return patternSource{}
}

type patternSource struct{}

const hexDigits = "0123456789abcdef"

func (patternSource) AppendHex(dst []byte, n int) ([]byte, error) {
	for i := range n {
		dst = append(dst, hexDigits[i%len(hexDigits)])
	}
	return dst, nil
}
