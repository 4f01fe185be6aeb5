package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

func RandomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AppendRandomHex appends exactly n lowercase hex digits to dst.
func AppendRandomHex(dst []byte, n int) ([]byte, error) {
	if n <= 0 {
		return dst, nil
	}
	raw := make([]byte, (n+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return dst, err
	}
	start := len(dst)
	dst = append(dst, make([]byte, len(raw)*2)...)
	hex.Encode(dst[start:], raw)
	return dst[:start+n], nil
}

// RandomIntRange returns a uniformly distributed int in [lo, hi].
func RandomIntRange(lo, hi int) (int, error) {
	if hi <= lo {
		return lo, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return 0, err
	}
	return lo + int(v.Int64()), nil
}
