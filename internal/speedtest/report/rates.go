// Package report turns raw phase measurements into the rates and display
// strings of a speed test result, and drives a full test run.
package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// overheadFactor discounts TCP/IP framing: a link that delivers 90% of its
// nominal rate as payload is running at 100%.
const overheadFactor = 0.9

// Rate is the throughput of one transfer phase.
type Rate struct {
	RawRate  float64 `json:"rawrate"`
	MbitRate float64 `json:"mbitrate"`
	Percent  float64 `json:"percent"`
	DispRate string  `json:"disprate"`
}

// ComputeRate derives the rate of size bytes moved in d. Percent is relative
// to expectedMbits and left at zero when no expectation was given.
func ComputeRate(size int64, d time.Duration, expectedMbits float64) Rate {
	var r Rate
	if secs := d.Seconds(); secs > 0 {
		r.RawRate = float64(size) / secs
	}
	r.MbitRate = r.RawRate * 8 / 1000000 / overheadFactor

	r.DispRate = humanize.FormatFloat("#,###.#", r.MbitRate) + " Mbits / sec"
	if expectedMbits > 0 {
		r.Percent = r.MbitRate * 100 / expectedMbits
		r.DispRate += fmt.Sprintf(" (%d%% of expected)", int64(r.Percent))
	}
	return r
}

// FormatLatency renders an average round trip as whole milliseconds.
func FormatLatency(avg time.Duration) string {
	ms := float64(avg) / float64(time.Millisecond)
	return humanize.FormatFloat("#,###.", ms) + " ms"
}

// ExpectedBytesPerSec is the payload rate a link of mbits should sustain.
func ExpectedBytesPerSec(mbits float64) int64 {
	return int64(mbits * overheadFactor * 1000000 / 8)
}
