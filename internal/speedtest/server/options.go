package server

import (
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/filler"
)

// RandomPort in Options.Ports is replaced by one port drawn from
// [RandomPortMin, RandomPortMax] at startup.
const RandomPort = -1

const (
	DefaultHighWaterMark  = 65536
	DefaultReadChunkSize  = 65536
	DefaultSignalInterval = 3 * time.Second
	DefaultFlushTimeout   = 500 * time.Millisecond
	DefaultMaxLineLength  = 1 << 20 // 1MB
	DefaultRandomPortMin  = 5001
	DefaultRandomPortMax  = 49151
)

// DefaultPorts is the candidate list tried for each address family.
var DefaultPorts = []int{80, 443, 8080, RandomPort, 0}

// Options configures a Server. Zero values are replaced by the defaults
// above, except the bind addresses: an empty BindV4/BindV6 disables that family.
type Options struct {
	BindV4 string
	BindV6 string

	Ports         []int
	RandomPortMin int
	RandomPortMax int

	// ListenerConfigPath receives the bound ports. Empty skips the write.
	ListenerConfigPath string

	// StopMarker and ReloadMarker are polled every SignalInterval.
	// Empty disables the corresponding check.
	StopMarker     string
	ReloadMarker   string
	SignalInterval time.Duration

	// HighWaterMark caps the queued-but-unsent bytes of a connection.
	HighWaterMark int
	ReadChunkSize int
	// FlushTimeout bounds a single socket write so a stalled peer cannot
	// hold its worker past the next filler/deadline check.
	FlushTimeout  time.Duration
	MaxLineLength int

	Clock  protocol.Clock
	Filler filler.Source
}

// DefaultOptions listens on all interfaces of both families.
func DefaultOptions() Options {
	return Options{
		BindV4: "0.0.0.0",
		BindV6: "::",
	}
}

func (o Options) withDefaults() Options {
	if o.Ports == nil {
		o.Ports = append([]int(nil), DefaultPorts...)
	}
	if o.RandomPortMin <= 0 {
		o.RandomPortMin = DefaultRandomPortMin
	}
	if o.RandomPortMax <= 0 {
		o.RandomPortMax = DefaultRandomPortMax
	}
	if o.SignalInterval <= 0 {
		o.SignalInterval = DefaultSignalInterval
	}
	if o.HighWaterMark <= 0 {
		o.HighWaterMark = DefaultHighWaterMark
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = DefaultReadChunkSize
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = DefaultFlushTimeout
	}
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = DefaultMaxLineLength
	}
	if o.Clock == nil {
		o.Clock = protocol.SystemClock()
	}
	if o.Filler == nil {
		o.Filler = filler.Random()
	}
	return o
}
