package report

import (
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/client"
)

type Latency struct {
	Avg        float64 `json:"avg"`
	Iterations int     `json:"num"`
	DispAvg    string  `json:"dispavg"`
}

func NewLatency(res client.LatencyResult) *Latency {
	return &Latency{
		Avg:        res.Average.Seconds(),
		Iterations: res.Iterations,
		DispAvg:    FormatLatency(res.Average),
	}
}

type Transfer struct {
	Size int64   `json:"size"`
	Time float64 `json:"time"`
	Rate
}

func NewTransfer(res client.TransferResult, expectedMbits float64) *Transfer {
	return &Transfer{
		Size: res.Size,
		Time: res.Time.Seconds(),
		Rate: ComputeRate(res.Size, res.Time, expectedMbits),
	}
}

type ServerStats struct {
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
}

// Result is the JSON document printed by "speedtest tcp" and stored in the
// history. Phases that were skipped or never reached are omitted.
type Result struct {
	Success bool `json:"success"`

	Host      string    `json:"host"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"startedat"`
	Version   string    `json:"version,omitempty"`

	Latency     *Latency     `json:"latency,omitempty"`
	Download    *Transfer    `json:"download,omitempty"`
	Upload      *Transfer    `json:"upload,omitempty"`
	ServerStats *ServerStats `json:"serverstats,omitempty"`

	Phase     string `json:"phase,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorcode,omitempty"`
}
