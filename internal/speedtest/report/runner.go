package report

import (
	"context"
	"fmt"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/client"
)

//go:generate mockgen -source=runner.go -destination=mocks/driver.go -package=mocks

// Driver is the part of *client.Client the runner needs.
type Driver interface {
	Connect(ctx context.Context, host string, port int) error
	Disconnect() error
	Stats() (client.Stats, error)
	RunLatencyTest(d time.Duration) (client.LatencyResult, error)
	RunDownloadTest(d time.Duration) (client.TransferResult, error)
	RunUploadTest(d time.Duration) (client.TransferResult, error)
}

const (
	PhaseConnect    = "connect"
	PhaseVerify     = "verify"
	PhaseLatency    = "latency"
	PhaseDownload   = "download"
	PhaseUpload     = "upload"
	PhaseFinalStats = "serverstats"
)

// Plan describes one run. A zero phase duration skips that phase.
type Plan struct {
	Host string
	Port int

	Latency  time.Duration
	Download time.Duration
	Upload   time.Duration

	ExpectedDownMbits float64
	ExpectedUpMbits   float64

	Version string
}

// PhaseError is the first failure of a run.
type PhaseError struct {
	Phase   string
	Message string
	Err     error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %v", e.Message, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Run connects, checks the server answers stats, runs the enabled phases in
// order and reads the final server stats. It stops at the first failure: the
// returned Result then holds the phases completed so far plus the error.
func Run(ctx context.Context, d Driver, plan Plan) (Result, error) {
	res := Result{
		Host:      plan.Host,
		Port:      plan.Port,
		StartedAt: time.Now().UTC(),
		Version:   plan.Version,
	}
	fail := func(phase, msg string, err error) (Result, error) {
		res.Success = false
		res.Phase = phase
		res.Error = msg
		res.ErrorCode = client.ErrorCode(err)
		return res, &PhaseError{Phase: phase, Message: msg, Err: err}
	}

	target := fmt.Sprintf("%s:%d", plan.Host, plan.Port)
	if err := d.Connect(ctx, plan.Host, plan.Port); err != nil {
		return fail(PhaseConnect, "Unable to connect to "+target+".", err)
	}
	defer d.Disconnect()

	if _, err := d.Stats(); err != nil {
		return fail(PhaseVerify, "The server at "+target+" is not a compatible TCP speed test server.", err)
	}

	if plan.Latency > 0 {
		logs.Infof("Testing network latency (%s)...", plan.Latency)
		lat, err := d.RunLatencyTest(plan.Latency)
		if err != nil {
			return fail(PhaseLatency, "The latency test failed.", err)
		}
		res.Latency = NewLatency(lat)
		logs.Infof("Average round-trip latency:  %s", res.Latency.DispAvg)
	}

	if plan.Download > 0 {
		logs.Infof("Testing download speed (%s)...", plan.Download)
		down, err := d.RunDownloadTest(plan.Download)
		if err != nil {
			return fail(PhaseDownload, "The download test failed.", err)
		}
		res.Download = NewTransfer(down, plan.ExpectedDownMbits)
		logs.Infof("Download speed test results:  %.2f sec, %s", res.Download.Time, res.Download.DispRate)
	}

	if plan.Upload > 0 {
		logs.Infof("Testing upload speed (%s)...", plan.Upload)
		up, err := d.RunUploadTest(plan.Upload)
		if err != nil {
			return fail(PhaseUpload, "The upload test failed.", err)
		}
		res.Upload = NewTransfer(up, plan.ExpectedUpMbits)
		logs.Infof("Upload speed test results:  %.2f sec, %s", res.Upload.Time, res.Upload.DispRate)
	}

	st, err := d.Stats()
	if err != nil {
		return fail(PhaseFinalStats, "Unable to retrieve final server stats.", err)
	}
	res.ServerStats = &ServerStats{Received: st.Received, Sent: st.Sent}
	res.Success = true
	return res, nil
}

var _ Driver = (*client.Client)(nil)
