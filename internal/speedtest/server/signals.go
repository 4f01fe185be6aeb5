package server

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
)

var (
	ErrStopRequested   = errors.New("stop requested")
	ErrReloadRequested = errors.New("reload requested")
)

// SignalWatcher polls the stop and reload marker files. Reload is a plain
// stop: the supervisor that started the server is expected to start it again.
type SignalWatcher struct {
	StopMarker   string
	ReloadMarker string
	Interval     time.Duration
}

// Check looks at the markers once. The stop marker is left in place; the
// reload marker is removed before ErrReloadRequested is returned.
func (w SignalWatcher) Check() error {
	if w.StopMarker != "" && fileExists(w.StopMarker) {
		logs.Infof("Stop requested.")
		return ErrStopRequested
	}
	if w.ReloadMarker != "" && fileExists(w.ReloadMarker) {
		logs.Infof("Reload config requested.")
		if err := os.Remove(w.ReloadMarker); err != nil && !os.IsNotExist(err) {
			logs.Warnf("remove reload marker: %v", err)
		}
		return ErrReloadRequested
	}
	return nil
}

// Watch checks the markers every Interval until one is found or ctx ends.
// It returns the marker's error, or nil when ctx ended first.
func (w SignalWatcher) Watch(ctx context.Context) error {
	if w.StopMarker == "" && w.ReloadMarker == "" {
		<-ctx.Done()
		return nil
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultSignalInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Check(); err != nil {
				return err
			}
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
