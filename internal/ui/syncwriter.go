package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SyncWriter wraps an *os.File and periodically syncs it to disk, so a
// supervisor tailing the server log sees lines without an fsync per write.
type SyncWriter struct {
	f        *os.File
	mu       sync.Mutex
	dirty    bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

// NewSyncWriter creates a new SyncWriter that syncs at the given interval.
func NewSyncWriter(f *os.File, interval time.Duration) *SyncWriter {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	sw := &SyncWriter{
		f:        f,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		interval: interval,
	}
	go sw.syncLoop()
	return sw
}

// OpenLogFile opens (appending) the log file at path and wraps it so every
// line is timestamped and the file is synced periodically.
func OpenLogFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewTimestampWriter(NewSyncWriter(f, 200*time.Millisecond)), nil
}

func (sw *SyncWriter) syncLoop() {
	defer close(sw.doneCh)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = sw.Sync()
		case <-sw.stopCh:
			_ = sw.Sync()
			return
		}
	}
}

func (sw *SyncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	n, err := sw.f.Write(p)
	if n > 0 {
		sw.dirty = true
	}
	return n, err
}

// Sync forces an immediate sync to disk.
func (sw *SyncWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.dirty {
		return nil
	}
	sw.dirty = false
	return sw.f.Sync()
}

// Close stops the sync loop and closes the underlying file.
func (sw *SyncWriter) Close() error {
	close(sw.stopCh)
	<-sw.doneCh
	return sw.f.Close()
}

var _ io.WriteCloser = (*SyncWriter)(nil)

// TimestampWriter prepends a timestamp to each write. The logger writes one
// line per call, so every line gets its own stamp.
type TimestampWriter struct {
	w io.Writer
}

func NewTimestampWriter(w io.Writer) *TimestampWriter {
	return &TimestampWriter{w: w}
}

func (tw *TimestampWriter) Write(p []byte) (int, error) {
	timestamp := time.Now().Format("2006-01-02T15:04:05.000")
	if _, err := tw.w.Write([]byte("[" + timestamp + "] " + string(p))); err != nil {
		return 0, err
	}
	// Report the caller's length, not the prefixed one.
	return len(p), nil
}

// Sync forwards sync to underlying writer if it supports it.
func (tw *TimestampWriter) Sync() error {
	if s, ok := tw.w.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// Close forwards close to underlying writer if it supports it.
func (tw *TimestampWriter) Close() error {
	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
