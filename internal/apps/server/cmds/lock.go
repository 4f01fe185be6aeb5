package speedtestserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var errAlreadyRunning = errors.New("speedtest server already running")

// acquirePIDLock creates lockPath holding our pid. A lock left by a dead
// process is reclaimed. The returned release removes the file if it still
// holds our pid.
func acquirePIDLock(lockPath string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	pid := os.Getpid()
	pidStr := []byte(strconv.Itoa(pid) + "\n")
	release = func() {
		if owner, ok := readPID(lockPath); ok && owner == pid {
			_ = os.Remove(lockPath)
		}
	}

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := f.Write(pidStr); werr != nil {
				f.Close()
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("write pid to lock: %w", werr)
			}
			_ = f.Close()
			return release, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		existingPID, ok := readPID(lockPath)
		if !ok {
			// unreadable or garbage: stale
			_ = os.Remove(lockPath)
			continue
		}

		if existingPID == pid || !processAlive(existingPID) {
			_ = os.Remove(lockPath)
			continue
		}

		return nil, fmt.Errorf("%w (pid %d)", errAlreadyRunning, existingPID)
	}
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	// EPERM: alive but owned by someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}
