package logs

import (
	"io"
	"os"
	"sync"

	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
)

var (
	initOnce sync.Once
	logger   *ui.Logger
)

// Init sets up the process logger. Logs go to stderr: the client prints its
// JSON result on stdout and must keep it parseable.
func Init() {
	initOnce.Do(func() {
		opts := ui.Options{
			Out:      os.Stderr,
			LogLevel: ui.LogLevelWarn,
			Plain:    !ui.IsTerminal(os.Stderr),
		}
		logger = ui.New(opts)
		logger.Debug("logs initialized with opts %v", opts)
	})
}

func L() *ui.Logger {
	Init()
	return logger
}

func SetDebugVerbosity(cnt int) {
	switch {
	case cnt <= 0:
		L().SetLogLevel(ui.LogLevelWarn)
	case cnt == 1:
		L().SetLogLevel(ui.LogLevelDebug)
	default:
		L().SetLogLevel(ui.LogLevelDebugVerbose)
	}
}

// SetQuiet hides everything below errors on the console (the -s flag).
func SetQuiet() {
	L().SetLogLevel(ui.LogLeverError)
}

func SetComponent(component string) {
	L().SetComponent(component)
}

func SetFullLogWriter(w io.Writer) {
	L().SetFullLogWriter(w)
}

func Banner(title string) {
	L().Banner(title)
}

func Infof(format string, args ...any) {
	L().Info(format, args...)
}

func InfofSilent(format string, args ...any) {
	L().InfoSilent(format, args...)
}

func Debugf(format string, args ...any) {
	L().Debug(format, args...)
}

func Warnf(format string, args ...any) {
	L().Warn(format, args...)
}

func Errorf(format string, args ...any) {
	L().Error(format, args...)
}

func PromptConfirm(text string, def bool) (bool, error) {
	return L().Confirm(text, def)
}

// Close closes the underlying log file, if any.
func Close() error {
	if logger != nil {
		return logger.Close()
	}
	return nil
}
