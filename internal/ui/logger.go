package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// syncer is an interface for types that can sync to disk.
// Both *os.File and *SyncWriter implement this.
type syncer interface {
	Sync() error
}

type LogLevel int

const (
	LogLeverError LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelDebug
	LogLevelDebugVerbose
)

// Options configures the Logger.
type Options struct {
	// Out is where we print user-facing logs.
	// The client prints logs to stderr so stdout stays clean for JSON results.
	Out io.Writer

	// FullLogWriter, if non-nil, receives all logs in plain text.
	FullLogWriter io.Writer

	// LogLevel control amount of logs print to Out
	// greater the number => more logs coming out
	// error < info < warn < debug < debugVerbose
	LogLevel LogLevel

	// Component identifies the source of log messages (e.g., "client", "server").
	// If empty, no component tag is included in log output.
	Component string

	// Plain disables lipgloss styling. Set when Out is not a terminal.
	Plain bool
}

// Logger is the levelled stdout/stderr logger with an optional full log copy.
type Logger struct {
	out       io.Writer
	full      io.Writer
	mu        sync.Mutex
	style     styles
	component string

	logLevel LogLevel

	// fullLogBuffer holds log lines written before full log writer is set.
	// Once the full writer is set, this buffer is flushed and cleared.
	fullLogBuffer []string
}

type styles struct {
	logInfo  lipgloss.Style
	logWarn  lipgloss.Style
	logError lipgloss.Style
	banner   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		logInfo:  lipgloss.NewStyle(),
		logWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange-ish
		logError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		banner:   lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).Padding(0, 1).Margin(1, 0),
	}
}

func plainStyles() styles {
	return styles{
		logInfo:  lipgloss.NewStyle(),
		logWarn:  lipgloss.NewStyle(),
		logError: lipgloss.NewStyle(),
		banner:   lipgloss.NewStyle(),
	}
}

// New creates a new Logger.
func New(opts Options) *Logger {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	st := defaultStyles()
	if opts.Plain {
		st = plainStyles()
	}

	return &Logger{
		out:       opts.Out,
		full:      opts.FullLogWriter,
		style:     st,
		logLevel:  opts.LogLevel,
		component: opts.Component,
	}
}

func (l *Logger) SetComponent(component string) {
	l.mu.Lock()
	l.component = component
	l.mu.Unlock()
}

func (l *Logger) SetFullLogWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full != nil {
		timestamp := time.Now().Format("2006-01-02T15:04:05.000")
		errMsg := fmt.Sprintf("[%s] [ERR ] attempted to set full log writer when already set, ignoring", timestamp)
		fmt.Fprintln(l.out, l.style.logError.Render(errMsg))
		return
	}

	l.full = w

	for _, line := range l.fullLogBuffer {
		io.WriteString(l.full, line)
	}
	l.fullLogBuffer = nil
}

// writeFullLogLocked writes to the full log writer if set, otherwise buffers.
// Must be called with l.mu held.
func (l *Logger) writeFullLogLocked(line string) {
	if l.full != nil {
		io.WriteString(l.full, line)
		return
	}
	// Without a full log there is nothing to flush into later; cap the backlog.
	if len(l.fullLogBuffer) < 1000 {
		l.fullLogBuffer = append(l.fullLogBuffer, line)
	}
}

// Close closes the full log if it's an io.Closer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.full.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *Logger) Error(format string, args ...any) {
	l.printLog(false, "ERR ", l.style.logError, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	silent := l.level() < LogLevelInfo
	l.printLog(silent, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	silent := l.level() < LogLevelWarn
	l.printLog(silent, "WARN", l.style.logWarn, format, args...)
}

func (l *Logger) InfoSilent(format string, args ...any) {
	l.printLog(true, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if l.level() >= LogLevelDebug {
		l.printLog(false, "DEBG", l.style.logInfo, format, args...)
	}
}

func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	l.logLevel = logLevel
	l.mu.Unlock()
}

func (l *Logger) level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logLevel
}

func (l *Logger) formatCaller(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.level() < LogLevelDebugVerbose {
		return msg
	}
	pc, file, line, ok := runtime.Caller(4)
	if !ok {
		file = "?"
		line = 0
	}

	fn := runtime.FuncForPC(pc)
	var fnName string
	if fn != nil {
		fnName = strings.ReplaceAll(fn.Name(), "github.com/cubiclesoft/network-speedtest-cli", "")
	}

	return fmt.Sprintf("[%s:%d %s] %s", filepath.Base(file), line, fnName, msg)
}

func (l *Logger) printLog(silent bool, level string, style lipgloss.Style, format string, args ...any) {
	msg := l.formatCaller(format, args...)
	timestamp := time.Now().Format("2006-01-02T15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()

	componentTag := ""
	if l.component != "" {
		componentTag = fmt.Sprintf("[%s] ", l.component)
	}

	// Full log has no timestamp; TimestampWriter adds it at the destination.
	logLine := fmt.Sprintf("[%s] %s%s\n", level, componentTag, msg)
	stdoutLine := fmt.Sprintf("[%s] [%s] %s%s", timestamp, level, componentTag, msg)

	l.writeFullLogLocked(logLine)

	if !silent {
		fmt.Fprintln(l.out, style.Render(stdoutLine))
	}
}

// Banner prints a boxed title.
func (l *Logger) Banner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writeFullLogLocked(fmt.Sprintf("\n===== %s =====\n\n", title))
	// Force sync for important banners to ensure immediate visibility
	if s, ok := l.full.(syncer); ok {
		s.Sync()
	}

	fmt.Fprintln(l.out, l.style.banner.Render(title))
}
