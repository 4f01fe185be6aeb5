package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
)

type RuntimeType string

const (
	RuntimeTypeClient RuntimeType = "client"
	RuntimeTypeServer RuntimeType = "server"
)

type Runtime struct {
	runID string
	t     RuntimeType

	ctx        context.Context    // global context
	cancelFunc context.CancelFunc // cancelFunc of global context

	mu sync.Mutex

	wg              sync.WaitGroup
	shutdownTimeout time.Duration

	firstFailErr error

	// logWriter is the destination for the full log (server only, when --log-file is set).
	logWriter io.WriteCloser
}

func (rt *Runtime) Type() RuntimeType {
	return rt.t
}

func (rt *Runtime) CancelCtx() {
	rt.cancelFunc()
}

func (rt *Runtime) Ctx() context.Context {
	return rt.ctx
}

func (rt *Runtime) RunID() string {
	return rt.runID
}

// SetLogWriter installs w as the full log destination. logs.Close closes it.
func (rt *Runtime) SetLogWriter(w io.WriteCloser) {
	rt.mu.Lock()
	rt.logWriter = w
	rt.mu.Unlock()
	logs.SetFullLogWriter(w)
}

type runtimeKey struct{}

func newRuntime(t RuntimeType) *Runtime {
	baseCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		runID:           strconv.FormatInt(time.Now().Unix(), 10),
		t:               t,
		cancelFunc:      cancel,
		shutdownTimeout: 5 * time.Second,
	}
	// The runtime travels in the context only so cobra handlers can reach it.
	// Load it once at the top of each command and pass it down explicitly.
	rt.ctx = context.WithValue(baseCtx, runtimeKey{}, rt)
	return rt
}

func NewClientRuntime() *Runtime {
	return newRuntime(RuntimeTypeClient)
}

func NewServerRuntime() *Runtime {
	return newRuntime(RuntimeTypeServer)
}

func FromContext(ctx context.Context) *Runtime {
	v := ctx.Value(runtimeKey{})
	if v == nil {
		return nil
	}
	rt, _ := v.(*Runtime)
	return rt
}

func FromContextOrPanic(ctx context.Context) *Runtime {
	rt := FromContext(ctx)
	if rt == nil {
		panic(errors.New("runtime not found in this context"))
	}
	return rt
}

// GoNamed runs fn in a new goroutine, with panic recovery.
//
// Contract:
//   - If fn panics, the panic is recovered, wrapped into an error, recorded,
//     and the runtime context is cancelled.
//   - Runtime.Wait() waits for all such goroutines and returns the first error.
func (rt *Runtime) GoNamed(name string, fn func()) {
	rt.goNamed(name, false, fn)
}

// GoQuiet is GoNamed without the start/finish debug lines, for per-connection workers.
func (rt *Runtime) GoQuiet(name string, fn func()) {
	rt.goNamed(name, true, fn)
}

func (rt *Runtime) goNamed(name string, quiet bool, fn func()) {
	if name == "" {
		name = "annonymous"
	}
	rt.wg.Go(func() {
		if !quiet {
			logs.Debugf("%s goroutine start", name)
		}
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
				rt.fail(err)
			}
		}()

		fn()
		if !quiet {
			logs.Debugf("%s goroutine finish", name)
		}
	})
}

func (rt *Runtime) fail(err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.firstFailErr == nil {
		rt.firstFailErr = err
		// cancel everyone on first failure
		rt.cancelFunc()
	}
}

func (rt *Runtime) Wait() error {
	rt.wg.Wait()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.firstFailErr
}

func (rt *Runtime) OnShutdown(fn func(ctx context.Context)) {
	rt.GoNamed("OnShutdown", func() {
		// wait until runtime context is cancelled
		<-rt.ctx.Done()

		cleanupCtx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout)
		defer cancel()

		fn(cleanupCtx)
	})
}

// Finalize handles both panic and normal exit.
// Call it in a defer at the top of main.
func (rt *Runtime) Finalize(appName, helpHint string, execErr *error) {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "%s panic: %v\n", appName, r)
		fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		fmt.Fprintln(os.Stderr, "")
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}

		// cancel & wait so OnShutdown hooks run
		rt.CancelCtx()
		_ = rt.Wait()

		logs.Close()
		os.Exit(1)
	}

	// trigger OnShutdown hooks
	rt.CancelCtx()
	waitErr := rt.Wait()

	exitCode := 0
	if execErr != nil && *execErr != nil {
		logs.Errorf("%s error: %v", appName, *execErr)
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}
		exitCode = 1
	} else if waitErr != nil {
		logs.Errorf("%s fail reason: %v", appName, waitErr)
		exitCode = 1
	}

	logs.Close()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
