// Package execute spawns external processes for installation commands,
// streaming their output as it arrives and enforcing a timeout. Every
// failure mode is converted to a Result; nothing escapes this boundary
// as a Go error or panic.
package execute

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Redacted replaces sensitive command text anywhere it would surface.
const Redacted = "[REDACTED]"

// DefaultTimeout applies when a request carries no explicit timeout.
const DefaultTimeout = 30 * time.Second

// OutputType distinguishes the stream a chunk arrived on.
type OutputType string

const (
	Stdout OutputType = "stdout"
	Stderr OutputType = "stderr"
)

// OutputEvent is one chunk of process output, forwarded as it arrives.
// Ordering between stdout and stderr chunks is best-effort.
type OutputEvent struct {
	Type    OutputType
	Data    string
	Command string
}

// Sink receives output events during execution.
type Sink interface {
	Write(OutputEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(OutputEvent)

func (f SinkFunc) Write(e OutputEvent) { f(e) }

// Discard is a sink that drops every event.
var Discard Sink = SinkFunc(func(OutputEvent) {})

// Request describes one command to run.
type Request struct {
	Command string
	// Timeout for the whole process; DefaultTimeout when zero.
	Timeout time.Duration
	// Sensitive commands have their text replaced by Redacted in every
	// event and result surfaced above this layer.
	Sensitive bool
}

// Result is the uniform outcome of every execution. ExitCode is -1 when the
// process never produced one (spawn failure or timeout).
type Result struct {
	Success  bool
	Output   string
	ExitCode int
	Error    string
	Command  string
}

// Runner executes commands through the system shell.
type Runner struct{}

// streamWriter forwards each write to the sink and accumulates the combined
// transcript. os/exec delivers chunks through Write as they are read from
// the child, which gives us streaming without extra plumbing. The stdout and
// stderr writers share one mutex, held across the sink call as well: sinks
// see events one at a time and need no locking of their own.
type streamWriter struct {
	mu      *sync.Mutex
	out     *strings.Builder
	sink    Sink
	typ     OutputType
	command string
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.out.Write(p)
	w.sink.Write(OutputEvent{Type: w.typ, Data: string(p), Command: w.command})
	return len(p), nil
}

// Run executes the request, streaming output to sink, and returns its
// result. The process is killed when the timeout elapses; the result then
// carries "Timeout exceeded". A nil sink discards streamed output.
func (r *Runner) Run(ctx context.Context, req Request, sink Sink) Result {
	if sink == nil {
		sink = Discard
	}

	echo := req.Command
	if req.Sensitive {
		echo = Redacted
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(runCtx, req.Command)
	cmd.WaitDelay = 2 * time.Second

	var mu sync.Mutex
	var combined strings.Builder
	cmd.Stdout = &streamWriter{mu: &mu, out: &combined, sink: sink, typ: Stdout, command: echo}
	cmd.Stderr = &streamWriter{mu: &mu, out: &combined, sink: sink, typ: Stderr, command: echo}

	if err := cmd.Start(); err != nil {
		return Result{
			Success:  false,
			ExitCode: -1,
			Error:    err.Error(),
			Command:  echo,
		}
	}

	err := cmd.Wait()

	mu.Lock()
	output := combined.String()
	mu.Unlock()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Success:  false,
			Output:   output,
			ExitCode: -1,
			Error:    "Timeout exceeded",
			Command:  echo,
		}
	}
	if ctx.Err() != nil {
		return Result{
			Success:  false,
			Output:   output,
			ExitCode: -1,
			Error:    ctx.Err().Error(),
			Command:  echo,
		}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{
				Success:  false,
				Output:   output,
				ExitCode: -1,
				Error:    err.Error(),
				Command:  echo,
			}
		}
	}

	res := Result{
		Success:  exitCode == 0,
		Output:   output,
		ExitCode: exitCode,
		Command:  echo,
	}
	if !res.Success {
		res.Error = "exit status " + strconv.Itoa(exitCode)
	}
	return res
}

// shellCommand builds the platform shell invocation for a command string.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd.exe", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
