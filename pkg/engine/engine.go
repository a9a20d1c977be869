// Package engine drives one installation run: it sequences steps and
// commands, applies conditions and the safety policy, executes processes,
// suspends for prompts, and records everything in the run log. One Engine
// instance handles exactly one run; the variable store and run log are
// mutated only from the run's goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/instep-sh/instep/pkg/condition"
	"github.com/instep-sh/instep/pkg/execute"
	"github.com/instep-sh/instep/pkg/resolve"
	"github.com/instep-sh/instep/pkg/runlog"
	"github.com/instep-sh/instep/pkg/safety"
	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

// State names the engine's position in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSuspended State = "suspended"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// DefaultDisplayDelay is how long a display block stays up before the run
// advances.
const DefaultDisplayDelay = 2 * time.Second

// CommandRunner executes one resolved command. *execute.Runner is the real
// implementation; tests substitute fakes.
type CommandRunner interface {
	Run(ctx context.Context, req execute.Request, sink execute.Sink) execute.Result
}

// RunResult is what a finished run returns to its caller.
type RunResult struct {
	Success bool
	Log     []runlog.Entry
}

type resumeRequest struct {
	value any
	reply chan error
}

// Engine executes an installer configuration. Construct with New, seed
// variables with SaveUserConfig, then call Run exactly once.
type Engine struct {
	cfg        *schema.InstallerConfig
	store      *vars.Store
	log        *runlog.Log
	obs        Observer
	classifier *safety.Classifier
	runner     CommandRunner
	delay      time.Duration

	mu    sync.Mutex
	state State

	resumeCh chan resumeRequest
	done     chan struct{}
}

// Option adjusts an Engine at construction time.
type Option func(*Engine)

// WithRunner substitutes the process runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithClassifier substitutes the safety policy, e.g. dry-run.
func WithClassifier(c *safety.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithDisplayDelay overrides the display auto-advance delay.
func WithDisplayDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithLogSink persists every run log entry to a JSONL sink as it is
// appended.
func WithLogSink(sink *runlog.FileSink) Option {
	return func(e *Engine) { e.log = runlog.New(sink) }
}

// New builds an engine for one run of cfg. userConfig seeds the variable
// store; obs receives progress events (nil for none).
func New(cfg *schema.InstallerConfig, userConfig map[string]any, obs Observer, opts ...Option) *Engine {
	if obs == nil {
		obs = NopObserver{}
	}
	e := &Engine{
		cfg:        cfg,
		store:      vars.FromMap(userConfig),
		log:        runlog.New(nil),
		obs:        obs,
		classifier: &safety.Classifier{},
		runner:     &execute.Runner{},
		delay:      DefaultDisplayDelay,
		state:      StateIdle,
		resumeCh:   make(chan resumeRequest),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// SaveUserConfig merges values into the variable store. Only legal before
// Run starts; once running, captures are the only mutation path.
func (e *Engine) SaveUserConfig(values map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return fmt.Errorf("cannot save user config in state %q", e.state)
	}
	for k, v := range values {
		e.store.Set(k, v)
	}
	return nil
}

// InstallSteps returns the steps whose conditions pass against the current
// variable store. Evaluation errors count as false.
func (e *Engine) InstallSteps() []schema.InstallStep {
	var out []schema.InstallStep
	for _, step := range e.cfg.InstallSteps {
		ok, err := condition.Eval(step.Condition, e.store)
		if err != nil || !ok {
			continue
		}
		out = append(out, step)
	}
	return out
}

// Resume supplies the value a suspended prompt is waiting for. It returns
// the prompt's validation error when the value is rejected; the engine then
// stays suspended and re-surfaces the prompt. Calling Resume when the
// engine is not suspended is an error.
func (e *Engine) Resume(value any) error {
	if e.State() != StateSuspended {
		return errors.New("engine is not awaiting a prompt")
	}
	req := resumeRequest{value: value, reply: make(chan error, 1)}
	select {
	case e.resumeCh <- req:
		return <-req.reply
	case <-e.done:
		return errors.New("engine is not awaiting a prompt")
	}
}

// Run executes the configuration from start to finish. It blocks until the
// run reaches a terminal state or ctx is cancelled; prompts suspend it until
// Resume is called from another goroutine. Run may be called once per
// Engine.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return nil, fmt.Errorf("run already started (state %q)", e.state)
	}
	e.state = StateRunning
	e.mu.Unlock()
	defer close(e.done)

	for _, step := range e.cfg.InstallSteps {
		ok, err := e.evalCondition(step.Condition, step.Name)
		if !ok {
			reason := "condition not met"
			if err != nil {
				reason = "condition error"
			}
			e.obs.StepSkipped(step.Name, reason)
			e.log.Append(runlog.KindStep, step.Name, "skipped: "+reason)
			continue
		}

		e.obs.StepStart(step.Name, step.Description)
		e.log.Append(runlog.KindStep, step.Name, "started")

		for _, cmd := range step.Commands {
			failed, err := e.runCommand(ctx, step.Name, &cmd, false)
			if err != nil {
				return e.finish(false), err
			}
			if failed {
				return e.finish(false), nil
			}
		}

		e.obs.StepComplete(step.Name)
		e.log.Append(runlog.KindStep, step.Name, "completed")
	}

	for _, cmd := range e.cfg.PostInstall {
		if _, err := e.runCommand(ctx, "post-install", &cmd, true); err != nil {
			return e.finish(false), err
		}
	}

	return e.finish(true), nil
}

func (e *Engine) finish(success bool) *RunResult {
	if success {
		e.setState(StateCompleted)
		e.log.Append(runlog.KindSuccess, "", "installation completed")
	} else {
		e.setState(StateFailed)
		e.log.Append(runlog.KindError, "", "installation failed")
	}
	e.obs.RunComplete(success)
	return &RunResult{Success: success, Log: e.log.Entries()}
}

// runCommand dispatches one command. failed=true means the run must stop
// with a failure; err is reserved for context cancellation. In best-effort
// mode (post-install) failures are logged but never returned as failed.
func (e *Engine) runCommand(ctx context.Context, stepName string, cmd *schema.InstallCommand, bestEffort bool) (failed bool, err error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	ok, cerr := e.evalCondition(cmd.Condition, stepName)
	if !ok {
		reason := "condition not met"
		if cerr != nil {
			reason = "condition error"
		}
		e.obs.CommandSkipped(e.commandLabel(cmd), reason)
		e.log.Append(runlog.KindInfo, stepName, "skipped "+e.commandLabel(cmd)+": "+reason)
		return false, nil
	}

	switch cmd.Variant() {
	case schema.TypeDisplay:
		return false, e.runDisplay(ctx, stepName, cmd)
	case schema.TypePrompt:
		return false, e.runPrompt(ctx, stepName, cmd)
	default:
		return e.runProcess(ctx, stepName, cmd, bestEffort)
	}
}

func (e *Engine) runDisplay(ctx context.Context, stepName string, cmd *schema.InstallCommand) error {
	title := resolve.Display(cmd.Title, e.store)
	content := make([]string, len(cmd.Content))
	for i, line := range cmd.Content {
		content[i] = resolve.Display(line, e.store)
	}
	e.obs.Display(title, content)
	e.log.Append(runlog.KindInfo, stepName, "display: "+title)

	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) runPrompt(ctx context.Context, stepName string, cmd *schema.InstallCommand) error {
	req := PromptRequest{
		PromptType: cmd.PromptType,
		Message:    resolve.Display(cmd.Message, e.store),
		Options:    cmd.Options,
		Default:    cmd.Default,
		AllowEmpty: cmd.AllowEmpty,
		Required:   cmd.Required,
		CaptureAs:  cmd.CaptureAs,
	}

	e.setState(StateSuspended)
	e.log.Append(runlog.KindInfo, stepName, "awaiting input: "+req.Message)
	e.obs.PromptRequested(req)

	for {
		select {
		case r := <-e.resumeCh:
			value, verr := validatePromptValue(cmd, r.value)
			r.reply <- verr
			if verr != nil {
				// Stay suspended, surface the same prompt again.
				e.obs.PromptRequested(req)
				continue
			}
			e.setState(StateRunning)
			if cmd.CaptureAs != "" {
				e.capture(stepName, cmd.CaptureAs, value, cmd.PromptType == schema.PromptPassword)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) runProcess(ctx context.Context, stepName string, cmd *schema.InstallCommand, bestEffort bool) (bool, error) {
	resolved := resolve.Command(cmd.Cmd, e.store)
	decision := e.classifier.Classify(resolved, cmd.Safe, cmd.Sensitive)

	logText := decision.Command
	if cmd.Sensitive {
		logText = execute.Redacted
	}
	e.log.Append(runlog.KindCommand, stepName, logText)

	sink := execute.SinkFunc(func(ev execute.OutputEvent) {
		e.obs.CommandOutput(ev.Type, ev.Data, ev.Command)
	})
	result := e.runner.Run(ctx, execute.Request{
		Command:   decision.Command,
		Timeout:   time.Duration(cmd.Timeout) * time.Millisecond,
		Sensitive: cmd.Sensitive,
	}, sink)

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if output := strings.TrimRight(result.Output, "\n"); output != "" {
		if cmd.Sensitive {
			e.log.Append(runlog.KindOutput, stepName, execute.Redacted)
		} else {
			e.log.Append(runlog.KindOutput, stepName, output)
		}
	}

	success := result.Success
	if cmd.ExpectedExitCode != nil {
		success = result.ExitCode == *cmd.ExpectedExitCode
	}

	if success {
		if cmd.CaptureAs != "" {
			value := strings.TrimSpace(result.Output)
			if value == "" {
				value = cmd.DefaultValue
			}
			e.capture(stepName, cmd.CaptureAs, value, cmd.Sensitive)
		}
		e.log.Append(runlog.KindSuccess, stepName, e.commandLabel(cmd))
		return false, nil
	}

	// Failure paths, most tolerant first.
	if cmd.CaptureAs != "" && cmd.DefaultValue != "" {
		e.log.Append(runlog.KindError, stepName, failureText(cmd, result)+" (using default)")
		e.capture(stepName, cmd.CaptureAs, cmd.DefaultValue, cmd.Sensitive)
		return false, nil
	}
	if cmd.Safe || bestEffort {
		e.log.Append(runlog.KindError, stepName, failureText(cmd, result)+" (continuing)")
		return false, nil
	}

	e.log.Append(runlog.KindError, stepName, failureText(cmd, result))
	e.obs.StepError(stepName, failureText(cmd, result))
	return true, nil
}

// capture writes a value into the store and logs it, masking sensitive
// values in the log.
func (e *Engine) capture(stepName, name string, value any, sensitive bool) {
	e.store.Set(name, value)
	masked := sensitive || vars.IsSensitiveKey(name)
	logged := vars.DisplayString(value)
	if masked {
		logged = execute.Redacted
	}
	e.log.Append(runlog.KindVariable, stepName, name+" = "+logged)
	e.obs.VariableSet(name, masked)
}

// evalCondition evaluates a guard, logging evaluation errors. Errors make
// the condition false rather than aborting the run.
func (e *Engine) evalCondition(expression, stepName string) (bool, error) {
	ok, err := condition.Eval(expression, e.store)
	if err != nil {
		e.log.Append(runlog.KindError, stepName, err.Error())
		return false, err
	}
	return ok, nil
}

func (e *Engine) commandLabel(cmd *schema.InstallCommand) string {
	switch cmd.Variant() {
	case schema.TypePrompt:
		return "prompt"
	case schema.TypeDisplay:
		return "display"
	}
	if cmd.Description != "" {
		return cmd.Description
	}
	if cmd.Sensitive {
		return execute.Redacted
	}
	return cmd.Cmd
}

func failureText(cmd *schema.InstallCommand, result execute.Result) string {
	label := result.Command
	if cmd.Description != "" {
		label = cmd.Description
	}
	if result.Error != "" {
		return label + ": " + result.Error
	}
	return label + ": failed"
}
