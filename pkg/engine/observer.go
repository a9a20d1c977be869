package engine

import (
	"github.com/instep-sh/instep/pkg/execute"
	"github.com/instep-sh/instep/pkg/schema"
)

// PromptRequest carries everything an observer needs to answer a prompt.
// Message is already template-resolved.
type PromptRequest struct {
	PromptType schema.PromptType
	Message    string
	Options    []string
	Default    any
	AllowEmpty bool
	Required   bool
	CaptureAs  string
}

// Observer receives run progress events. Methods are invoked from the
// engine's goroutine in the exact order operations occur; implementations
// that need to do slow work should hand events off rather than block the
// run. Every method may be called zero or more times; none is required to
// be goroutine-safe beyond single-caller use.
type Observer interface {
	// StepStart fires when a step's condition passed and its commands
	// are about to run.
	StepStart(name, description string)
	// StepComplete fires after every command in the step finished or was
	// tolerated.
	StepComplete(name string)
	// StepSkipped fires instead of StepStart when the step's condition
	// evaluated false.
	StepSkipped(name, reason string)
	// StepError fires when a command failure ends the run.
	StepError(step, message string)
	// CommandOutput streams process output chunks as they arrive.
	CommandOutput(typ execute.OutputType, data, command string)
	// CommandSkipped fires for a command whose own condition was false.
	CommandSkipped(command, reason string)
	// Display surfaces an informational block; the engine auto-advances
	// after its presentation delay.
	Display(title string, content []string)
	// PromptRequested fires when the engine suspends awaiting Resume.
	// It fires again with the same request after an invalid resume.
	PromptRequested(req PromptRequest)
	// VariableSet fires after a capture lands in the variable store.
	VariableSet(name string, masked bool)
	// RunComplete is the final event of a run.
	RunComplete(success bool)
}

// NopObserver discards every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StepStart(name, description string) {}
func (NopObserver) StepComplete(name string) {}
func (NopObserver) StepSkipped(name, reason string) {}
func (NopObserver) StepError(step, message string) {}
func (NopObserver) CommandOutput(typ execute.OutputType, data, command string) {}
func (NopObserver) CommandSkipped(command, reason string) {}
func (NopObserver) Display(title string, content []string) {}
func (NopObserver) PromptRequested(req PromptRequest) {}
func (NopObserver) VariableSet(name string, masked bool) {}
func (NopObserver) RunComplete(success bool) {}
