package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/instep-sh/instep/pkg/engine"
	"github.com/instep-sh/instep/pkg/execute"
)

var (
	styleStep = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDim  = lipgloss.NewStyle().Faint(true)
)

// maxCommandLabel keeps echoed command text to one readable line.
const maxCommandLabel = 72

// consoleObserver renders engine events to the terminal. Prompt requests are
// forwarded to the run loop, which answers them and resumes the engine;
// everything else prints inline.
type consoleObserver struct {
	engine.NopObserver
	out     io.Writer
	prompts chan<- engine.PromptRequest
	md      *glamour.TermRenderer

	lastCommand string
}

func newConsoleObserver(out io.Writer, prompts chan<- engine.PromptRequest) *consoleObserver {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		md = nil
	}
	return &consoleObserver{out: out, prompts: prompts, md: md}
}

func (o *consoleObserver) StepStart(name, description string) {
	fmt.Fprintf(o.out, "%s %s\n", styleStep.Render("▶"), styleStep.Render(name))
	if description != "" {
		fmt.Fprintf(o.out, "  %s\n", styleDim.Render(description))
	}
}

func (o *consoleObserver) StepComplete(name string) {
	fmt.Fprintf(o.out, "%s %s\n\n", styleOK.Render("✓"), name)
}

func (o *consoleObserver) StepSkipped(name, reason string) {
	fmt.Fprintf(o.out, "%s %s %s\n\n", styleDim.Render("↷"), name, styleDim.Render("("+reason+")"))
}

func (o *consoleObserver) StepError(step, message string) {
	fmt.Fprintf(o.out, "%s %s: %s\n", styleErr.Render("✗"), step, message)
}

func (o *consoleObserver) CommandOutput(typ execute.OutputType, data, command string) {
	if command != o.lastCommand {
		o.lastCommand = command
		fmt.Fprintf(o.out, "  %s %s\n", styleDim.Render("$"), runewidth.Truncate(command, maxCommandLabel, "…"))
	}
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		if typ == execute.Stderr {
			fmt.Fprintf(o.out, "    %s\n", styleWarn.Render(line))
		} else {
			fmt.Fprintf(o.out, "    %s\n", styleDim.Render(line))
		}
	}
}

func (o *consoleObserver) CommandSkipped(command, reason string) {
	fmt.Fprintf(o.out, "  %s %s %s\n", styleDim.Render("↷"), runewidth.Truncate(command, maxCommandLabel, "…"), styleDim.Render("("+reason+")"))
}

func (o *consoleObserver) Display(title string, content []string) {
	doc := strings.Join(content, "\n")
	if title != "" {
		doc = "# " + title + "\n\n" + doc
	}
	if o.md != nil {
		if rendered, err := o.md.Render(doc); err == nil {
			fmt.Fprint(o.out, rendered)
			return
		}
	}
	fmt.Fprintln(o.out, doc)
}

func (o *consoleObserver) PromptRequested(req engine.PromptRequest) {
	o.prompts <- req
}

func (o *consoleObserver) VariableSet(name string, masked bool) {
	if masked {
		fmt.Fprintf(o.out, "  %s %s = %s\n", styleDim.Render("·"), name, execute.Redacted)
		return
	}
	fmt.Fprintf(o.out, "  %s %s set\n", styleDim.Render("·"), name)
}

func (o *consoleObserver) RunComplete(success bool) {
	if success {
		fmt.Fprintf(o.out, "%s installation complete\n", styleOK.Render("✓"))
	} else {
		fmt.Fprintf(o.out, "%s installation failed\n", styleErr.Render("✗"))
	}
}
