package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/instep-sh/instep/pkg/engine"
	"github.com/instep-sh/instep/pkg/execute"
	"github.com/instep-sh/instep/pkg/precheck"
	"github.com/instep-sh/instep/pkg/runlog"
	"github.com/instep-sh/instep/pkg/safety"
	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

var (
	runDryRun        bool
	runSetVars       []string
	runSimple        bool
	runTrace         string
	runYes           bool
	runSkipPrechecks bool
)

var runCmd = &cobra.Command{
	Use:   "run [config.yaml]",
	Short: "Execute an installation plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func newProcessRunner() *execute.Runner {
	return &execute.Runner{}
}

// loadRunConfig loads the config for a run. With simple set the file is
// treated as the fallback shape: pre-checks and post-install are dropped.
func loadRunConfig(path string, simple bool) (*schema.InstallerConfig, error) {
	if simple {
		return schema.LoadFallback("", path)
	}
	return schema.LoadFile(path)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0], runSimple)
	if err != nil {
		return err
	}
	if errs := schema.Validate(cfg); hasValidationErrors(errs) {
		for _, e := range errs {
			if e.Severity != "warning" {
				fmt.Fprintf(os.Stderr, "  [%s] %s\n", e.Phase, e.Message)
			}
		}
		return fmt.Errorf("config validation failed")
	}

	preset, err := parseSetFlags(runSetVars)
	if err != nil {
		return err
	}

	values, err := collectFields(cfg.ConfigFields, preset, runYes)
	if err != nil {
		return err
	}

	classifier := &safety.Classifier{ForceSimulate: runDryRun}
	store := vars.FromMap(values)

	if len(cfg.PreChecks) > 0 && !runSkipPrechecks {
		fmt.Println(styleStep.Render("Pre-checks"))
		checker := &precheck.Runner{Exec: newProcessRunner(), Classifier: classifier}
		results := checker.RunAll(context.Background(), cfg.PreChecks, store)
		printCheckResults(results)
		if !precheck.Proceed(results) {
			return fmt.Errorf("pre-checks failed, fix the findings above or pass --skip-prechecks")
		}
		fmt.Println()
	}

	var opts []engine.Option
	opts = append(opts, engine.WithClassifier(classifier))
	if runTrace != "" {
		sink, err := runlog.NewFileSink(runTrace)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer sink.Close()
		opts = append(opts, engine.WithLogSink(sink))
	}

	prompts := make(chan engine.PromptRequest, 1)
	obs := newConsoleObserver(os.Stdout, prompts)
	eng := engine.New(cfg, store.Snapshot(), obs, opts...)

	if runDryRun {
		fmt.Println(styleDim.Render("Dry run: every command is simulated."))
	}

	type outcome struct {
		res *engine.RunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := eng.Run(context.Background())
		done <- outcome{res, err}
	}()

	for {
		select {
		case req := <-prompts:
			value, err := answerPrompt(req, runYes)
			if err != nil {
				return err
			}
			if err := eng.Resume(value); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", styleErr.Render("✗"), err)
			}
		case out := <-done:
			if out.err != nil {
				return out.err
			}
			if !out.res.Success {
				return fmt.Errorf("installation failed")
			}
			return nil
		}
	}
}

// parseSetFlags turns repeated --set key=value flags into seed variables.
// Values stay strings; conditions coerce them as needed.
func parseSetFlags(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
