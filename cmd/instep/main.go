package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/instep-sh/instep/pkg/precheck"
	"github.com/instep-sh/instep/pkg/safety"
	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "instep",
	Short: "Declarative installation runner",
	Long:  "instep — runs declarative installation plans: pre-checks, a configuration form, conditional steps, and a safety policy that simulates anything not known to be safe.",
}

// --- validate ---

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate an installer config against the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, errs := schema.ValidateFile(args[0])

	if validateJSON {
		report := struct {
			Valid    bool                      `json:"valid"`
			Findings []*schema.ValidationError `json:"findings"`
		}{Valid: !hasValidationErrors(errs), Findings: errs}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("validation failed")
		}
		return nil
	}

	var errors, warnings []*schema.ValidationError
	for _, e := range errs {
		if e.Severity == "warning" {
			warnings = append(warnings, e)
		} else {
			errors = append(errors, e)
		}
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  %s [%s] %s\n", styleWarn.Render("⚠"), w.Phase, w.Message)
		if w.Path != "" {
			fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
		}
	}
	if len(errors) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(errors))
		for i, e := range errors {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", len(errors))
	}

	fmt.Printf("%s %s is valid (%d steps)\n", styleOK.Render("✓"), args[0], len(cfg.InstallSteps))
	return nil
}

func hasValidationErrors(errs []*schema.ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

// --- precheck ---

var precheckDryRun bool

var precheckCmd = &cobra.Command{
	Use:   "precheck [config.yaml]",
	Short: "Run the pre-installation check battery",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrecheck,
}

func runPrecheck(cmd *cobra.Command, args []string) error {
	cfg, errs := schema.ValidateFile(args[0])
	if hasValidationErrors(errs) {
		return fmt.Errorf("config is invalid, run: instep validate %s", args[0])
	}
	if len(cfg.PreChecks) == 0 {
		fmt.Println("No pre-checks defined.")
		return nil
	}

	runner := &precheck.Runner{
		Exec:       newProcessRunner(),
		Classifier: &safety.Classifier{ForceSimulate: precheckDryRun},
	}
	results := runner.RunAll(context.Background(), cfg.PreChecks, vars.New())
	printCheckResults(results)

	if !precheck.Proceed(results) {
		return fmt.Errorf("pre-checks failed")
	}
	return nil
}

func printCheckResults(results []precheck.CheckResult) {
	nameWidth := 0
	for _, r := range results {
		if w := runewidth.StringWidth(r.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, r := range results {
		var mark string
		switch r.Status {
		case precheck.StatusSuccess:
			mark = styleOK.Render("✓")
		case precheck.StatusWarning:
			mark = styleWarn.Render("⚠")
		default:
			mark = styleErr.Render("✗")
		}
		line := fmt.Sprintf("  %s %s", mark, runewidth.FillRight(r.Name, nameWidth))
		if r.Message != "" {
			line += "  " + r.Message
		} else if out := strings.TrimSpace(r.Output); out != "" {
			line += "  " + styleDim.Render(firstLine(out))
		}
		if r.Simulated {
			line += " " + styleDim.Render("(simulated)")
		}
		fmt.Println(line)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the installer config JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("instep %s (%s)\n", version, commit)
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output findings as structured JSON")

	precheckCmd.Flags().BoolVar(&precheckDryRun, "dry-run", false, "Simulate every probe instead of running it")

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Simulate every command instead of executing it")
	runCmd.Flags().StringArrayVar(&runSetVars, "set", nil, "Pre-seed a variable (key=value), repeatable; wins over the form")
	runCmd.Flags().BoolVar(&runSimple, "simple", false, "Treat the config as the simple shape: no pre-checks or post-install")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "Append the run log as JSONL to this file")
	runCmd.Flags().BoolVar(&runYes, "yes", false, "Non-interactive: answer prompts and form fields with their defaults")
	runCmd.Flags().BoolVar(&runSkipPrechecks, "skip-prechecks", false, "Skip the pre-installation check battery")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(precheckCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
