// Package precheck runs the battery of read-only diagnostic probes that
// gates installation. Checks run sequentially and independently; one
// failure never prevents the remaining checks from running.
package precheck

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/instep-sh/instep/pkg/execute"
	"github.com/instep-sh/instep/pkg/resolve"
	"github.com/instep-sh/instep/pkg/safety"
	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

// Status classifies one check outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// CheckResult is the outcome of a single pre-check.
type CheckResult struct {
	Name    string
	Status  Status
	Output  string
	Message string
	// Simulated is true when the probe was rewritten by the safety
	// classifier instead of running for real.
	Simulated bool
}

// Runner drives the check battery.
type Runner struct {
	Exec       *execute.Runner
	Classifier *safety.Classifier
}

// RunAll executes every check in order against the store, storing captureAs
// outputs for later template use. The caller decides whether to proceed;
// see Proceed.
func (r *Runner) RunAll(ctx context.Context, checks []schema.PreCheck, store *vars.Store) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		res := r.runOne(ctx, check, store)
		if check.CaptureAs != "" {
			store.Set(check.CaptureAs, strings.TrimSpace(res.Output))
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, check schema.PreCheck, store *vars.Store) CheckResult {
	resolved := resolve.Command(check.Command, store)
	decision := r.Classifier.Classify(resolved, check.Safe, false)

	execRes := r.Exec.Run(ctx, execute.Request{Command: decision.Command}, nil)

	res := CheckResult{
		Name:      check.Name,
		Output:    execRes.Output,
		Simulated: decision.Simulated,
	}

	if !execRes.Success {
		res.Status = StatusError
		res.Message = failureMessage(check, execRes.Error)
		return res
	}

	if check.ExpectedPattern != "" {
		re, err := regexp.Compile(check.ExpectedPattern)
		if err != nil {
			res.Status = StatusError
			res.Message = fmt.Sprintf("invalid expected pattern: %v", err)
			return res
		}
		if !re.MatchString(execRes.Output) {
			res.Status = StatusError
			res.Message = failureMessage(check, fmt.Sprintf("output did not match %q", check.ExpectedPattern))
			return res
		}
	}

	// Resource thresholds are advisory: under minRequired is a warning,
	// not a failure.
	if check.Type != "" && check.MinRequired > 0 {
		value, ok := firstNumber(execRes.Output)
		if !ok {
			res.Status = StatusWarning
			res.Message = fmt.Sprintf("could not read a %s value from output", check.Type)
			return res
		}
		if value < check.MinRequired {
			res.Status = StatusWarning
			res.Message = fmt.Sprintf("%s %v below recommended %v", check.Type, value, check.MinRequired)
			return res
		}
	}

	res.Status = StatusSuccess
	return res
}

func failureMessage(check schema.PreCheck, fallback string) string {
	if check.ErrorMessage != "" {
		return check.ErrorMessage
	}
	return fallback
}

// firstNumber extracts the first wholly-numeric field from command output,
// skipping the header line of multi-line output (df/free style). Tokens that
// merely contain digits, like "/dev/sda1", do not count.
func firstNumber(output string) (float64, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	for _, line := range lines {
		for _, field := range strings.Fields(line) {
			field = strings.TrimSuffix(field, "%")
			if v, err := strconv.ParseFloat(field, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// Proceed applies the progression policy: installation continues only when
// every check ended success or warning.
func Proceed(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusError {
			return false
		}
	}
	return true
}
