// Package safety decides whether a resolved command may execute against the
// real system or must be simulated. Simulation rewrites the command to an
// echo so the dry-run and real-run paths share one execution mechanism.
package safety

import (
	"strings"

	"github.com/instep-sh/instep/pkg/execute"
)

// readOnlyCommands is the fixed allow-list of inspection commands that may
// always run for real. Matching is token-exact on the leading tokens of the
// resolved command, never a raw string prefix (so "ls" does not admit
// "lsof"). Two-token entries cover tools whose mutating and read-only
// surfaces share a binary.
var readOnlyCommands = [][]string{
	{"whoami"}, {"id"}, {"uname"}, {"hostname"}, {"pwd"}, {"date"},
	{"uptime"}, {"env"}, {"printenv"}, {"echo"}, {"which"}, {"type"},
	{"ls"}, {"stat"}, {"file"}, {"df"}, {"du"}, {"free"}, {"nproc"},
	{"lscpu"}, {"lsblk"}, {"cat"}, {"head"}, {"tail"}, {"wc"}, {"grep"},
	{"ps"},
	{"git", "status"}, {"git", "log"}, {"git", "remote"},
	{"systemctl", "status"}, {"systemctl", "is-active"},
	{"docker", "ps"}, {"docker", "images"}, {"docker", "version"},
	{"apt", "list"}, {"dpkg", "-l"}, {"rpm", "-qa"},
}

// Decision is the classifier's verdict for one resolved command.
type Decision struct {
	// Command is the text to hand to the executor. For simulated commands
	// this is the echo rewrite, not the original.
	Command string
	// Simulated is true when the original command was replaced by an echo.
	Simulated bool
	// Reason explains the verdict for the run log.
	Reason string
}

// Classifier applies the execution safety policy. The zero value is the
// normal policy; ForceSimulate turns every command into a simulation
// regardless of flags (dry-run mode).
type Classifier struct {
	ForceSimulate bool
}

// Classify decides whether a fully resolved command runs for real. A command
// runs when its safe flag is explicitly true or its leading tokens match the
// read-only allow-list; everything else is rewritten to
// "echo 'Would run: <original>'". Classification happens after template
// resolution, on the substituted text. Sensitive commands never have their
// text echoed by a simulation: the rewrite prints the redaction marker, as
// the echo's output streams in the clear.
func (c *Classifier) Classify(resolved string, safe, sensitive bool) Decision {
	if c.ForceSimulate {
		return simulate(resolved, "dry-run", sensitive)
	}
	if safe {
		return Decision{Command: resolved, Reason: "flagged safe"}
	}
	if matchesAllowList(resolved) {
		return Decision{Command: resolved, Reason: "read-only command"}
	}
	return simulate(resolved, "not marked safe", sensitive)
}

func simulate(original, reason string, sensitive bool) Decision {
	text := original
	if sensitive {
		text = execute.Redacted
	}
	return Decision{
		Command:   "echo 'Would run: " + escapeSingleQuotes(text) + "'",
		Simulated: true,
		Reason:    reason,
	}
}

// SimulatedOutput is the text a simulated command prints for the original.
func SimulatedOutput(original string) string {
	return "Would run: " + original
}

func matchesAllowList(resolved string) bool {
	tokens := strings.Fields(resolved)
	if len(tokens) == 0 {
		return false
	}
	for _, entry := range readOnlyCommands {
		if len(tokens) < len(entry) {
			continue
		}
		match := true
		for i, tok := range entry {
			if tokens[i] != tok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// escapeSingleQuotes makes a string safe inside single quotes for sh.
func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
