// Package vars implements the variable store shared by template resolution,
// condition evaluation and capture handling. Values are string, float64,
// bool or []string; later writes overwrite earlier ones.
package vars

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Store maps variable names to values collected during a run: user-supplied
// configuration, captured command output, and prompt answers. The store is
// owned by the orchestrator; nothing else mutates it.
type Store struct {
	values map[string]any
	order  []string
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// FromMap creates a store seeded with the given values.
func FromMap(seed map[string]any) *Store {
	s := New()
	for k, v := range seed {
		s.Set(k, v)
	}
	return s
}

// Set stores a value under name, overwriting any previous value.
// Supported value types: string, bool, float64, int, []string. Other types
// are stored as their fmt.Sprint form.
func (s *Store) Set(name string, value any) {
	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	switch v := value.(type) {
	case string, bool, float64, []string, nil:
		s.values[name] = v
	case int:
		s.values[name] = float64(v)
	case int64:
		s.values[name] = float64(v)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		s.values[name] = items
	default:
		s.values[name] = fmt.Sprint(v)
	}
}

// Get returns the value for name and whether it is present.
func (s *Store) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is present.
func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns variable names in insertion order. The order is only used
// for human-readable output; evaluation never depends on it.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns a copy of the store contents for expression evaluation.
// Mutating the returned map does not affect the store.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// CommandString renders a value for substitution into a command line.
// Booleans keep their literal form, arrays join with commas, missing and
// nil values render as the empty string.
func CommandString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

// DisplayString renders a value for human-readable text. Booleans become
// Yes/No, arrays join with ", ", missing/nil/empty values become "<not set>".
func DisplayString(v any) string {
	switch val := v.(type) {
	case nil:
		return "<not set>"
	case string:
		if val == "" {
			return "<not set>"
		}
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return formatNumber(val)
	case []string:
		if len(val) == 0 {
			return "<not set>"
		}
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// formatNumber renders floats without a trailing ".0" for whole numbers,
// matching how numeric config fields are entered.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sensitiveKeyRe matches variable names that hold credentials. Values under
// these names are masked in the run log even without an explicit sensitive flag.
var sensitiveKeyRe = regexp.MustCompile(`(?i)(password|passphrase|secret|token|api.?key|private.?key|credential)`)

// IsSensitiveKey reports whether a variable name looks credential-like.
func IsSensitiveKey(name string) bool {
	return sensitiveKeyRe.MatchString(name)
}

// Truthy reports whether a value counts as true for condition purposes:
// nil, "", "false", "0", false and 0 are all false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false" && val != "0"
	case float64:
		return val != 0
	case int:
		return val != 0
	case []string:
		return len(val) > 0
	default:
		return true
	}
}
