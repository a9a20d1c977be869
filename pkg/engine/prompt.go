package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

// PromptValidationError rejects a resumed prompt value. The engine stays
// suspended; the caller should re-prompt and resume again.
type PromptValidationError struct {
	Message string
}

func (e *PromptValidationError) Error() string { return e.Message }

func promptError(format string, args ...any) error {
	return &PromptValidationError{Message: fmt.Sprintf(format, args...)}
}

// validatePromptValue checks a resumed value against the prompt's rules and
// coerces it to the stored representation: bool for confirm, []string for
// multiselect, string otherwise. Empty values fall back to the prompt's
// default before the required check.
func validatePromptValue(cmd *schema.InstallCommand, value any) (any, error) {
	switch cmd.PromptType {
	case schema.PromptConfirm:
		return coerceBool(value)
	case schema.PromptMultiselect:
		return coerceMultiselect(cmd, value)
	}

	text := strings.TrimSpace(vars.CommandString(value))
	if text == "" {
		if def := strings.TrimSpace(vars.CommandString(cmd.Default)); def != "" {
			text = def
		}
	}
	if text == "" {
		if cmd.Required || !cmd.AllowEmpty {
			return nil, promptError("a value is required")
		}
		return "", nil
	}

	if cmd.Validation != "" {
		re, err := regexp.Compile(cmd.Validation)
		if err != nil {
			return nil, promptError("invalid validation pattern: %v", err)
		}
		if !re.MatchString(text) {
			return nil, promptError("value %q does not match pattern %s", text, cmd.Validation)
		}
	}

	if cmd.PromptType == schema.PromptSelect {
		for _, opt := range cmd.Options {
			if text == opt {
				return text, nil
			}
		}
		return nil, promptError("%q is not one of the offered options", text)
	}

	return text, nil
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y":
			return true, nil
		case "false", "no", "n":
			return false, nil
		}
		return nil, promptError("expected yes or no, got %q", v)
	}
	return nil, promptError("expected a boolean answer, got %T", value)
}

func coerceMultiselect(cmd *schema.InstallCommand, value any) (any, error) {
	var picked []string
	switch v := value.(type) {
	case []string:
		picked = v
	case []any:
		for _, item := range v {
			picked = append(picked, vars.CommandString(item))
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				picked = append(picked, part)
			}
		}
	default:
		return nil, promptError("expected a list of selections, got %T", value)
	}

	if len(picked) == 0 && (cmd.Required || !cmd.AllowEmpty) {
		return nil, promptError("select at least one option")
	}
	if len(cmd.Options) > 0 {
		for _, p := range picked {
			found := false
			for _, opt := range cmd.Options {
				if p == opt {
					found = true
					break
				}
			}
			if !found {
				return nil, promptError("%q is not one of the offered options", p)
			}
		}
	}
	return picked, nil
}
