package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/instep-sh/instep/pkg/condition"
)

// ValidationError represents a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location, e.g. "installSteps[2].commands[0]"
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile runs the full 3-phase validation pipeline on a config file.
// Phase 1: structural (strict YAML/JSON decode)
// Phase 2: semantic (JSON Schema validation)
// Phase 3: domain (custom Go rules)
func ValidateFile(path string) (*InstallerConfig, []*ValidationError) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return cfg, Validate(cfg)
}

// Validate runs the semantic and domain phases on an already-decoded config.
func Validate(cfg *InstallerConfig) []*ValidationError {
	var all []*ValidationError
	all = append(all, validateSemantic(cfg)...)
	all = append(all, validateDomain(cfg)...)
	return all
}

// validateSemantic validates the config against the generated JSON Schema.
func validateSemantic(cfg *InstallerConfig) []*ValidationError {
	fail := func(msg string) []*ValidationError {
		return []*ValidationError{{Phase: "semantic", Message: msg, Severity: "error"}}
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fail(fmt.Sprintf("marshal for schema validation: %v", err))
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return fail(fmt.Sprintf("generate schema: %v", err))
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fail(fmt.Sprintf("unmarshal schema: %v", err))
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("installer-v1.json", schemaDoc); err != nil {
		return fail(fmt.Sprintf("add schema resource: %v", err))
	}
	sch, err := c.Compile("installer-v1.json")
	if err != nil {
		return fail(fmt.Sprintf("compile schema: %v", err))
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fail(fmt.Sprintf("unmarshal document: %v", err))
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Message:  err.Error(),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// validateDomain applies hand-written rules the JSON Schema cannot express.
func validateDomain(cfg *InstallerConfig) []*ValidationError {
	var errs []*ValidationError
	add := func(path, msg string) {
		errs = append(errs, &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "error"})
	}
	warn := func(path, msg string) {
		errs = append(errs, &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "warning"})
	}

	if len(cfg.InstallSteps) == 0 {
		add("installSteps", "config has no install steps")
	}

	seenIDs := make(map[string]bool)
	for i, f := range cfg.ConfigFields {
		path := fmt.Sprintf("configFields[%d]", i)
		if f.ID == "" {
			add(path, "field has no id")
			continue
		}
		if seenIDs[f.ID] {
			add(path, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seenIDs[f.ID] = true
		switch f.Type {
		case FieldText, FieldPassword, FieldNumber, FieldBoolean, FieldSelect:
		default:
			add(path, fmt.Sprintf("unknown field type %q", f.Type))
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			add(path, "select field has no options")
		}
		if f.Validation != "" {
			if _, err := regexp.Compile(f.Validation); err != nil {
				add(path+".validation", fmt.Sprintf("invalid regex: %v", err))
			}
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			add(path, "min is greater than max")
		}
		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			add(path, "minLength is greater than maxLength")
		}
	}

	for i, c := range cfg.PreChecks {
		path := fmt.Sprintf("preChecks[%d]", i)
		if c.Command == "" {
			add(path, "precheck has no command")
		}
		if c.ExpectedPattern != "" {
			if _, err := regexp.Compile(c.ExpectedPattern); err != nil {
				add(path+".expectedPattern", fmt.Sprintf("invalid regex: %v", err))
			}
		}
		switch c.Type {
		case "", CheckDiskSpace, CheckMemory, CheckCPU:
		default:
			add(path+".type", fmt.Sprintf("unknown check type %q", c.Type))
		}
		if c.MinRequired > 0 && c.Type == "" {
			warn(path, "minRequired set without a resource type; threshold will not apply")
		}
	}

	for i, step := range cfg.InstallSteps {
		path := fmt.Sprintf("installSteps[%d]", i)
		if step.Name == "" {
			add(path, "step has no name")
		}
		if len(step.Commands) == 0 {
			add(path, "step has no commands")
		}
		if err := condition.Check(step.Condition); err != nil {
			add(path+".condition", err.Error())
		}
		for j := range step.Commands {
			errs = append(errs, validateCommand(fmt.Sprintf("%s.commands[%d]", path, j), &step.Commands[j])...)
		}
	}

	for i := range cfg.PostInstall {
		errs = append(errs, validateCommand(fmt.Sprintf("postInstall[%d]", i), &cfg.PostInstall[i])...)
	}

	return errs
}

func validateCommand(path string, c *InstallCommand) []*ValidationError {
	var errs []*ValidationError
	add := func(p, msg string) {
		errs = append(errs, &ValidationError{Phase: "domain", Path: p, Message: msg, Severity: "error"})
	}

	if err := condition.Check(c.Condition); err != nil {
		add(path+".condition", err.Error())
	}
	if c.Timeout < 0 {
		add(path+".timeout", "timeout must not be negative")
	}

	switch c.Variant() {
	case TypeCommand:
		if c.Cmd == "" {
			add(path, "command has no cmd")
		}
	case TypePrompt:
		if c.Message == "" {
			add(path, "prompt has no message")
		}
		switch c.PromptType {
		case PromptInput, PromptPassword, PromptConfirm, PromptSelect, PromptMultiselect:
		default:
			add(path+".promptType", fmt.Sprintf("unknown prompt type %q", c.PromptType))
		}
		if (c.PromptType == PromptSelect || c.PromptType == PromptMultiselect) && len(c.Options) == 0 {
			add(path, fmt.Sprintf("%s prompt has no options", c.PromptType))
		}
		if c.Validation != "" {
			if _, err := regexp.Compile(c.Validation); err != nil {
				add(path+".validation", fmt.Sprintf("invalid regex: %v", err))
			}
		}
	case TypeDisplay:
		if len(c.Content) == 0 {
			add(path, "display has no content")
		}
	default:
		add(path+".type", fmt.Sprintf("unknown command type %q", c.Type))
	}
	return errs
}
