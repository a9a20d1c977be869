// Package schema defines the Go struct types for installer configuration
// documents and provides strict decoding and validation.
package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// InstallerConfig is the top-level document describing an installation plan.
// Loaded once per run and treated as immutable for the run's duration.
type InstallerConfig struct {
	PreChecks    []PreCheck       `yaml:"preChecks,omitempty"    json:"preChecks,omitempty"`
	ConfigFields []ConfigField    `yaml:"configFields,omitempty" json:"configFields,omitempty"`
	InstallSteps []InstallStep    `yaml:"installSteps"           json:"installSteps" jsonschema:"required"`
	PostInstall  []InstallCommand `yaml:"postInstall,omitempty"  json:"postInstall,omitempty"`
}

// PreCheckType classifies resource checks whose output carries a numeric
// value compared against MinRequired.
type PreCheckType string

const (
	CheckDiskSpace PreCheckType = "diskSpace"
	CheckMemory    PreCheckType = "memory"
	CheckCPU       PreCheckType = "cpu"
)

// PreCheck is one read-only diagnostic probe run before installation.
type PreCheck struct {
	Name            string       `yaml:"name"                      json:"name" jsonschema:"required"`
	Command         string       `yaml:"command"                   json:"command" jsonschema:"required"`
	ExpectedPattern string       `yaml:"expectedPattern,omitempty" json:"expectedPattern,omitempty"`
	MinRequired     float64      `yaml:"minRequired,omitempty"     json:"minRequired,omitempty"`
	Type            PreCheckType `yaml:"type,omitempty"            json:"type,omitempty" jsonschema:"enum=diskSpace,enum=memory,enum=cpu"`
	ErrorMessage    string       `yaml:"errorMessage,omitempty"    json:"errorMessage,omitempty"`
	Safe            bool         `yaml:"safe,omitempty"            json:"safe,omitempty"`
	CaptureAs       string       `yaml:"captureAs,omitempty"       json:"captureAs,omitempty"`
}

// FieldType enumerates the user-entry field kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldSelect   FieldType = "select"
)

// ConfigField describes one user-entry field. Collected values land in the
// variable store under the field's ID.
type ConfigField struct {
	ID          string    `yaml:"id"                    json:"id" jsonschema:"required"`
	Label       string    `yaml:"label,omitempty"       json:"label,omitempty"`
	Type        FieldType `yaml:"type"                  json:"type" jsonschema:"required,enum=text,enum=password,enum=number,enum=boolean,enum=select"`
	Options     []string  `yaml:"options,omitempty"     json:"options,omitempty"`
	Default     any       `yaml:"default,omitempty"     json:"default,omitempty"`
	Required    bool      `yaml:"required,omitempty"    json:"required,omitempty"`
	Validation  string    `yaml:"validation,omitempty"  json:"validation,omitempty"`
	Min         *float64  `yaml:"min,omitempty"         json:"min,omitempty"`
	Max         *float64  `yaml:"max,omitempty"         json:"max,omitempty"`
	MinLength   *int      `yaml:"minLength,omitempty"   json:"minLength,omitempty"`
	MaxLength   *int      `yaml:"maxLength,omitempty"   json:"maxLength,omitempty"`
	Placeholder string    `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Help        string    `yaml:"help,omitempty"        json:"help,omitempty"`
}

// InstallStep is an ordered, named group of commands, optionally gated by a
// condition over the variable store. Steps are unique by position, not name.
type InstallStep struct {
	Name        string           `yaml:"name"                  json:"name" jsonschema:"required"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Condition   string           `yaml:"condition,omitempty"   json:"condition,omitempty"`
	Commands    []InstallCommand `yaml:"commands"              json:"commands" jsonschema:"required"`
}

// CommandType tags the InstallCommand variant.
type CommandType string

const (
	TypeCommand CommandType = "command"
	TypePrompt  CommandType = "prompt"
	TypeDisplay CommandType = "display"
)

// PromptType enumerates the interactive prompt kinds.
type PromptType string

const (
	PromptInput       PromptType = "input"
	PromptPassword    PromptType = "password"
	PromptConfirm     PromptType = "confirm"
	PromptSelect      PromptType = "select"
	PromptMultiselect PromptType = "multiselect"
)

// InstallCommand is a tagged variant over Type. An empty Type means
// "command". Fields are grouped by the variant that reads them; the
// serialized document keeps them flat on one object.
type InstallCommand struct {
	Type CommandType `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=command,enum=prompt,enum=display"`

	// command variant
	Cmd              string `yaml:"cmd,omitempty"              json:"cmd,omitempty"`
	Description      string `yaml:"description,omitempty"      json:"description,omitempty"`
	Safe             bool   `yaml:"safe,omitempty"             json:"safe,omitempty"`
	Sensitive        bool   `yaml:"sensitive,omitempty"        json:"sensitive,omitempty"`
	Timeout          int    `yaml:"timeout,omitempty"          json:"timeout,omitempty"` // milliseconds
	CaptureAs        string `yaml:"captureAs,omitempty"        json:"captureAs,omitempty"`
	DefaultValue     string `yaml:"defaultValue,omitempty"     json:"defaultValue,omitempty"`
	Condition        string `yaml:"condition,omitempty"        json:"condition,omitempty"`
	ExpectedExitCode *int   `yaml:"expectedExitCode,omitempty" json:"expectedExitCode,omitempty"`

	// prompt variant
	PromptType PromptType `yaml:"promptType,omitempty" json:"promptType,omitempty" jsonschema:"enum=input,enum=password,enum=confirm,enum=select,enum=multiselect"`
	Message    string     `yaml:"message,omitempty"    json:"message,omitempty"`
	Options    []string   `yaml:"options,omitempty"    json:"options,omitempty"`
	Default    any        `yaml:"default,omitempty"    json:"default,omitempty"`
	Validation string     `yaml:"validation,omitempty" json:"validation,omitempty"`
	AllowEmpty bool       `yaml:"allowEmpty,omitempty" json:"allowEmpty,omitempty"`
	Required   bool       `yaml:"required,omitempty"   json:"required,omitempty"`

	// display variant
	Title   string   `yaml:"title,omitempty"   json:"title,omitempty"`
	Content []string `yaml:"content,omitempty" json:"content,omitempty"`
}

// Variant returns the command's variant, defaulting to TypeCommand.
func (c *InstallCommand) Variant() CommandType {
	if c.Type == "" {
		return TypeCommand
	}
	return c.Type
}

// ConfigLoadError reports a missing or unparseable configuration document.
// Fatal: nothing runs when the document cannot be loaded.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load installer config: %v", e.Err)
	}
	return fmt.Sprintf("load installer config %s: %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// Load parses an installer config from a reader with strict unknown-field
// rejection. JSON documents decode through the same path (JSON is a YAML
// subset).
func Load(r io.Reader) (*InstallerConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg InstallerConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	return &cfg, nil
}

// LoadFile reads and structurally decodes an installer config document.
func LoadFile(path string) (*InstallerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		var le *ConfigLoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFallback loads the advanced document at advancedPath, falling back to
// the simple document at simplePath when the advanced one is absent. The
// simple shape carries only configFields and installSteps; prechecks,
// postInstall and prompt/display variants appear only in advanced documents.
func LoadFallback(advancedPath, simplePath string) (*InstallerConfig, error) {
	if _, err := os.Stat(advancedPath); err == nil {
		return LoadFile(advancedPath)
	}
	cfg, err := LoadFile(simplePath)
	if err != nil {
		return nil, err
	}
	cfg.PreChecks = nil
	cfg.PostInstall = nil
	return cfg, nil
}
