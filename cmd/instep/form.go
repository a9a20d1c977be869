package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"

	"github.com/instep-sh/instep/pkg/engine"
	"github.com/instep-sh/instep/pkg/schema"
	"github.com/instep-sh/instep/pkg/vars"
)

// collectFields gathers configuration values, one survey question per field.
// Preset values (--set) win without prompting. In non-interactive mode every
// field must resolve from preset or default.
func collectFields(fields []schema.ConfigField, preset map[string]any, nonInteractive bool) (map[string]any, error) {
	values := make(map[string]any, len(fields)+len(preset))
	for k, v := range preset {
		values[k] = v
	}

	for _, field := range fields {
		if _, ok := values[field.ID]; ok {
			continue
		}
		if nonInteractive {
			if field.Default == nil {
				if field.Required {
					return nil, fmt.Errorf("field %q has no default; provide --set %s=...", field.ID, field.ID)
				}
				continue
			}
			values[field.ID] = field.Default
			continue
		}
		v, err := askField(field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.ID, err)
		}
		values[field.ID] = v
	}
	return values, nil
}

func askField(field schema.ConfigField) (any, error) {
	label := field.Label
	if label == "" {
		label = field.ID
	}

	switch field.Type {
	case schema.FieldBoolean:
		def := false
		if b, ok := field.Default.(bool); ok {
			def = b
		}
		var answer bool
		prompt := &survey.Confirm{Message: label, Default: def, Help: field.Help}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.FieldSelect:
		prompt := &survey.Select{Message: label, Options: field.Options, Help: field.Help}
		if def := vars.CommandString(field.Default); def != "" {
			prompt.Default = def
		}
		var answer string
		if err := survey.AskOne(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.FieldPassword:
		var answer string
		prompt := &survey.Password{Message: label, Help: field.Help}
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(fieldValidator(field))); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.FieldNumber:
		prompt := &survey.Input{Message: label, Default: vars.CommandString(field.Default), Help: field.Help}
		var answer string
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(numberValidator(field))); err != nil {
			return nil, err
		}
		if strings.TrimSpace(answer) == "" {
			return field.Default, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return nil, err
		}
		return n, nil

	default: // text
		prompt := &survey.Input{Message: label, Default: vars.CommandString(field.Default), Help: field.Help}
		var answer string
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(fieldValidator(field))); err != nil {
			return nil, err
		}
		return answer, nil
	}
}

// fieldValidator enforces a ConfigField's constraints on a string answer.
func fieldValidator(field schema.ConfigField) survey.Validator {
	return func(ans any) error {
		text, _ := ans.(string)
		text = strings.TrimSpace(text)
		if text == "" {
			if field.Required {
				return fmt.Errorf("a value is required")
			}
			return nil
		}
		if field.MinLength != nil && len(text) < *field.MinLength {
			return fmt.Errorf("must be at least %d characters", *field.MinLength)
		}
		if field.MaxLength != nil && len(text) > *field.MaxLength {
			return fmt.Errorf("must be at most %d characters", *field.MaxLength)
		}
		if field.Validation != "" {
			re, err := regexp.Compile(field.Validation)
			if err != nil {
				return fmt.Errorf("invalid validation pattern: %w", err)
			}
			if !re.MatchString(text) {
				return fmt.Errorf("must match %s", field.Validation)
			}
		}
		return nil
	}
}

func numberValidator(field schema.ConfigField) survey.Validator {
	return func(ans any) error {
		text, _ := ans.(string)
		text = strings.TrimSpace(text)
		if text == "" {
			if field.Required && field.Default == nil {
				return fmt.Errorf("a value is required")
			}
			return nil
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if field.Min != nil && n < *field.Min {
			return fmt.Errorf("must be at least %v", *field.Min)
		}
		if field.Max != nil && n > *field.Max {
			return fmt.Errorf("must be at most %v", *field.Max)
		}
		return nil
	}
}

// answerPrompt asks the user for a suspended prompt's value. The engine owns
// validation; a rejected value comes back as a re-surfaced prompt.
func answerPrompt(req engine.PromptRequest, nonInteractive bool) (any, error) {
	if nonInteractive {
		if req.Default == nil {
			return nil, fmt.Errorf("prompt %q has no default; cannot answer with --yes", req.Message)
		}
		return req.Default, nil
	}

	switch req.PromptType {
	case schema.PromptConfirm:
		def := false
		if b, ok := req.Default.(bool); ok {
			def = b
		}
		var answer bool
		if err := survey.AskOne(&survey.Confirm{Message: req.Message, Default: def}, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.PromptSelect:
		prompt := &survey.Select{Message: req.Message, Options: req.Options}
		if def := vars.CommandString(req.Default); def != "" {
			prompt.Default = def
		}
		var answer string
		if err := survey.AskOne(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.PromptMultiselect:
		var answer []string
		if err := survey.AskOne(&survey.MultiSelect{Message: req.Message, Options: req.Options}, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case schema.PromptPassword:
		var answer string
		if err := survey.AskOne(&survey.Password{Message: req.Message}, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	default: // input
		var answer string
		prompt := &survey.Input{Message: req.Message, Default: vars.CommandString(req.Default)}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil
	}
}
