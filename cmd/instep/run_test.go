package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/instep-sh/instep/pkg/engine"
	"github.com/instep-sh/instep/pkg/schema"
)

func TestParseSetFlags(t *testing.T) {
	got, err := parseSetFlags([]string{"host=db1", "port=5432", "flag=a=b"})
	if err != nil {
		t.Fatalf("parseSetFlags error: %v", err)
	}
	if got["host"] != "db1" || got["port"] != "5432" || got["flag"] != "a=b" {
		t.Errorf("parseSetFlags = %v", got)
	}

	if _, err := parseSetFlags([]string{"noequals"}); err == nil {
		t.Error("parseSetFlags accepted a pair without '='")
	}
	if _, err := parseSetFlags([]string{"=value"}); err == nil {
		t.Error("parseSetFlags accepted an empty key")
	}
}

func TestCollectFieldsNonInteractive(t *testing.T) {
	fields := []schema.ConfigField{
		{ID: "host", Type: schema.FieldText, Default: "localhost"},
		{ID: "port", Type: schema.FieldNumber, Default: float64(8080)},
		{ID: "note", Type: schema.FieldText},
	}

	values, err := collectFields(fields, map[string]any{"host": "db1"}, true)
	if err != nil {
		t.Fatalf("collectFields error: %v", err)
	}
	if values["host"] != "db1" {
		t.Errorf("host = %v, want preset to win over default", values["host"])
	}
	if values["port"] != float64(8080) {
		t.Errorf("port = %v, want default", values["port"])
	}
	if _, ok := values["note"]; ok {
		t.Error("optional field without default should be absent")
	}
}

func TestCollectFieldsNonInteractiveRequiresDefault(t *testing.T) {
	fields := []schema.ConfigField{
		{ID: "token", Type: schema.FieldPassword, Required: true},
	}
	if _, err := collectFields(fields, nil, true); err == nil {
		t.Error("required field without default accepted in non-interactive mode")
	}
}

func TestFieldValidator(t *testing.T) {
	three, ten := 3, 10
	tests := []struct {
		name    string
		field   schema.ConfigField
		answer  string
		wantErr bool
	}{
		{"required empty", schema.ConfigField{Required: true}, "", true},
		{"optional empty", schema.ConfigField{}, "", false},
		{"below min length", schema.ConfigField{MinLength: &three}, "ab", true},
		{"above max length", schema.ConfigField{MaxLength: &ten}, "abcdefghijk", true},
		{"pattern mismatch", schema.ConfigField{Validation: `^\d+$`}, "abc", true},
		{"pattern match", schema.ConfigField{Validation: `^\d+$`}, "123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fieldValidator(tt.field)(tt.answer)
			if (err != nil) != tt.wantErr {
				t.Errorf("fieldValidator(%q) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
			}
		})
	}
}

func TestNumberValidator(t *testing.T) {
	lo, hi := 1.0, 100.0
	field := schema.ConfigField{Min: &lo, Max: &hi}
	if err := numberValidator(field)("50"); err != nil {
		t.Errorf("in-range number rejected: %v", err)
	}
	if err := numberValidator(field)("0"); err == nil {
		t.Error("below-min number accepted")
	}
	if err := numberValidator(field)("101"); err == nil {
		t.Error("above-max number accepted")
	}
	if err := numberValidator(field)("not-a-number"); err == nil {
		t.Error("non-numeric input accepted")
	}
}

func TestAnswerPromptNonInteractive(t *testing.T) {
	got, err := answerPrompt(engine.PromptRequest{Message: "Port?", Default: "8080"}, true)
	if err != nil {
		t.Fatalf("answerPrompt error: %v", err)
	}
	if got != "8080" {
		t.Errorf("answerPrompt = %v, want default", got)
	}

	if _, err := answerPrompt(engine.PromptRequest{Message: "Name?"}, true); err == nil {
		t.Error("prompt without default accepted in non-interactive mode")
	}
}

func TestLoadRunConfigSimpleStripsExtras(t *testing.T) {
	doc := `preChecks:
  - name: Disk
    command: df -m /
installSteps:
  - name: Install
    commands:
      - cmd: echo install
postInstall:
  - cmd: echo done
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadRunConfig(path, false)
	if err != nil {
		t.Fatalf("loadRunConfig error: %v", err)
	}
	if len(cfg.PreChecks) != 1 || len(cfg.PostInstall) != 1 {
		t.Errorf("full load dropped sections: preChecks=%d postInstall=%d", len(cfg.PreChecks), len(cfg.PostInstall))
	}

	cfg, err = loadRunConfig(path, true)
	if err != nil {
		t.Fatalf("loadRunConfig simple error: %v", err)
	}
	if cfg.PreChecks != nil || cfg.PostInstall != nil {
		t.Errorf("simple load kept sections: preChecks=%v postInstall=%v", cfg.PreChecks, cfg.PostInstall)
	}
	if len(cfg.InstallSteps) != 1 {
		t.Errorf("simple load lost install steps: %v", cfg.InstallSteps)
	}
}
