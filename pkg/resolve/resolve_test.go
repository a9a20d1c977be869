package resolve

import (
	"reflect"
	"testing"

	"github.com/instep-sh/instep/pkg/vars"
)

func testStore() *vars.Store {
	s := vars.New()
	s.Set("host", "db01")
	s.Set("port", 5432)
	s.Set("enableTLS", true)
	s.Set("disableCache", false)
	s.Set("features", []string{"auth", "metrics"})
	s.Set("empty", "")
	return s
}

func TestCommandSubstitution(t *testing.T) {
	s := testStore()
	tests := []struct {
		in   string
		want string
	}{
		{"psql -h {{host}} -p {{port}}", "psql -h db01 -p 5432"},
		{"tls={{enableTLS}} cache={{disableCache}}", "tls=true cache=false"},
		{"enable --features {{features}}", "enable --features auth,metrics"},
		{"echo {{missing}}", "echo "},
		{"echo {{empty}}", "echo "},
		{"no placeholders here", "no placeholders here"},
		{"spaces {{ host }}", "spaces db01"},
	}
	for _, tt := range tests {
		if got := Command(tt.in, s); got != tt.want {
			t.Errorf("Command(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplaySubstitution(t *testing.T) {
	s := testStore()
	tests := []struct {
		in   string
		want string
	}{
		{"TLS: {{enableTLS}}", "TLS: Yes"},
		{"Cache disabled: {{disableCache}}", "Cache disabled: No"},
		{"Features: {{features}}", "Features: auth, metrics"},
		{"Proxy: {{missing}}", "Proxy: <not set>"},
		{"Comment: {{empty}}", "Comment: <not set>"},
	}
	for _, tt := range tests {
		if got := Display(tt.in, s); got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Resolving the same template twice against the same store yields identical
// output, and a template without placeholders comes back unchanged.
func TestResolutionDeterminism(t *testing.T) {
	s := testStore()
	tmpl := "install --host {{host}} --features {{features}} --x {{missing}}"
	first := Command(tmpl, s)
	second := Command(tmpl, s)
	if first != second {
		t.Errorf("non-deterministic resolution: %q vs %q", first, second)
	}
	plain := "apt-get update"
	if got := Command(plain, s); got != plain {
		t.Errorf("Command(%q) = %q, want unchanged", plain, got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} {{b}} {{ a }} text {{c}}")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders = %v, want %v", got, want)
	}
	if names := Placeholders("nothing"); names != nil {
		t.Errorf("Placeholders(nothing) = %v, want nil", names)
	}
}
