package vars

import "testing"

func TestSetOverwrites(t *testing.T) {
	s := New()
	s.Set("region", "eastus")
	s.Set("region", "westus")
	v, ok := s.Get("region")
	if !ok || v != "westus" {
		t.Errorf("Get(region) = %v, %v; want westus, true", v, ok)
	}
	if names := s.Names(); len(names) != 1 {
		t.Errorf("Names() = %v, want single entry", names)
	}
}

func TestSetNormalizesInts(t *testing.T) {
	s := New()
	s.Set("port", 8080)
	v, _ := s.Get("port")
	if v != float64(8080) {
		t.Errorf("Get(port) = %v (%T), want float64 8080", v, v)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New()
	s.Set("a", "1")
	snap := s.Snapshot()
	snap["a"] = "2"
	if v, _ := s.Get("a"); v != "1" {
		t.Errorf("store mutated through snapshot: %v", v)
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"", ""},
		{"abc", "abc"},
		{true, "true"},
		{false, "false"},
		{float64(3), "3"},
		{float64(2.5), "2.5"},
		{[]string{"a", "b"}, "a,b"},
	}
	for _, tt := range tests {
		if got := CommandString(tt.in); got != tt.want {
			t.Errorf("CommandString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "<not set>"},
		{"", "<not set>"},
		{"abc", "abc"},
		{true, "Yes"},
		{false, "No"},
		{[]string{}, "<not set>"},
		{[]string{"a", "b"}, "a, b"},
		{float64(42), "42"},
	}
	for _, tt := range tests {
		if got := DisplayString(tt.in); got != tt.want {
			t.Errorf("DisplayString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"dbPassword", "API_KEY", "sshPrivateKey", "authToken", "clientSecret"}
	for _, name := range sensitive {
		if !IsSensitiveKey(name) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", name)
		}
	}
	plain := []string{"hostname", "installDir", "enableMetrics", "keyboardLayout"}
	for _, name := range plain {
		if IsSensitiveKey(name) {
			t.Errorf("IsSensitiveKey(%q) = true, want false", name)
		}
	}
}

func TestTruthy(t *testing.T) {
	truthy := []any{"yes", true, float64(1), []string{"a"}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%v) = false, want true", v)
		}
	}
	falsy := []any{nil, "", "false", "0", false, float64(0), []string{}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%v) = true, want false", v)
		}
	}
}
