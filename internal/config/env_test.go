package config

import (
	"testing"
	"time"
)

func TestEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true", value: "true", def: false, expected: true},
		{name: "numeric one", value: "1", def: false, expected: true},
		{name: "yes", value: "yes", def: false, expected: true},
		{name: "mixed case", value: "TRUE", def: false, expected: true},
		{name: "false", value: "false", def: true, expected: false},
		{name: "zero", value: "0", def: true, expected: false},
		{name: "unset uses default", value: "", def: true, expected: true},
		{name: "garbage uses default", value: "maybe", def: false, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_ENV_BOOL", tt.value)
			}
			if got := envBool("TEST_ENV_BOOL", tt.def); got != tt.expected {
				t.Errorf("envBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "15")
	if got := envInt("TEST_ENV_INT", 3); got != 15 {
		t.Errorf("envInt() = %d, want 15", got)
	}
	t.Setenv("TEST_ENV_INT", "not-a-number")
	if got := envInt("TEST_ENV_INT", 3); got != 3 {
		t.Errorf("envInt() with invalid value = %d, want default 3", got)
	}
	if got := envInt("TEST_ENV_INT_UNSET", 7); got != 7 {
		t.Errorf("envInt() unset = %d, want default 7", got)
	}
}

func TestEnvDur(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "90s")
	if got := envDur("TEST_ENV_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("envDur() = %v, want 90s", got)
	}
	if got := envDur("TEST_ENV_DUR_UNSET", time.Minute); got != time.Minute {
		t.Errorf("envDur() unset = %v, want 1m", got)
	}
}
