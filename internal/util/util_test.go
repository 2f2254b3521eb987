package util

import (
	"strings"
	"testing"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"off", true, false},
		{"", true, true},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, c := range cases {
		t.Setenv("TRACKTALK_TEST_BOOL", c.value)
		if got := ParseBoolEnv("TRACKTALK_TEST_BOOL", c.def); got != c.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, expected %v", c.value, c.def, got, c.expected)
		}
	}
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID("req_", 32)
	if !strings.HasPrefix(id, "req_") || len(id) != 36 {
		t.Errorf("unexpected ID format: %q", id)
	}
	if GenerateRandomID("req_", 32) == id {
		t.Error("expected distinct IDs across calls")
	}
}

func TestGenerateRandomHexLength(t *testing.T) {
	if got := GenerateRandomHex(0); got != "" {
		t.Errorf("expected empty string for zero length, got %q", got)
	}
	hex := GenerateRandomHex(16)
	if len(hex) != 16 {
		t.Fatalf("expected 16 chars, got %d", len(hex))
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("non-hex rune %q in %q", r, hex)
		}
	}
}
