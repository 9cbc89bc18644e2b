package security

import (
	"strings"
	"testing"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain slot", "  7PM  ", "7PM"},
		{"Strips tags", "<b>7PM</b>", "7PM"},
		{"Strips script", "<script>alert(1)</script>IST", "IST"},
		{"Null bytes", "7\x00PM", "7PM"},
		{"Caps length", strings.Repeat("a", 100), strings.Repeat("a", maxInputLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeInput(tt.input); got != tt.want {
				t.Errorf("SanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSlotInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"7PM", true},
		{"7:30pm-9pm", true},
		{"۷PM", true},
		{"IST", true},
		{"", false},
		{"7PM; DROP TABLE", false},
		{"7PM<br>", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidateSlotInput(tt.input); got != tt.want {
				t.Errorf("ValidateSlotInput(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
