package utils

import "testing"

func TestNormalizePersianNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Persian digits", input: "۷PM", want: "7PM"},
		{name: "Arabic digits", input: "١٩:٣٠", want: "19:30"},
		{name: "Already latin", input: "21:00", want: "21:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePersianNumbers(tt.input); got != tt.want {
				t.Errorf("NormalizePersianNumbers(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  7 PM   -  9 PM "); got != "7 PM - 9 PM" {
		t.Errorf("CollapseSpaces() = %q, want %q", got, "7 PM - 9 PM")
	}
}
