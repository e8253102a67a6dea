package utils

import (
	"testing"

	"github.com/nijaru/yt-adwatch/config"
)

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ascii", "  줄기세포   치료는\n\n 비급여\t항목입니다.  ", "줄기세포 치료는 비급여 항목입니다."},
		{"ideographic and nbsp", "줄기세포\u3000\u3000치료\u00a0\u00a0비급여\v\v항목", "줄기세포 치료 비급여 항목"},
		{"next line", "\u0085무료\u2003상담\u3000", "무료 상담"},
		{"only whitespace", " \u3000\u00a0\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if output := CollapseWhitespace(tt.input); output != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, output)
			}
		})
	}
}

func TestApplyCorrections(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		corrections []config.Correction
		expected    string
	}{
		{
			name:        "literal replace",
			input:       "주기세포 문제",
			corrections: []config.Correction{{Wrong: "주기세포", Correct: "줄기세포"}},
			expected:    "줄기세포 문제",
		},
		{
			name:        "default table",
			input:       "도수치료법과 주기세포",
			corrections: config.DefaultCorrections,
			expected:    "도수치료과 줄기세포",
		},
		{
			name:  "order matters",
			input: "abc",
			corrections: []config.Correction{
				{Wrong: "a", Correct: "b"},
				{Wrong: "bb", Correct: "x"},
			},
			expected: "xc",
		},
		{
			name:        "empty wrong is ignored",
			input:       "text",
			corrections: []config.Correction{{Wrong: "", Correct: "!"}},
			expected:    "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyCorrections(tt.input, tt.corrections); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
