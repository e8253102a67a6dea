package utils

import (
	"strings"

	"github.com/nijaru/yt-adwatch/config"
)

// CollapseWhitespace turns every run of Unicode whitespace (including U+3000
// and NBSP) into one space and trims.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ApplyCorrections performs each literal replacement in order.
func ApplyCorrections(text string, corrections []config.Correction) string {
	for _, c := range corrections {
		if c.Wrong == "" {
			continue
		}
		text = strings.ReplaceAll(text, c.Wrong, c.Correct)
	}
	return text
}
