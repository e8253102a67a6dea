// Package keywords classifies videos as advertising-like by literal,
// case-sensitive substring matching against a fixed term list.
package keywords

import (
	"strings"

	"github.com/nijaru/yt-adwatch/models"
)

type Matcher struct {
	terms []string
}

func NewMatcher(terms []string) *Matcher {
	cp := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			cp = append(cp, t)
		}
	}
	return &Matcher{terms: cp}
}

// Match reports whether any term occurs in text as an exact substring.
func (m *Matcher) Match(text string) bool {
	for _, term := range m.terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// IsAd applies Match to title and description concatenated without a separator.
func (m *Matcher) IsAd(title, description string) bool {
	return m.Match(title + description)
}

// Filter returns the videos that pass IsAd, in their original order. The
// videos' IsAd flag is recomputed from the same predicate so the two can
// never disagree.
func (m *Matcher) Filter(videos []*models.Video) []*models.Video {
	out := make([]*models.Video, 0, len(videos))
	for _, v := range videos {
		if m.IsAd(v.Title, v.Description) {
			v.IsAd = true
			out = append(out, v)
		}
	}
	return out
}
