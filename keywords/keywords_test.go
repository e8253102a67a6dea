package keywords

import (
	"testing"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/models"
)

func TestIsAd(t *testing.T) {
	m := NewMatcher(config.DefaultAdKeywords)

	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{"term in title", "무릎 줄기세포 특가 안내", "", true},
		{"term in description", "무릎 통증", "지금 상담 받으세요", true},
		{"no term", "무릎 통증 운동법", "스트레칭 소개", false},
		{"term spans the boundary", "무료", "검진", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsAd(tt.title, tt.description); got != tt.want {
				t.Errorf("IsAd(%q, %q) = %v, want %v", tt.title, tt.description, got, tt.want)
			}
		})
	}
}

func TestMatchIsCaseSensitive(t *testing.T) {
	m := NewMatcher([]string{"Sale"})

	if m.Match("big sale today") {
		t.Error("expected lowercase text not to match")
	}
	if !m.Match("Big Sale today") {
		t.Error("expected exact-case text to match")
	}
}

func TestEmptyMatcherMatchesNothing(t *testing.T) {
	m := NewMatcher(nil)
	if m.Match("할인 이벤트") {
		t.Error("expected empty matcher to match nothing")
	}
}

func TestFilter(t *testing.T) {
	m := NewMatcher(config.DefaultAdKeywords)

	videos := []*models.Video{
		{VideoID: "a", Title: "도수치료 할인", Description: ""},
		{VideoID: "b", Title: "도수치료 후기", Description: "일상 브이로그"},
		{VideoID: "c", Title: "여유증", Description: "무료 상담 가능"},
	}

	got := m.Filter(videos)
	if len(got) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(got))
	}
	if got[0].VideoID != "a" || got[1].VideoID != "c" {
		t.Errorf("expected order [a c], got [%s %s]", got[0].VideoID, got[1].VideoID)
	}
	for _, v := range got {
		if !v.IsAd {
			t.Errorf("video %s passed the filter but IsAd is false", v.VideoID)
		}
		if !m.IsAd(v.Title, v.Description) {
			t.Errorf("video %s passed the filter but fails the predicate", v.VideoID)
		}
	}
}

func TestFilterAgreesWithIsAdFlag(t *testing.T) {
	m := NewMatcher(config.DefaultAdKeywords)

	videos := []*models.Video{
		{VideoID: "stale", Title: "혜택 안내", IsAd: false},
		{VideoID: "lying", Title: "운동법", IsAd: true},
	}

	got := m.Filter(videos)
	if len(got) != 1 || got[0].VideoID != "stale" {
		t.Fatalf("expected only 'stale' to pass, got %v", got)
	}
	if !got[0].IsAd {
		t.Error("expected IsAd to be set on kept video")
	}
}
