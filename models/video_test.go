package models

import (
	"reflect"
	"testing"
)

func TestRowFollowsColumnOrder(t *testing.T) {
	v := &Video{
		Keyword:       "줄기세포",
		VideoID:       "abcdefghijk",
		Title:         "title",
		Description:   "desc",
		ChannelName:   "channel",
		PublishedDate: "2026-10-18",
		ViewCount:     42,
		URL:           WatchURL("abcdefghijk"),
		IsAd:          true,
		Transcript:    "text",
	}

	want := []interface{}{
		"줄기세포", "abcdefghijk", "title", "desc", "channel",
		"2026-10-18", uint64(42), "https://www.youtube.com/watch?v=abcdefghijk", true, "text",
	}
	if got := v.Row(); !reflect.DeepEqual(got, want) {
		t.Errorf("Row() = %v, want %v", got, want)
	}
}

func TestHeaderIncludesTranscript(t *testing.T) {
	header := Header()
	if len(header) != len(Columns) {
		t.Fatalf("expected %d header cells, got %d", len(Columns), len(header))
	}
	if header[0] != "검색 키워드" {
		t.Errorf("expected first header '검색 키워드', got %v", header[0])
	}
	if header[len(header)-1] != ColTranscript.Label() {
		t.Errorf("expected last header to be the transcript column, got %v", header[len(header)-1])
	}
}

func TestConcat(t *testing.T) {
	a := Table{{VideoID: "a1"}, {VideoID: "a2"}}
	b := Table{{VideoID: "b1"}}

	got := Concat(a, nil, b)
	if len(got) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(got))
	}
	for i, id := range []string{"a1", "a2", "b1"} {
		if got[i].VideoID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].VideoID)
		}
	}
}

func TestPublishedDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2026-10-18T03:04:05Z", "2026-10-18", false},
		{"2026-10-18T23:30:00-02:00", "2026-10-19", false},
		{"yesterday", "", true},
	}

	for _, tt := range tests {
		got, err := PublishedDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("PublishedDate(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("PublishedDate(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
