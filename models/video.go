package models

import (
	"time"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// Video is one search hit, tagged and later transcribed. Field names are the
// single source of truth for both the ad flag and the ad filter.
type Video struct {
	Keyword       string `json:"keyword"`
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ChannelName   string `json:"channel_name"`
	PublishedDate string `json:"published_date"`
	ViewCount     uint64 `json:"view_count"`
	URL           string `json:"url"`
	IsAd          bool   `json:"is_ad"`
	Transcript    string `json:"transcript"`
}

func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

// Column identifies a field in the published sheet schema.
type Column int

const (
	ColKeyword Column = iota
	ColVideoID
	ColTitle
	ColDescription
	ColChannelName
	ColPublishedDate
	ColViewCount
	ColURL
	ColIsAd
	ColTranscript
)

// Columns is the fixed published column order.
var Columns = []Column{
	ColKeyword,
	ColVideoID,
	ColTitle,
	ColDescription,
	ColChannelName,
	ColPublishedDate,
	ColViewCount,
	ColURL,
	ColIsAd,
	ColTranscript,
}

var columnLabels = map[Column]string{
	ColKeyword:       "검색 키워드",
	ColVideoID:       "비디오 ID",
	ColTitle:         "제목",
	ColDescription:   "설명",
	ColChannelName:   "채널명",
	ColPublishedDate: "올린 날짜",
	ColViewCount:     "조회수",
	ColURL:           "URL",
	ColIsAd:          "광고성 표현 (T/F)",
	ColTranscript:    "STT 변환 결과",
}

func (c Column) Label() string {
	return columnLabels[c]
}

// Header returns the sheet header row in Columns order.
func Header() []interface{} {
	row := make([]interface{}, len(Columns))
	for i, c := range Columns {
		row[i] = c.Label()
	}
	return row
}

func (v *Video) value(c Column) interface{} {
	switch c {
	case ColKeyword:
		return v.Keyword
	case ColVideoID:
		return v.VideoID
	case ColTitle:
		return v.Title
	case ColDescription:
		return v.Description
	case ColChannelName:
		return v.ChannelName
	case ColPublishedDate:
		return v.PublishedDate
	case ColViewCount:
		return v.ViewCount
	case ColURL:
		return v.URL
	case ColIsAd:
		return v.IsAd
	case ColTranscript:
		return v.Transcript
	}
	return ""
}

// Row returns the video's cells in Columns order.
func (v *Video) Row() []interface{} {
	row := make([]interface{}, len(Columns))
	for i, c := range Columns {
		row[i] = v.value(c)
	}
	return row
}

// Table is an ordered batch of videos for one keyword.
type Table []*Video

// Concat joins tables in order.
func Concat(tables ...Table) Table {
	var n int
	for _, t := range tables {
		n += len(t)
	}
	out := make(Table, 0, n)
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

func (t Table) Rows() [][]interface{} {
	rows := make([][]interface{}, len(t))
	for i, v := range t {
		rows[i] = v.Row()
	}
	return rows
}

// PublishedDate formats an RFC 3339 timestamp as YYYY-MM-DD in UTC.
func PublishedDate(publishedAt string) (string, error) {
	ts, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return "", err
	}
	return ts.UTC().Format("2006-01-02"), nil
}
