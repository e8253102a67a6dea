package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/db"
)

const testVideoID = "dQw4w9WgXcQ"

type fakeDownloader struct {
	writeFile bool
	err       error
	calls     int
	lastURL   string
}

func (f *fakeDownloader) Download(ctx context.Context, watchURL, outputTemplate string) error {
	f.calls++
	f.lastURL = watchURL
	if f.err != nil {
		return f.err
	}
	if f.writeFile {
		path := strings.Replace(outputTemplate, "%(ext)s", "mp3", 1)
		return os.WriteFile(path, []byte("audio"), 0o644)
	}
	return nil
}

type fakeRecognizer struct {
	segments []Segment
	err      error
	model    string
	calls    int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audioPath string) ([]Segment, error) {
	f.calls++
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio missing: %w", err)
	}
	return f.segments, f.err
}

func (f *fakeRecognizer) Close() error {
	return nil
}

func (f *fakeRecognizer) ModelName() string {
	if f.model == "" {
		return "base"
	}
	return f.model
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][3]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][3]string)}
}

func (m *memoryCache) GetTranscript(ctx context.Context, videoID string) (string, string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[videoID]
	if !ok {
		return "", db.StatusPending, "", nil
	}
	return e[0], e[1], e[2], nil
}

func (m *memoryCache) SetTranscript(ctx context.Context, videoID, text, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[videoID] = [3]string{text, db.StatusCompleted, modelName}
	return nil
}

func (m *memoryCache) SetTranscriptFailed(ctx context.Context, videoID, modelName, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[videoID] = [3]string{"", db.StatusFailed, modelName}
	return nil
}

func testOptions(t *testing.T) Options {
	return Options{
		AudioFormat: "mp3",
		TempDir:     t.TempDir(),
		Corrections: config.DefaultCorrections,
	}
}

func TestTranscribe(t *testing.T) {
	dl := &fakeDownloader{writeFile: true}
	rec := &fakeRecognizer{segments: []Segment{
		{Text: " 주기세포  시술"},
		{Text: "상담 문의 "},
	}}
	tr := New(testOptions(t), dl, rec, nil)

	out := tr.Transcribe(context.Background(), testVideoID)
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Text != "줄기세포 시술 상담 문의" {
		t.Errorf("unexpected text %q", out.Text)
	}
	if out.Cell() != out.Text {
		t.Errorf("expected cell to be the text, got %q", out.Cell())
	}
	if dl.lastURL != "https://www.youtube.com/watch?v="+testVideoID {
		t.Errorf("unexpected download url %q", dl.lastURL)
	}
}

func TestTranscribeNoAudio(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := New(testOptions(t), &fakeDownloader{}, rec, nil)

	out := tr.Transcribe(context.Background(), testVideoID)
	if !errors.Is(out.Err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", out.Err)
	}
	if out.Cell() != NoAudioSentinel {
		t.Errorf("expected %q, got %q", NoAudioSentinel, out.Cell())
	}
	if rec.calls != 0 {
		t.Errorf("recognizer should not run without audio")
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name string
		dl   *fakeDownloader
		rec  *fakeRecognizer
		want string
	}{
		{
			name: "download failure",
			dl:   &fakeDownloader{err: errors.New("HTTP Error 403")},
			rec:  &fakeRecognizer{},
			want: "HTTP Error 403",
		},
		{
			name: "recognizer failure",
			dl:   &fakeDownloader{writeFile: true},
			rec:  &fakeRecognizer{err: errors.New("model crashed")},
			want: "model crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemoryCache()
			tr := New(testOptions(t), tt.dl, tt.rec, cache)

			out := tr.Transcribe(context.Background(), testVideoID)
			if out.OK() {
				t.Fatal("expected failure")
			}
			cell := out.Cell()
			if !strings.HasPrefix(cell, ErrorPrefix) || !strings.Contains(cell, tt.want) {
				t.Errorf("unexpected cell %q", cell)
			}
			if _, status, _, _ := cache.GetTranscript(context.Background(), testVideoID); status != db.StatusFailed {
				t.Errorf("expected failed status in cache, got %q", status)
			}
		})
	}
}

func TestTranscribeInvalidID(t *testing.T) {
	dl := &fakeDownloader{writeFile: true}
	tr := New(testOptions(t), dl, &fakeRecognizer{}, nil)

	out := tr.Transcribe(context.Background(), "not-an-id")
	if out.OK() {
		t.Fatal("expected failure for invalid id")
	}
	if dl.calls != 0 {
		t.Errorf("downloader should not run for invalid id")
	}
}

func TestTranscribeUsesCache(t *testing.T) {
	cache := newMemoryCache()
	dl := &fakeDownloader{writeFile: true}
	rec := &fakeRecognizer{segments: []Segment{{Text: "첫 번째"}}}
	tr := New(testOptions(t), dl, rec, cache)

	first := tr.Transcribe(context.Background(), testVideoID)
	second := tr.Transcribe(context.Background(), testVideoID)

	if first.Cached || !second.Cached {
		t.Errorf("expected only the second call to be cached")
	}
	if second.Text != first.Text {
		t.Errorf("expected cached text %q, got %q", first.Text, second.Text)
	}
	if dl.calls != 1 {
		t.Errorf("expected 1 download, got %d", dl.calls)
	}
}

func TestTranscribeIgnoresCacheFromOtherModel(t *testing.T) {
	cache := newMemoryCache()
	cache.SetTranscript(context.Background(), testVideoID, "old text", "tiny")

	dl := &fakeDownloader{writeFile: true}
	rec := &fakeRecognizer{segments: []Segment{{Text: "new text"}}, model: "base"}
	tr := New(testOptions(t), dl, rec, cache)

	out := tr.Transcribe(context.Background(), testVideoID)
	if out.Cached || out.Text != "new text" {
		t.Errorf("expected fresh transcript, got %+v", out)
	}
}

func TestTranscribeAppliesCorrectionsToCachedText(t *testing.T) {
	cache := newMemoryCache()
	cache.SetTranscript(context.Background(), testVideoID, "주기세포  시술", "base")

	dl := &fakeDownloader{writeFile: true}
	tr := New(testOptions(t), dl, &fakeRecognizer{}, cache)

	out := tr.Transcribe(context.Background(), testVideoID)
	if !out.Cached {
		t.Fatalf("expected cache hit, got %+v", out)
	}
	if out.Text != "줄기세포 시술" {
		t.Errorf("expected current corrections on cached text, got %q", out.Text)
	}
	if dl.calls != 0 {
		t.Errorf("cache hit should not download")
	}
}

func TestTranscribeRemovesTempFiles(t *testing.T) {
	opts := testOptions(t)
	tr := New(opts, &fakeDownloader{writeFile: true}, &fakeRecognizer{segments: []Segment{{Text: "x"}}}, nil)

	tr.Transcribe(context.Background(), testVideoID)

	entries, err := os.ReadDir(opts.TempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     string
	}{
		{"empty", nil, ""},
		{"single", []Segment{{Text: "  안녕하세요  "}}, "안녕하세요"},
		{"joins", []Segment{{Text: "a"}, {Text: "b"}, {Text: "c"}}, "a b c"},
		{"newlines", []Segment{{Text: "a\n\nb"}, {Text: "\tc"}}, "a b c"},
		{"unicode whitespace", []Segment{{Text: "줄기세포\u3000\u3000치료"}, {Text: "\u00a0비급여\v\v항목"}}, "줄기세포 치료 비급여 항목"},
		{"corrections", []Segment{{Text: "주기세포"}, {Text: "문제"}}, "줄기세포 문제"},
		{"ordered corrections", []Segment{{Text: "도수치료법 상담"}}, "도수치료 상담"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.segments, config.DefaultCorrections)
			if got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}
