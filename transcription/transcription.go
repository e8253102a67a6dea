package transcription

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/db"
	apperrors "github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/models"
	"github.com/nijaru/yt-adwatch/utils"
	"github.com/nijaru/yt-adwatch/validation"
)

const (
	NoAudioSentinel = "⚠️ 오디오 없음"
	ErrorPrefix     = "⚠️ 오류: "
)

// ErrNoAudio means the download finished without leaving an audio file.
var ErrNoAudio = errors.New("no audio file produced")

// Outcome is the result of transcribing one video. Exactly one of Text and
// Err is meaningful.
type Outcome struct {
	VideoID string
	Text    string
	Err     error
	Cached  bool
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Cell renders the outcome for the transcript column.
func (o Outcome) Cell() string {
	switch {
	case o.Err == nil:
		return o.Text
	case errors.Is(o.Err, ErrNoAudio):
		return NoAudioSentinel
	default:
		return ErrorPrefix + o.Err.Error()
	}
}

// Cache stores finished transcripts between runs. *db.Store satisfies it.
type Cache interface {
	GetTranscript(ctx context.Context, videoID string) (text, status, modelName string, err error)
	SetTranscript(ctx context.Context, videoID, text, modelName string) error
	SetTranscriptFailed(ctx context.Context, videoID, modelName, message string) error
}

type Options struct {
	AudioFormat string
	TempDir     string
	Timeout     time.Duration
	Corrections []config.Correction
}

type Transcriber struct {
	downloader Downloader
	recognizer Recognizer
	cache      Cache
	opts       Options
}

// New builds a Transcriber. cache may be nil.
func New(opts Options, downloader Downloader, recognizer Recognizer, cache Cache) *Transcriber {
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	return &Transcriber{
		downloader: downloader,
		recognizer: recognizer,
		cache:      cache,
		opts:       opts,
	}
}

// Transcribe downloads a video's audio, recognizes it and cleans the text.
// Failures are reported in the Outcome, never returned.
func (t *Transcriber) Transcribe(ctx context.Context, videoID string) Outcome {
	const op = "Transcriber.Transcribe"
	logger := logrus.WithFields(logrus.Fields{
		"op":       op,
		"video_id": videoID,
	})

	if err := validation.ValidateVideoID(videoID); err != nil {
		return Outcome{VideoID: videoID, Err: err}
	}

	modelName := t.recognizer.ModelName()

	if text, ok := t.cached(ctx, videoID, modelName); ok {
		logger.Info("Transcript found in cache")
		return Outcome{VideoID: videoID, Text: text, Cached: true}
	}

	runCtx := ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := t.transcribe(runCtx, videoID)
	if err != nil {
		logger.WithError(err).Warn("Transcription failed")
		if t.cache != nil && !errors.Is(err, ErrNoAudio) {
			if cerr := t.cache.SetTranscriptFailed(ctx, videoID, modelName, err.Error()); cerr != nil {
				logger.WithError(cerr).Warn("Failed to record transcription failure")
			}
		}
		return Outcome{VideoID: videoID, Err: err}
	}

	logger.WithFields(logrus.Fields{
		"duration": time.Since(start).String(),
		"chars":    len(text),
	}).Info("Transcription completed")

	if t.cache != nil {
		if err := t.cache.SetTranscript(ctx, videoID, text, modelName); err != nil {
			logger.WithError(err).Warn("Failed to cache transcript")
		}
	}

	return Outcome{VideoID: videoID, Text: text}
}

func (t *Transcriber) cached(ctx context.Context, videoID, modelName string) (string, bool) {
	if t.cache == nil {
		return "", false
	}
	text, status, cachedModel, err := t.cache.GetTranscript(ctx, videoID)
	if err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Warn("Transcript cache lookup failed")
		return "", false
	}
	if status != db.StatusCompleted || cachedModel != modelName {
		return "", false
	}
	// The correction table may have changed since the text was stored.
	return cleanText(text, t.opts.Corrections), true
}

func (t *Transcriber) transcribe(ctx context.Context, videoID string) (string, error) {
	const op = "Transcriber.transcribe"

	dir, err := os.MkdirTemp(t.opts.TempDir, "yt-adwatch-")
	if err != nil {
		return "", apperrors.Internal(op, err, "failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	template := filepath.Join(dir, videoID+".%(ext)s")
	if err := t.downloader.Download(ctx, models.WatchURL(videoID), template); err != nil {
		return "", apperrors.Transcription(op, err, "download failed")
	}

	audioPath := filepath.Join(dir, videoID+"."+t.opts.AudioFormat)
	if _, err := os.Stat(audioPath); err != nil {
		return "", ErrNoAudio
	}

	segments, err := t.recognizer.Recognize(ctx, audioPath)
	if err != nil {
		return "", apperrors.Transcription(op, err, "speech recognition failed")
	}

	return Clean(segments, t.opts.Corrections), nil
}

// Clean joins segment texts with single spaces, applies corrections in order
// and collapses whitespace.
func Clean(segments []Segment, corrections []config.Correction) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return cleanText(strings.Join(parts, " "), corrections)
}

func cleanText(text string, corrections []config.Correction) string {
	return utils.CollapseWhitespace(utils.ApplyCorrections(text, corrections))
}
