package transcription

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-adwatch/config"
)

var execCommand = exec.CommandContext

// Downloader fetches a video's best audio track and leaves a transcoded file
// at outputTemplate, where "%(ext)s" is replaced by the audio format.
type Downloader interface {
	Download(ctx context.Context, watchURL, outputTemplate string) error
}

// YtDlp downloads with the yt-dlp binary; its -x post-processor does the
// ffmpeg transcode.
type YtDlp struct {
	Path           string
	CookiesFile    string
	AudioFormat    string
	AudioQuality   string
	Retries        int
	InitialBackoff time.Duration
}

func NewYtDlp(cfg config.DownloadConfig) *YtDlp {
	return &YtDlp{
		Path:           cfg.YtDlpPath,
		CookiesFile:    cfg.CookiesFile,
		AudioFormat:    cfg.AudioFormat,
		AudioQuality:   cfg.AudioQuality,
		Retries:        cfg.Retries,
		InitialBackoff: 2 * time.Second,
	}
}

func (y *YtDlp) args(watchURL, outputTemplate string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", y.AudioFormat,
		"--audio-quality", audioQualityArg(y.AudioQuality),
		"-o", outputTemplate,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
	}
	if y.CookiesFile != "" {
		if _, err := os.Stat(y.CookiesFile); err == nil {
			args = append(args, "--cookies", y.CookiesFile)
		} else {
			logrus.WithField("cookies_file", y.CookiesFile).Warn("Cookies file not found, downloading without cookies")
		}
	}
	return append(args, watchURL)
}

// audioQualityArg maps a bare bitrate such as "192" to yt-dlp's "192K";
// values 0-10 are VBR levels and pass through.
func audioQualityArg(q string) string {
	if n, err := strconv.Atoi(q); err == nil && n > 10 {
		return q + "K"
	}
	return q
}

func (y *YtDlp) Download(ctx context.Context, watchURL, outputTemplate string) error {
	logger := logrus.WithFields(logrus.Fields{
		"op":  "YtDlp.Download",
		"url": watchURL,
	})

	retries := y.Retries
	if retries <= 0 {
		retries = 1
	}

	operation := func() (struct{}, error) {
		cmd := execCommand(ctx, y.Path, y.args(watchURL, outputTemplate)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		err := cmd.Run()
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, exec.ErrNotFound) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(errors.Wrapf(err, "running %s", y.Path))
		}
		return struct{}{}, errors.Wrapf(err, "yt-dlp failed: %s", stderr.String())
	}

	bo := backoff.NewExponentialBackOff()
	if y.InitialBackoff > 0 {
		bo.InitialInterval = y.InitialBackoff
	}
	bo.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(retries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WithError(err).WithField("backoff_duration", next).Warn("Download attempt failed")
		}),
	)
	return err
}
