package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/keywords"
	"github.com/nijaru/yt-adwatch/models"
	"github.com/nijaru/yt-adwatch/sheets"
	"github.com/nijaru/yt-adwatch/transcription"
)

const windowLayout = "2006-01-02T15:04:05Z"

// Window returns the publishedAfter bound: midnight UTC lookbackDays before
// now's UTC date.
func Window(now time.Time, lookbackDays int) string {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -lookbackDays).Format(windowLayout)
}

type Source interface {
	Crawl(ctx context.Context, keyword, publishedAfter string, maxResults int64) ([]*models.Video, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, videoID string) transcription.Outcome
}

// Connector opens the destination worksheet. It is only called when there
// is something to upload.
type Connector func(ctx context.Context) (sheets.Worksheet, error)

type Archiver interface {
	Put(ctx context.Context, runID, date string, videos []*models.Video) error
}

type Ledger interface {
	StartRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, run *models.Run) error
}

type Options struct {
	Keywords     []string
	MaxResults   int64
	LookbackDays int
	Now          func() time.Time
}

type Crawler struct {
	source      Source
	ads         *keywords.Matcher
	transcriber Transcriber
	connect     Connector
	archive     Archiver
	ledger      Ledger
	opts        Options
}

type Report struct {
	RunID              string
	Window             string
	KeywordsSearched   int
	Rows               int
	Uploaded           int
	Transcribed        int
	TranscriptFailures int
}

func New(opts Options, source Source, ads *keywords.Matcher, transcriber Transcriber, connect Connector) *Crawler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 1
	}
	return &Crawler{
		source:      source,
		ads:         ads,
		transcriber: transcriber,
		connect:     connect,
		opts:        opts,
	}
}

func (c *Crawler) WithArchive(a Archiver) *Crawler {
	c.archive = a
	return c
}

func (c *Crawler) WithLedger(l Ledger) *Crawler {
	c.ledger = l
	return c
}

// Run searches every risk keyword, keeps the ad-like videos, transcribes them
// and appends the result to the worksheet. A run that finds nothing returns
// normally without touching the worksheet.
func (c *Crawler) Run(ctx context.Context) (*Report, error) {
	now := c.opts.Now()
	report := &Report{
		RunID:  uuid.New().String(),
		Window: Window(now, c.opts.LookbackDays),
	}
	logger := logrus.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"window": report.Window,
	})

	run := &models.Run{ID: report.RunID, StartedAt: now.UTC(), Status: models.RunRunning}
	c.startRun(ctx, run)

	table, err := c.collect(ctx, report, logger)
	if err != nil {
		c.finishRun(ctx, run, report, err)
		return report, err
	}
	report.Rows = len(table)

	if len(table) == 0 {
		logger.Info("No data today")
		c.finishRun(ctx, run, report, nil)
		return report, nil
	}

	if c.archive != nil {
		if err := c.archive.Put(ctx, report.RunID, now.UTC().Format("2006-01-02"), table); err != nil {
			logger.WithError(err).Warn("Failed to archive run")
		}
	}

	uploaded, err := c.upload(ctx, table)
	if err != nil {
		c.finishRun(ctx, run, report, err)
		return report, err
	}
	report.Uploaded = uploaded

	logger.WithFields(logrus.Fields{
		"keywords":            report.KeywordsSearched,
		"rows":                report.Rows,
		"transcript_failures": report.TranscriptFailures,
	}).Info("Run completed")

	c.finishRun(ctx, run, report, nil)
	return report, nil
}

func (c *Crawler) collect(ctx context.Context, report *Report, logger *logrus.Entry) (models.Table, error) {
	var tables []models.Table

	for _, kw := range c.opts.Keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.KeywordsSearched++
		kwLogger := logger.WithField("keyword", kw)

		videos, err := c.source.Crawl(ctx, kw, report.Window, c.opts.MaxResults)
		if err != nil {
			return nil, err
		}
		if len(videos) == 0 {
			kwLogger.Info("No videos found")
			continue
		}

		ads := c.ads.Filter(videos)
		if len(ads) == 0 {
			kwLogger.WithField("videos", len(videos)).Info("No ad-like videos")
			continue
		}
		kwLogger.WithFields(logrus.Fields{
			"videos": len(videos),
			"ads":    len(ads),
		}).Info("Transcribing ad-like videos")

		for _, v := range ads {
			out := c.transcriber.Transcribe(ctx, v.VideoID)
			v.Transcript = out.Cell()
			if out.OK() {
				report.Transcribed++
			} else {
				report.TranscriptFailures++
			}
		}
		tables = append(tables, models.Table(ads))
	}

	return models.Concat(tables...), nil
}

func (c *Crawler) upload(ctx context.Context, table models.Table) (int, error) {
	const op = "crawler.upload"

	ws, err := c.connect(ctx)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInternal {
			return 0, apperrors.Sheet(op, err, "failed to connect to worksheet")
		}
		return 0, err
	}
	return sheets.Upload(ctx, ws, models.Header(), table.Rows())
}

func (c *Crawler) startRun(ctx context.Context, run *models.Run) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.StartRun(ctx, run); err != nil {
		logrus.WithError(err).Warn("Failed to record run start")
	}
}

func (c *Crawler) finishRun(ctx context.Context, run *models.Run, report *Report, runErr error) {
	if c.ledger == nil {
		return
	}
	run.FinishedAt = time.Now().UTC()
	run.KeywordsSearched = report.KeywordsSearched
	run.RowsUploaded = report.Uploaded
	switch {
	case runErr != nil:
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	case report.Rows == 0:
		run.Status = models.RunEmpty
	default:
		run.Status = models.RunCompleted
	}
	// The run context may already be cancelled.
	if err := c.ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logrus.WithError(err).Warn("Failed to record run result")
	}
}
