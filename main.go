package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/crawler"
	"github.com/nijaru/yt-adwatch/db"
	apperrors "github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/keywords"
	"github.com/nijaru/yt-adwatch/logger"
	"github.com/nijaru/yt-adwatch/sheets"
	"github.com/nijaru/yt-adwatch/storage"
	"github.com/nijaru/yt-adwatch/transcription"
	"github.com/nijaru/yt-adwatch/validation"
	"github.com/nijaru/yt-adwatch/youtube"
)

// app holds what every subcommand needs after start up.
type app struct {
	cfg        *config.Config
	store      *db.Store
	recognizer transcription.Recognizer
	logs       io.Closer
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logs, err := logger.Setup(logger.Config{
		Dir:    cfg.LogDir,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logs: logs}
	if cfg.DBPath != "" {
		a.store, err = db.Open(cfg.DBPath)
		if err != nil {
			logs.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.recognizer != nil {
		if err := a.recognizer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to stop speech recognizer")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database")
		}
	}
	a.logs.Close()
}

func (a *app) cache() transcription.Cache {
	if a.store == nil {
		return nil
	}
	return a.store
}

func (a *app) transcriber() (*transcription.Transcriber, error) {
	recognizer, err := transcription.NewRecognizer(a.cfg.STT)
	if err != nil {
		return nil, err
	}
	a.recognizer = recognizer
	logrus.WithFields(logrus.Fields{
		"backend":    a.cfg.STT.Backend,
		"model_name": recognizer.ModelName(),
	}).Info("Speech recognizer ready")

	return transcription.New(
		transcription.Options{
			AudioFormat: a.cfg.Download.AudioFormat,
			TempDir:     a.cfg.Download.TempDir,
			Timeout:     a.cfg.STT.Timeout,
			Corrections: a.cfg.Keywords.Corrections,
		},
		transcription.NewYtDlp(a.cfg.Download),
		recognizer,
		a.cache(),
	), nil
}

func (a *app) run(ctx context.Context) error {
	ads := keywords.NewMatcher(a.cfg.Keywords.Ad)

	yt, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:            a.cfg.YouTube.APIKey,
		RequestsPerSecond: a.cfg.YouTube.RequestsPerSecond,
		Burst:             a.cfg.YouTube.Burst,
		HTTPTimeout:       a.cfg.YouTube.HTTPTimeout,
	}, ads)
	if err != nil {
		return err
	}

	tr, err := a.transcriber()
	if err != nil {
		return err
	}

	connect := func(ctx context.Context) (sheets.Worksheet, error) {
		if err := a.cfg.ValidateSheets(); err != nil {
			return nil, err
		}
		return sheets.Connect(ctx, sheets.ConfigFrom(a.cfg.Sheets))
	}

	c := crawler.New(crawler.Options{
		Keywords:     a.cfg.Keywords.Risk,
		MaxResults:   a.cfg.YouTube.MaxResults,
		LookbackDays: a.cfg.LookbackDays,
	}, yt, ads, tr, connect)

	archive, err := storage.NewArchive(ctx, a.cfg.Archive)
	if err != nil {
		logrus.WithError(err).Warn("Run archive unavailable")
	} else if archive.Enabled() {
		c.WithArchive(archive)
	}
	if a.store != nil {
		c.WithLedger(a.store)
	}

	report, err := c.Run(ctx)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   report.RunID,
		"rows":     report.Rows,
		"uploaded": report.Uploaded,
	}).Info("Done")
	return nil
}

func newRootCmd() *cobra.Command {
	var historyLimit int

	root := &cobra.Command{
		Use:           "yt-adwatch",
		Short:         "Monitor YouTube for ad-like videos on medical risk keywords",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Search, filter, transcribe and upload today's videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				return a.run(cmd.Context())
			})
		},
	}

	transcribeCmd := &cobra.Command{
		Use:   "transcribe <video-id|url>",
		Short: "Transcribe a single video and print the cleaned text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := validation.ParseVideoID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(a *app) error {
				tr, err := a.transcriber()
				if err != nil {
					return err
				}
				out := tr.Transcribe(cmd.Context(), id)
				if !out.OK() {
					return out.Err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.Text)
				return nil
			})
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if a.store == nil {
					return apperrors.Config("history", nil, "DB_PATH is not set")
				}
				runs, err := a.store.RecentRuns(cmd.Context(), historyLimit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tKEYWORDS\tROWS\tERROR")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
						r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
						r.KeywordsSearched, r.RowsUploaded, r.Error)
				}
				return w.Flush()
			})
		},
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")

	root.RunE = runCmd.RunE
	root.AddCommand(runCmd, transcribeCmd, historyCmd)
	return root
}

func withApp(fn func(a *app) error) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"kind": apperrors.KindOf(err),
			"op":   apperrors.OpOf(err),
		}).WithError(err).Error("Fatal error")
		os.Exit(1)
	}
}
