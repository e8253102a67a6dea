package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nijaru/yt-adwatch/models"
)

var store *Store

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "yt-adwatch-db")
	if err != nil {
		panic("Failed to create temp dir: " + err.Error())
	}

	store, err = Open(filepath.Join(dir, "test.db"))
	if err != nil {
		panic("Failed to initialize database: " + err.Error())
	}

	code := m.Run()

	store.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestSetAndGetTranscript(t *testing.T) {
	ctx := context.Background()
	videoID := "aaaaaaaaaaa"

	if err := store.SetTranscript(ctx, videoID, "줄기세포 치료 안내", "base"); err != nil {
		t.Fatalf("Failed to set transcript: %v", err)
	}

	text, status, modelName, err := store.GetTranscript(ctx, videoID)
	if err != nil {
		t.Fatalf("Failed to get transcript: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("expected status 'completed', got %s", status)
	}
	if text != "줄기세포 치료 안내" {
		t.Errorf("unexpected text '%s'", text)
	}
	if modelName != "base" {
		t.Errorf("expected model 'base', got '%s'", modelName)
	}
}

func TestGetTranscript_Unknown(t *testing.T) {
	_, status, _, err := store.GetTranscript(context.Background(), "zzzzzzzzzzz")
	if err != nil {
		t.Fatalf("Failed to get transcript: %v", err)
	}
	if status != StatusPending {
		t.Errorf("expected status 'pending', got '%s'", status)
	}
}

func TestSetTranscriptFailed(t *testing.T) {
	ctx := context.Background()
	videoID := "bbbbbbbbbbb"

	if err := store.SetTranscript(ctx, videoID, "old", "base"); err != nil {
		t.Fatalf("Failed to set transcript: %v", err)
	}
	if err := store.SetTranscriptFailed(ctx, videoID, "base", "download failed"); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	_, status, _, err := store.GetTranscript(ctx, videoID)
	if err != nil {
		t.Fatalf("Failed to get transcript: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("expected status 'failed', got '%s'", status)
	}
}

func TestRunLedger(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC)

	older := &models.Run{ID: "run-older", StartedAt: started.Add(-24 * time.Hour), Status: models.RunRunning}
	newer := &models.Run{ID: "run-newer", StartedAt: started, Status: models.RunRunning}

	for _, run := range []*models.Run{older, newer} {
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("Failed to start run: %v", err)
		}
	}

	newer.Status = models.RunCompleted
	newer.FinishedAt = started.Add(10 * time.Minute)
	newer.KeywordsSearched = 12
	newer.RowsUploaded = 7
	if err := store.FinishRun(ctx, newer); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) < 2 {
		t.Fatalf("expected at least 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-newer" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
	if runs[0].Status != models.RunCompleted || runs[0].RowsUploaded != 7 || runs[0].KeywordsSearched != 12 {
		t.Errorf("unexpected finished run: %+v", runs[0])
	}
	if runs[1].Status != models.RunRunning {
		t.Errorf("expected older run still running, got %s", runs[1].Status)
	}
}

func TestFinishRun_Unknown(t *testing.T) {
	err := store.FinishRun(context.Background(), &models.Run{ID: "missing", Status: models.RunFailed, FinishedAt: time.Now()})
	if err == nil {
		t.Fatal("expected error for unknown run, got nil")
	}
}
