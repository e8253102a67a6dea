package models

import (
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

type Run struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitempty"`
	Status           RunStatus `json:"status"`
	KeywordsSearched int       `json:"keywords_searched"`
	RowsUploaded     int       `json:"rows_uploaded"`
	Error            string    `json:"error,omitempty"`
}
