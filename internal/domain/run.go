package domain

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// SourceResult is the per-source outcome recorded on a run.
type SourceResult struct {
	Name             string `json:"name"`
	Success          bool   `json:"success"`
	InternshipsFound int    `json:"internshipsFound"`
	Error            string `json:"error,omitempty"`
}

// ScrapeRun is one row of the run log.
type ScrapeRun struct {
	ID               string         `json:"id"`
	Status           RunStatus      `json:"status"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	DurationMS       int64          `json:"durationMs"`
	InternshipsFound int            `json:"internshipsFound"`
	Sources          []SourceResult `json:"sources"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
}

func (r ScrapeRun) Finished() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusError
}
