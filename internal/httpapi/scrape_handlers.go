package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/config"
	"internhub-engine/internal/domain"
	"internhub-engine/internal/pipeline"
	"internhub-engine/internal/store"
)

// recentSlack is added to the trigger interval when deciding whether the last
// successful run is still recent.
const recentSlack = 5 * time.Minute

type ScrapeHandler struct {
	Runner Runner
	Store  Reader
	Cfg    *config.Live
	Secret func() (string, error)
	Log    *zap.Logger
	Now    func() time.Time
}

type scrapeResponse struct {
	Success     bool                  `json:"success"`
	Message     string                `json:"message"`
	RunID       string                `json:"runId"`
	Internships int                   `json:"internships"`
	Updated     int                   `json:"updated"`
	Added       int                   `json:"added"`
	Duplicates  int                   `json:"duplicates"`
	Duration    string                `json:"duration"`
	Timestamp   time.Time             `json:"timestamp"`
	Sources     []domain.SourceResult `json:"sources"`
}

// authorized compares the bearer token in constant time. Without a
// configured secret every request is refused.
func (h ScrapeHandler) authorized(r *http.Request) bool {
	if h.Secret == nil {
		return false
	}
	secret, err := h.Secret()
	if err != nil || secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// Run triggers one pipeline pass and answers when it is done. The run keeps
// going if the caller disconnects.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	res, err := h.Runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		WriteError(w, r, http.StatusConflict, "Scrape already running", "another run holds the lock; try again when it finishes")
		return
	case err != nil:
		h.Log.Warn("triggered run failed", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		WriteError(w, r, http.StatusInternalServerError, "Scraper failed", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, scrapeResponse{
		Success:     true,
		Message:     "Scraper completed successfully",
		RunID:       res.RunID,
		Internships: res.Internships,
		Updated:     res.Updated,
		Added:       res.Added,
		Duplicates:  res.Duplicates,
		Duration:    res.DurationString(),
		Timestamp:   res.Timestamp,
		Sources:     res.Sources,
	})
}

type statusResponse struct {
	LastUpdated      *time.Time `json:"lastUpdated"`
	Status           string     `json:"status"`
	InternshipsFound int        `json:"internshipsFound"`
	NextUpdate       string     `json:"nextUpdate"`
	IsRecent         *bool      `json:"isRecent,omitempty"`
	Running          bool       `json:"running"`
	State            string     `json:"state"`
}

// Status reports the latest successful run and the live pipeline state.
func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		NextUpdate: "Unknown",
		Running:    h.Runner.Running(),
		State:      string(h.Runner.State()),
	}

	run, err := h.Store.LatestRun(r.Context(), domain.RunStatusSuccess)
	switch {
	case errors.Is(err, store.ErrNotFound):
		resp.Status = "never_run"
		WriteJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		h.Log.Warn("status lookup failed", zap.Error(err))
		resp.Status = "unknown"
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	completed := run.StartedAt
	if run.CompletedAt != nil {
		completed = *run.CompletedAt
	}
	interval := h.Cfg.Get().Trigger.Interval
	if interval <= 0 {
		interval = config.Default().Trigger.Interval
	}
	now := h.Now()
	recent := now.Sub(completed) < interval+recentSlack

	resp.LastUpdated = &completed
	resp.Status = string(run.Status)
	resp.InternshipsFound = run.InternshipsFound
	resp.NextUpdate = nextUpdate(completed.Add(interval), now)
	resp.IsRecent = &recent
	WriteJSON(w, http.StatusOK, resp)
}

func nextUpdate(next, now time.Time) string {
	mins := int(next.Sub(now) / time.Minute)
	if mins <= 0 {
		return "Soon"
	}
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
