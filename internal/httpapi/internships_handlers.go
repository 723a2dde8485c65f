package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"internhub-engine/internal/domain"
)

type InternshipsHandler struct {
	Store Reader
	Log   *zap.Logger
}

func (h InternshipsHandler) List(w http.ResponseWriter, r *http.Request) {
	postings, err := h.Store.ListActive(r.Context())
	if err != nil {
		h.Log.Error("list internships failed", zap.Error(err))
		WriteError(w, r, http.StatusInternalServerError, "Failed to fetch internships", "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]domain.PersistedPosting{"internships": postings})
}

// Runs lists recent run log rows, newest first. ?limit= caps the count.
func (h InternshipsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			WriteError(w, r, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.Log.Error("list runs failed", zap.Error(err))
		WriteError(w, r, http.StatusInternalServerError, "Failed to fetch runs", "")
		return
	}
	if runs == nil {
		runs = []domain.ScrapeRun{}
	}
	WriteJSON(w, http.StatusOK, map[string][]domain.ScrapeRun{"runs": runs})
}
