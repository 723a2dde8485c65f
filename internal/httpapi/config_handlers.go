package httpapi

import (
	"net/http"

	"internhub-engine/internal/config"
)

type ConfigHandler struct {
	Cfg *config.Live
}

type configView struct {
	Sources  []config.Source `json:"sources"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
}

// Get shows the active source list and what validation thinks of the live
// config. Store DSNs and secrets are never included.
func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur := h.Cfg.Get()
	_, vr := config.NormalizeAndValidate(cur)
	view := configView{
		Sources:  cur.Sources,
		Errors:   vr.Errors,
		Warnings: vr.Warnings,
	}
	if view.Errors == nil {
		view.Errors = []string{}
	}
	if view.Warnings == nil {
		view.Warnings = []string{}
	}
	WriteJSON(w, http.StatusOK, view)
}
