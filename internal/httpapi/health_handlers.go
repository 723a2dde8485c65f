package httpapi

import (
	"net/http"
)

type HealthHandler struct {
	Runner Runner
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"state": h.Runner.State(),
	})
}
