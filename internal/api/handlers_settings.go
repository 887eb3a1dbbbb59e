package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glyphkey/kbcompanion/internal/controller"
	"github.com/glyphkey/kbcompanion/internal/settings"
)

// settingsResponse is the view of one open settings screen.
type settingsResponse struct {
	Area    string          `json:"area"`
	Values  settings.Values `json:"values"`
	Pending []string        `json:"pending"`
}

func newSettingsResponse(c *controller.Controller) settingsResponse {
	return settingsResponse{Area: c.Area(), Values: c.Values(), Pending: c.Pending()}
}

func (h *Handlers) getAllSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Snapshot())
}

// openSettings opens the screen for an area (loading it on first entry) and
// returns its values.
func (h *Handlers) openSettings(w http.ResponseWriter, r *http.Request) {
	c, err := h.mgr.Open(chi.URLParam(r, "area"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(c))
}

// patchSettings applies edits. The response reflects the edits at once; the
// flush happens after the debounce window unless ?immediate=true.
func (h *Handlers) patchSettings(w http.ResponseWriter, r *http.Request) {
	immediate, err := boolQuery(r, "immediate")
	if err != nil {
		writeError(w, err)
		return
	}
	var changes map[string]any
	if err := decodeBody(r, &changes); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.mgr.Open(chi.URLParam(r, "area"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.Apply(r.Context(), changes, immediate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(c))
}

func (h *Handlers) closeSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Close(chi.URLParam(r, "area")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) flushSettings(w http.ResponseWriter, r *http.Request) {
	c, err := h.mgr.Open(chi.URLParam(r, "area"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(c))
}

func (h *Handlers) resetSettings(w http.ResponseWriter, r *http.Request) {
	c, err := h.mgr.Open(chi.URLParam(r, "area"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.ResetDefaults(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(c))
}
