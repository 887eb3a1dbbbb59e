package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/glyphkey/kbcompanion/internal/controller"
	"github.com/glyphkey/kbcompanion/internal/identity"
	"github.com/glyphkey/kbcompanion/internal/maintenance"
	"github.com/glyphkey/kbcompanion/internal/models"
)

type infoResponse struct {
	identity.Info
	Areas     []string `json:"areas"`
	OpenAreas []string `json:"open_areas"`
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Info:      h.info,
		Areas:     controller.Areas(),
		OpenAreas: h.mgr.OpenAreas(),
	})
}

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.Status.Check(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) listBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrNotFound("backups are not configured"))
		return
	}
	files, err := h.backups.ListBackups()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backups": names})
}

func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrNotFound("backups are not configured"))
		return
	}
	path, err := h.backups.RunBackupNow()
	if errors.Is(err, maintenance.ErrBackupsDisabled) {
		writeError(w, models.ErrConflict("backups are disabled"))
		return
	}
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"backup": filepath.Base(path)})
}
