// Package api implements the local HTTP control surface of the companion
// daemon. Each settings screen is opened, edited, flushed and closed through
// it.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/glyphkey/kbcompanion/internal/controller"
	"github.com/glyphkey/kbcompanion/internal/events"
	"github.com/glyphkey/kbcompanion/internal/identity"
	"github.com/glyphkey/kbcompanion/internal/models"
)

// Deps are the dependencies of the router.
type Deps struct {
	Manager *controller.Manager
	Bus     EventBus
	Info    identity.Info
	// Backups is optional; without it the backup routes report 404.
	Backups Backups
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	mgr     *controller.Manager
	events  EventBus
	info    identity.Info
	backups Backups
}

// Backups takes and lists preference backups.
type Backups interface {
	RunBackupNow() (string, error)
	ListBackups() ([]string, error)
}

// EventBus is the interface for subscribing to change events.
type EventBus interface {
	Subscribe(id string) <-chan events.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	appErr := models.AsAppError(err)
	writeJSON(w, appErr.Status, appErr)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// boolQuery reads an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return b, nil
}
