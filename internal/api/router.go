package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glyphkey/kbcompanion/internal/models"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{mgr: deps.Manager, events: deps.Bus, info: deps.Info, backups: deps.Backups}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, models.ErrNotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, &models.AppError{Code: "METHOD_NOT_ALLOWED", Message: r.Method + " not allowed", Status: http.StatusMethodNotAllowed})
	})

	r.Get("/api", h.getInfo)
	r.Get("/api/", h.getInfo)

	// Settings screens
	r.Get("/api/settings", h.getAllSettings)
	r.Route("/api/settings/{area}", func(r chi.Router) {
		r.Get("/", h.openSettings)
		r.Patch("/", h.patchSettings)
		r.Delete("/", h.closeSettings)
		r.Post("/flush", h.flushSettings)
		r.Post("/reset", h.resetSettings)
	})

	// Prompts
	r.Get("/api/prompts", h.listPrompts)
	r.Post("/api/prompts", h.savePrompt)
	r.Delete("/api/prompts/{id}", h.deletePrompt)

	// User dictionary
	r.Get("/api/dictionary", h.listDictionary)
	r.Post("/api/dictionary", h.addDictionaryEntry)
	r.Delete("/api/dictionary/{word}", h.removeDictionaryEntry)
	r.Post("/api/dictionary/clear-learned", h.clearLearnedWords)

	// Clipboard history
	r.Get("/api/clipboard", h.getClipboard)
	r.Post("/api/clipboard/sync", h.syncClipboard)
	r.Post("/api/clipboard/{id}/pin", h.pinClipboardItem)
	r.Delete("/api/clipboard/{id}/pin", h.unpinClipboardItem)
	r.Delete("/api/clipboard/{id}", h.deleteClipboardItem)

	// Keyboard status
	r.Get("/api/status", h.getStatus)

	// Preference backups
	r.Get("/api/backups", h.listBackups)
	r.Post("/api/backups", h.createBackup)

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
