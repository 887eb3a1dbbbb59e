package bridge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewHandler serves b over HTTP in the wire format HTTPClient speaks. It lets
// any Bridge (a Mock in tests, a keyboard simulator in development) stand in
// for the keyboard process.
func NewHandler(b Bridge) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/channels/{channel}/{method}", func(w http.ResponseWriter, r *http.Request) {
		ch := Channel(chi.URLParam(r, "channel"))
		method := chi.URLParam(r, "method")

		var env envelope
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
				writeEnvelope(w, http.StatusBadRequest, envelope{Error: &wireError{Code: "BAD_REQUEST", Message: err.Error()}})
				return
			}
		}

		res, err := b.Invoke(r.Context(), ch, method, env.Args)
		if err != nil {
			code := "ERROR"
			var callErr *CallError
			if errors.As(err, &callErr) {
				code = callErr.Code
			}
			msg := err.Error()
			if callErr != nil {
				msg = callErr.Message
			}
			writeEnvelope(w, http.StatusOK, envelope{Error: &wireError{Code: code, Message: msg}})
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Result: res})
	})
	return r
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
