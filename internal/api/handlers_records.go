package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/glyphkey/kbcompanion/internal/models"
)

type promptRequest struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

func (h *Handlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.mgr.Prompts.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (h *Handlers) savePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.mgr.Prompts.Save(r.Context(), req.Title, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) deletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Prompts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listDictionary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Dictionary.List())
}

func (h *Handlers) addDictionaryEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.DictionaryEntry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, err)
		return
	}
	added, err := h.mgr.Dictionary.Add(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *Handlers) removeDictionaryEntry(w http.ResponseWriter, r *http.Request) {
	word, err := url.PathUnescape(chi.URLParam(r, "word"))
	if err != nil {
		writeError(w, models.ErrBadRequest("invalid word"))
		return
	}
	language := r.URL.Query().Get("language")
	if err := h.mgr.Dictionary.Remove(r.Context(), word, language); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) clearLearnedWords(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Dictionary.ClearLearned(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clipboardResponse struct {
	Items  []models.ClipboardItem `json:"items"`
	Cached bool                   `json:"cached"`
}

func (h *Handlers) getClipboard(w http.ResponseWriter, r *http.Request) {
	items, cached, err := h.mgr.Clipboard.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clipboardResponse{Items: items, Cached: cached})
}

func (h *Handlers) syncClipboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.mgr.Clipboard.Sync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clipboardResponse{Items: items})
}

func (h *Handlers) pinClipboardItem(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, true)
}

func (h *Handlers) unpinClipboardItem(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, false)
}

func (h *Handlers) setPinned(w http.ResponseWriter, r *http.Request, pinned bool) {
	if err := h.mgr.Clipboard.Pin(r.Context(), chi.URLParam(r, "id"), pinned); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteClipboardItem(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Clipboard.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
