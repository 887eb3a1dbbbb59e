package models

import "time"

// Prompt is a saved assistant prompt kept by the keyboard process.
type Prompt struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}

// DictionaryEntry is a user dictionary word with an optional typing shortcut.
type DictionaryEntry struct {
	Word      string `json:"word"`
	Shortcut  string `json:"shortcut,omitempty"`
	Frequency int    `json:"frequency"`
	Language  string `json:"language,omitempty"`
}

// ClipboardItem is one entry of the keyboard's clipboard history.
type ClipboardItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"timestamp"`
}

// KeyboardStatus reports whether the input method is enabled and selected.
type KeyboardStatus struct {
	Enabled   bool      `json:"enabled"`
	Active    bool      `json:"active"`
	CheckedAt time.Time `json:"checked_at"`
}
