package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

const areaUserDictionary = "user_dictionary"

// userDictionaryKey holds the user dictionary as a JSON array.
var userDictionaryKey = prefs.Both("user_dictionary")

// Dictionary is the user dictionary screen. Entries are kept in the
// preference store where the keyboard reads them.
type Dictionary struct {
	recordDeps

	// mu serializes read-modify-write of the blob.
	mu sync.Mutex
}

// List returns the entries sorted by word.
func (d *Dictionary) List() []models.DictionaryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

func (d *Dictionary) load() []models.DictionaryEntry {
	entries := []models.DictionaryEntry{}
	readBlob(d.store, userDictionaryKey, &entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Word < entries[j].Word })
	return entries
}

// Add stores a new entry and tells the keyboard to re-read its configuration.
func (d *Dictionary) Add(ctx context.Context, e models.DictionaryEntry) (models.DictionaryEntry, error) {
	e.Word = strings.TrimSpace(e.Word)
	e.Shortcut = strings.TrimSpace(e.Shortcut)
	if e.Word == "" {
		return e, models.ErrInvalidField("word", "word is required")
	}
	if strings.ContainsAny(e.Word, " \t\n") {
		return e, models.ErrInvalidField("word", "word must not contain spaces")
	}
	if e.Frequency <= 0 {
		e.Frequency = 250
	}
	if e.Frequency > 255 {
		e.Frequency = 255
	}

	d.mu.Lock()
	entries := d.load()
	for _, existing := range entries {
		if strings.EqualFold(existing.Word, e.Word) && existing.Language == e.Language {
			d.mu.Unlock()
			return e, models.ErrConflict(fmt.Sprintf("%q is already in the dictionary", e.Word))
		}
	}
	entries = append(entries, e)
	err := writeBlob(d.store, userDictionaryKey, entries)
	d.mu.Unlock()
	if err != nil {
		return e, models.ErrInternal(fmt.Sprintf("save dictionary: %v", err))
	}

	d.changed(ctx)
	return e, nil
}

// Remove deletes the entries for word in language, matching the word
// case-insensitively like Add does. An empty language removes the word from
// every language.
func (d *Dictionary) Remove(ctx context.Context, word, language string) error {
	word = strings.TrimSpace(word)
	language = strings.TrimSpace(language)
	if word == "" {
		return models.ErrInvalidField("word", "word is required")
	}

	d.mu.Lock()
	entries := d.load()
	kept := entries[:0]
	for _, e := range entries {
		if !strings.EqualFold(e.Word, word) || (language != "" && e.Language != language) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		d.mu.Unlock()
		return models.ErrNotFound(fmt.Sprintf("%q is not in the dictionary", word))
	}
	var err error
	if len(kept) == 0 {
		err = prefs.RemoveAll(d.store, userDictionaryKey)
	} else {
		err = writeBlob(d.store, userDictionaryKey, kept)
	}
	d.mu.Unlock()
	if err != nil {
		return models.ErrInternal(fmt.Sprintf("save dictionary: %v", err))
	}

	d.changed(ctx)
	return nil
}

// ClearLearned asks the keyboard to forget the words it learned from typing.
// User entries are kept.
func (d *Dictionary) ClearLearned(ctx context.Context) error {
	if _, err := d.invoke(ctx, bridge.ConfigChannel, bridge.MethodClearLearnedWords, nil); err != nil {
		return d.bridgeError("clear learned words", err)
	}
	d.published(areaUserDictionary)
	return nil
}

// changed signals the keyboard. The entry is already stored, so a failed
// signal is only logged.
func (d *Dictionary) changed(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := bridge.NotifyConfigChanged(ctx, d.bridge); err != nil {
		d.log.Warn("controller: dictionary change signal failed", "err", err)
	}
	d.published(areaUserDictionary)
}
