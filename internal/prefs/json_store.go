package prefs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"
)

const (
	fileName      = "prefs.json"
	debounceDelay = 500 * time.Millisecond
)

// JSONStore is an atomic JSON file store with debounced writes.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	values map[string]any
	timer  *time.Timer
	delay  time.Duration

	// dirty holds keys changed locally since the last flush. Every other key
	// follows the file, which the keyboard writes too.
	dirty map[string]bool
}

// NewJSONStore opens the preference file in dir. A missing file yields an
// empty store; a corrupt file is logged and treated as empty.
func NewJSONStore(dir string) *JSONStore {
	s := &JSONStore{
		path:   filepath.Join(dir, fileName),
		values: make(map[string]any),
		delay:  debounceDelay,
		dirty:  make(map[string]bool),
	}
	values, err := s.read()
	if err != nil {
		slog.Warn("prefs: corrupt preference file, starting empty", "path", s.path, "err", err)
	} else if values != nil {
		s.values = values
	}
	return s
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *JSONStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set updates the in-memory value and schedules a debounced write.
// The actual write happens after 500ms of no further changes.
func (s *JSONStore) Set(key string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
	s.scheduleLocked(key)
	return nil
}

func (s *JSONStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	s.scheduleLocked(key)
	return nil
}

func (s *JSONStore) scheduleLocked(key string) {
	s.dirty[key] = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(); err != nil {
			slog.Error("prefs: failed to write preferences", "path", s.path, "err", err)
		}
	})
}

// Flush forces an immediate write of any pending changes. The file is
// re-read first so keys written by another process since the last Reload
// survive; only locally changed keys override it.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.dirty) == 0 {
		return nil
	}
	disk, err := s.read()
	if err != nil {
		slog.Warn("prefs: unreadable preference file, overwriting", "path", s.path, "err", err)
	} else if disk != nil {
		s.values = s.mergeLocked(disk)
	}
	if err := s.writeAtomic(s.values); err != nil {
		return err
	}
	s.dirty = make(map[string]bool)
	return nil
}

// Reload re-reads the preference file and reports whether the in-memory
// values changed. Keys with a pending local write keep their local value;
// all other keys take the file's value, or disappear if the file lacks them.
func (s *JSONStore) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	disk, err := s.read()
	if err != nil {
		return false, err
	}
	if disk == nil {
		disk = make(map[string]any)
	}
	merged := s.mergeLocked(disk)
	if reflect.DeepEqual(merged, s.values) {
		return false, nil
	}
	s.values = merged
	return true, nil
}

func (s *JSONStore) mergeLocked(disk map[string]any) map[string]any {
	merged := make(map[string]any, len(disk)+len(s.dirty))
	for k, v := range disk {
		if !s.dirty[k] {
			merged[k] = v
		}
	}
	for k := range s.dirty {
		if v, ok := s.values[k]; ok {
			merged[k] = v
		}
	}
	return merged
}

func (s *JSONStore) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	for k, v := range values {
		if _, err := normalize(v); err != nil {
			slog.Warn("prefs: dropping unsupported value", "key", k, "err", err)
			delete(values, k)
		}
	}
	return values, nil
}

func (s *JSONStore) writeAtomic(values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

var _ Store = (*JSONStore)(nil)
