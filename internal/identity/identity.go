// Package identity provides the device identity of the companion daemon.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/glyphkey/kbcompanion/internal/prefs"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "0.1.0-dev"

// DeviceIDKey holds the generated device ID. The keyboard reads the same key.
var DeviceIDKey = prefs.Both("device_id")

// Info holds device identity information.
type Info struct {
	DeviceID string `json:"device_id"`
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
}

// Load returns the identity of this device, creating the device ID on first
// use. The version is read from metadata.json in dataDir.
func Load(store prefs.Store, dataDir string) (Info, error) {
	id, err := DeviceID(store)
	if err != nil {
		return Info{}, err
	}
	return Info{
		DeviceID: id,
		Hostname: GetHostname(),
		Version:  GetVersionFromDir(dataDir),
	}, nil
}

// DeviceID returns the stored device ID, generating and storing a new one
// when none of the aliases holds a valid UUID.
func DeviceID(store prefs.Store) (string, error) {
	v, ok := prefs.ReadFirst(store, DeviceIDKey, func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := uuid.Parse(s)
		return err == nil
	})
	if ok {
		return v.(string), nil
	}
	id := uuid.NewString()
	if err := prefs.WriteAll(store, DeviceIDKey, id); err != nil {
		return "", fmt.Errorf("identity: store device id: %w", err)
	}
	return id, nil
}

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "kbcompanion"
	}
	return h
}

// GetVersionFromDir reads the version from dir/metadata.json.
// Falls back to DefaultVersion if the file is missing or unreadable.
func GetVersionFromDir(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && v != "" {
		return v
	}
	return DefaultVersion
}
