package prefs

import (
	"fmt"
	"log/slog"
	"sort"
)

// VersionKey records the last applied preference migration.
var VersionKey = Both("prefs_schema_version")

// Migration is a one-time rewrite of stored preferences.
type Migration struct {
	Version int
	Name    string
	Apply   func(s Store) error
}

// Migrate applies every migration newer than the stored version, in ascending
// version order. The stored version advances after each successful migration,
// so a failure leaves later migrations for the next start.
func Migrate(s Store, migrations []Migration) (int, error) {
	current := 0
	if v, ok := ReadFirst(s, VersionKey, nil); ok {
		if f, ok := v.(float64); ok {
			current = int(f)
		}
	}

	applied := 0
	for _, m := range sorted(migrations) {
		if m.Version <= current {
			continue
		}
		if err := m.Apply(s); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := WriteAll(s, VersionKey, m.Version); err != nil {
			return applied, fmt.Errorf("migration %d (%s): record version: %w", m.Version, m.Name, err)
		}
		slog.Info("prefs: applied migration", "version", m.Version, "name", m.Name)
		current = m.Version
		applied++
	}
	return applied, nil
}

func sorted(ms []Migration) []Migration {
	out := make([]Migration, len(ms))
	copy(out, ms)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version < out[j].Version
	})
	return out
}
