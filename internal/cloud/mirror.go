// Package cloud mirrors settings to a remote per-user document for
// cross-device continuity. Writes merge into the document; the most recent
// successful upsert wins. Mirroring is advisory: callers log failures and
// carry on.
package cloud

import "context"

// Mirror merge-writes fields into the document docID.
type Mirror interface {
	Upsert(ctx context.Context, docID string, fields map[string]any) error
}

// Nop is the Mirror used when cloud sync is disabled.
type Nop struct{}

func (Nop) Upsert(context.Context, string, map[string]any) error { return nil }

// merge copies src over dst and returns dst.
func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
