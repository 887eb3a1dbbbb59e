package controller

import (
	"context"
	"strings"
	"sync"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

const areaClipboardHistory = "clipboard_history"

// clipboardCacheKey holds the last clipboard history read from the keyboard.
var clipboardCacheKey = []prefs.Alias{prefs.Flutter("clipboard_history_cache")}

// Clipboard is the clipboard history screen. History lives in the keyboard
// process; the last copy read is cached so the screen can show something
// while the keyboard is unreachable.
type Clipboard struct {
	recordDeps

	mu sync.Mutex
}

// History returns the clipboard history. When the keyboard cannot be reached
// the cached copy is returned with cached set; with no cache the keyboard
// error is returned.
func (c *Clipboard) History(ctx context.Context) (items []models.ClipboardItem, cached bool, err error) {
	res, err := c.invoke(ctx, bridge.ClipboardChannel, bridge.MethodGetHistory, nil)
	if err == nil {
		items = []models.ClipboardItem{}
		if derr := decodeResult(res, &items); derr != nil {
			return nil, false, models.ErrBridge("clipboard history: malformed keyboard reply")
		}
		c.mu.Lock()
		if werr := writeBlob(c.store, clipboardCacheKey, items); werr != nil {
			c.log.Warn("controller: caching clipboard history failed", "err", werr)
		}
		c.mu.Unlock()
		return items, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	items = []models.ClipboardItem{}
	if readBlob(c.store, clipboardCacheKey, &items) {
		c.log.Warn("controller: clipboard history from cache", "err", err)
		return items, true, nil
	}
	return nil, false, c.bridgeError("clipboard history", err)
}

// Pin pins or unpins an item.
func (c *Clipboard) Pin(ctx context.Context, id string, pinned bool) error {
	method := bridge.MethodPinItem
	if !pinned {
		method = bridge.MethodUnpinItem
	}
	return c.mutate(ctx, method, id, func(items []models.ClipboardItem) []models.ClipboardItem {
		for i := range items {
			if items[i].ID == id {
				items[i].Pinned = pinned
			}
		}
		return items
	})
}

// Delete removes an item.
func (c *Clipboard) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, bridge.MethodDeleteItem, id, func(items []models.ClipboardItem) []models.ClipboardItem {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

// Sync asks the keyboard to sync its clipboard and returns the fresh history.
func (c *Clipboard) Sync(ctx context.Context) ([]models.ClipboardItem, error) {
	if _, err := c.invoke(ctx, bridge.ClipboardChannel, bridge.MethodSyncClipboard, nil); err != nil {
		return nil, c.bridgeError("sync clipboard", err)
	}
	items, _, err := c.History(ctx)
	if err != nil {
		return nil, err
	}
	c.published(areaClipboardHistory)
	return items, nil
}

func (c *Clipboard) mutate(ctx context.Context, method, id string, edit func([]models.ClipboardItem) []models.ClipboardItem) error {
	if strings.TrimSpace(id) == "" {
		return models.ErrInvalidField("id", "item id is required")
	}
	if _, err := c.invoke(ctx, bridge.ClipboardChannel, method, map[string]any{"id": id}); err != nil {
		return c.bridgeError(method, err)
	}

	c.mu.Lock()
	items := []models.ClipboardItem{}
	if readBlob(c.store, clipboardCacheKey, &items) {
		if err := writeBlob(c.store, clipboardCacheKey, edit(items)); err != nil {
			c.log.Warn("controller: updating clipboard cache failed", "err", err)
		}
	}
	c.mu.Unlock()

	c.published(areaClipboardHistory)
	return nil
}
