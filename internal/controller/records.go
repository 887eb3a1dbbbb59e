package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/events"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

// recordDeps is shared by the screens that manage records rather than
// settings.
type recordDeps struct {
	bridge  bridge.Bridge
	store   prefs.Store
	bus     *events.Bus
	timeout time.Duration
	log     *slog.Logger
}

func (d recordDeps) invoke(ctx context.Context, ch bridge.Channel, method string, args map[string]any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.bridge.Invoke(ctx, ch, method, args)
}

func (d recordDeps) published(area string) {
	d.bus.Publish(events.Event{Kind: events.KindRecords, Area: area})
}

// bridgeError logs a failed keyboard call and returns the transient notice.
func (d recordDeps) bridgeError(what string, err error) error {
	d.log.Warn("controller: keyboard call failed", "op", what, "err", err)
	return models.ErrBridge(fmt.Sprintf("%s: keyboard unavailable: %v", what, err))
}

// decodeResult converts a decoded JSON result into out.
func decodeResult(res any, out any) error {
	if res == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// argsOf flattens a record into bridge arguments.
func argsOf(v any) map[string]any {
	var args map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	_ = json.Unmarshal(data, &args)
	return args
}

// readBlob decodes a JSON blob stored under aliases. A missing or corrupt
// blob yields the zero value.
func readBlob(r prefs.Reader, aliases []prefs.Alias, out any) bool {
	raw, ok := prefs.ReadFirst(r, aliases, func(v any) bool {
		_, ok := v.(string)
		return ok
	})
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw.(string)), out) == nil
}

func writeBlob(s prefs.Store, aliases []prefs.Alias, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return prefs.WriteAll(s, aliases, string(data))
}
