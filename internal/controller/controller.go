// Package controller implements the per-screen controllers: one settings
// controller per feature area, plus the prompts, dictionary, clipboard and
// keyboard status screens that talk to the keyboard directly.
package controller

import (
	"context"
	"errors"

	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/settings"
	"github.com/glyphkey/kbcompanion/internal/syncer"
)

// Controller is the controller of one open settings screen.
// Every mutation goes through the sync engine, which applies it to memory at
// once and flushes it after the debounce window.
type Controller struct {
	engine *syncer.Engine
}

// Area returns the feature area of the controller.
func (c *Controller) Area() string { return c.engine.Area() }

// Values returns a copy of the current values.
func (c *Controller) Values() settings.Values { return c.engine.Values() }

// Pending returns the keys edited since the last flush.
func (c *Controller) Pending() []string { return c.engine.Pending() }

// Set changes one setting.
func (c *Controller) Set(ctx context.Context, key string, value any, immediate bool) error {
	return c.Apply(ctx, map[string]any{key: value}, immediate)
}

// Apply changes several settings in one edit.
func (c *Controller) Apply(ctx context.Context, changes map[string]any, immediate bool) error {
	if len(changes) == 0 {
		return models.ErrBadRequest("no settings given")
	}
	return flushError(c.engine.Apply(ctx, changes, immediate))
}

// ResetDefaults puts every setting of the area back to its default and
// flushes at once.
func (c *Controller) ResetDefaults(ctx context.Context) error {
	return flushError(c.engine.ResetDefaults(ctx, true))
}

// Flush flushes pending edits now and pushes the full payload.
func (c *Controller) Flush(ctx context.Context) error {
	return flushError(c.engine.Flush(ctx))
}

// Dispose cancels pending timers without flushing.
func (c *Controller) Dispose() { c.engine.Dispose() }

// flushError maps sync engine errors to application errors. Keyboard failures
// become the transient keyboard notice; store failures are internal.
func flushError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syncer.ErrUnknownSetting):
		return models.ErrBadRequest(err.Error())
	case errors.Is(err, syncer.ErrDisposed):
		return models.ErrConflict("screen is closed")
	case errors.Is(err, syncer.ErrPersist):
		return models.ErrInternal(err.Error())
	case errors.Is(err, syncer.ErrPush):
		return models.ErrBridge(err.Error())
	}
	return models.AsAppError(err)
}
