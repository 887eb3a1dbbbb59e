package controller

import (
	"context"
	"time"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
)

// Status reports whether the keyboard is enabled in system settings and
// selected as the current input method.
type Status struct {
	recordDeps
}

// Check asks the keyboard for its status.
func (s *Status) Check(ctx context.Context) (models.KeyboardStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	enabled, err := bridge.Bool(ctx, s.bridge, bridge.ConfigChannel, bridge.MethodIsKeyboardEnabled)
	if err != nil {
		return models.KeyboardStatus{}, s.bridgeError("keyboard status", err)
	}
	active, err := bridge.Bool(ctx, s.bridge, bridge.ConfigChannel, bridge.MethodIsKeyboardActive)
	if err != nil {
		return models.KeyboardStatus{}, s.bridgeError("keyboard status", err)
	}
	return models.KeyboardStatus{Enabled: enabled, Active: active, CheckedAt: time.Now().UTC()}, nil
}
