// Package bridge is the asynchronous call boundary to the keyboard process.
// Every call can fail independently of local state; callers log and degrade.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/glyphkey/kbcompanion/internal/models"
)

// Channel names a group of keyboard-side methods.
type Channel string

const (
	ConfigChannel    Channel = "config"
	PromptsChannel   Channel = "prompts"
	ClipboardChannel Channel = "clipboard"
	SoundChannel     Channel = "sound"
)

// Config channel methods.
const (
	MethodUpdateSettings        = "updateSettings"
	MethodUpdateGestureSettings = "updateGestureSettings"
	MethodUpdateEmojiSettings   = "updateEmojiSettings"
	MethodNotifyConfigChange    = "notifyConfigChange"
	MethodBroadcastSettings     = "broadcastSettingsChanged"
	MethodSendBroadcast         = "sendBroadcast"
	MethodSetOneHandedMode      = "setOneHandedMode"
	MethodClearLearnedWords     = "clearLearnedWords"
	MethodIsKeyboardEnabled     = "isKeyboardEnabled"
	MethodIsKeyboardActive      = "isKeyboardActive"
)

// Prompts channel methods. The add/remove forms are the older names.
const (
	MethodGetPrompts   = "getPrompts"
	MethodSavePrompt   = "savePrompt"
	MethodAddPrompt    = "addPrompt"
	MethodDeletePrompt = "deletePrompt"
	MethodRemovePrompt = "removePrompt"
)

// Clipboard channel methods.
const (
	MethodGetHistory    = "getHistory"
	MethodPinItem       = "pinItem"
	MethodUnpinItem     = "unpinItem"
	MethodDeleteItem    = "deleteItem"
	MethodSyncClipboard = "syncClipboard"
)

// Sound channel methods.
const MethodSetKeyboardSound = "setKeyboardSound"

// Bridge invokes a method on the keyboard process. args is a flat key/value
// map; the result, if any, is decoded JSON.
type Bridge interface {
	Invoke(ctx context.Context, ch Channel, method string, args map[string]any) (any, error)
}

// CodeNotImplemented is reported when the keyboard has no handler for a method.
const CodeNotImplemented = "NOT_IMPLEMENTED"

// ErrNotImplemented matches any CallError with CodeNotImplemented.
var ErrNotImplemented = errors.New("bridge: method not implemented")

// CallError is a failure reported by, or on the way to, the keyboard process.
type CallError struct {
	Channel Channel
	Method  string
	Code    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("bridge: %s/%s: %s: %s", e.Channel, e.Method, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrNotImplemented) match not-implemented call errors.
func (e *CallError) Is(target error) bool {
	return target == ErrNotImplemented && e.Code == CodeNotImplemented
}

// Push validates p and sends it on ch using the payload's method.
func Push(ctx context.Context, b Bridge, ch Channel, p models.Payload) error {
	args, err := models.PayloadArgs(p)
	if err != nil {
		return err
	}
	_, err = b.Invoke(ctx, ch, p.Method(), args)
	return err
}

// NotifyConfigChanged sends the bare "settings changed" signal to both native
// listener paths. Sending it twice is harmless.
func NotifyConfigChanged(ctx context.Context, b Bridge) error {
	_, err1 := b.Invoke(ctx, ConfigChannel, MethodNotifyConfigChange, nil)
	_, err2 := b.Invoke(ctx, ConfigChannel, MethodBroadcastSettings, nil)
	return errors.Join(err1, err2)
}

// Bool invokes a method whose result is a boolean. Non-boolean results are
// reported as errors.
func Bool(ctx context.Context, b Bridge, ch Channel, method string) (bool, error) {
	res, err := b.Invoke(ctx, ch, method, nil)
	if err != nil {
		return false, err
	}
	v, ok := res.(bool)
	if !ok {
		return false, &CallError{Channel: ch, Method: method, Code: "BAD_RESULT", Message: fmt.Sprintf("expected bool, got %T", res)}
	}
	return v, nil
}
