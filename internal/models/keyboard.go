// Package models defines the settings payloads, records, and errors shared by
// the companion daemon and the keyboard process.
// JSON field names match what the keyboard process reads.
package models

import "math"

// Volume and vibration limits.
const (
	MinVolume      = 0
	MaxVolume      = 100
	MinVibrationMs = 0
	MaxVibrationMs = 100
)

// Gesture action codes understood by the keyboard.
const (
	ActionNone           = "none"
	ActionDeleteWord     = "delete_word"
	ActionDeleteChar     = "delete_character"
	ActionCursorLeft     = "move_cursor_left"
	ActionCursorRight    = "move_cursor_right"
	ActionCursorUp       = "move_cursor_up"
	ActionCursorDown     = "move_cursor_down"
	ActionShift          = "shift"
	ActionSwitchLanguage = "switch_language"
	ActionHideKeyboard   = "hide_keyboard"
	ActionInsertSpace    = "insert_space"
	ActionUndo           = "undo"
	ActionRedo           = "redo"
	ActionSelectAll      = "select_all"
	ActionShowEmoji      = "show_emoji"
	ActionShowClipboard  = "show_clipboard"
	ActionVoiceInput     = "voice_input"
)

// GestureActions lists every valid gesture action code.
var GestureActions = []string{
	ActionNone, ActionDeleteWord, ActionDeleteChar,
	ActionCursorLeft, ActionCursorRight, ActionCursorUp, ActionCursorDown,
	ActionShift, ActionSwitchLanguage, ActionHideKeyboard, ActionInsertSpace,
	ActionUndo, ActionRedo, ActionSelectAll,
	ActionShowEmoji, ActionShowClipboard, ActionVoiceInput,
}

// IsGestureAction reports whether code is a known gesture action.
func IsGestureAction(code string) bool {
	for _, a := range GestureActions {
		if a == code {
			return true
		}
	}
	return false
}

// Emoji skin tones, as Unicode modifier names.
var SkinTones = []string{"default", "light", "medium_light", "medium", "medium_dark", "dark"}

// IsSkinTone reports whether tone is a known skin tone.
func IsSkinTone(tone string) bool {
	for _, t := range SkinTones {
		if t == tone {
			return true
		}
	}
	return false
}

// One-handed layout modes.
const (
	OneHandedOff   = "off"
	OneHandedLeft  = "left"
	OneHandedRight = "right"
)

// VolumeToFraction converts a 0-100 volume to the [0,1] fraction the keyboard uses.
func VolumeToFraction(v float64) float64 {
	return ClampFloat(v, MinVolume, MaxVolume) / MaxVolume
}

// FractionToVolume converts a [0,1] fraction to the canonical 0-100 scale.
func FractionToVolume(f float64) float64 {
	return math.Round(ClampFloat(f, 0, 1)*MaxVolume*100) / 100
}

// ClampFloat clamps v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
