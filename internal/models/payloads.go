package models

import (
	"encoding/json"
	"fmt"
)

// Payload is a tagged settings message sent to the keyboard process.
// Method names the bridge method that consumes it.
type Payload interface {
	Method() string
	Validate() error
}

// PayloadArgs validates p and flattens it into the key/value map the bridge
// transports carry.
func PayloadArgs(p Payload) (map[string]any, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s payload: %w", p.Method(), err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	return args, nil
}

// SoundSettings is the updateSettings payload for the sounds screen.
// SoundVolume is sent as a fraction [0,1]; the canonical stored scale is 0-100.
type SoundSettings struct {
	SoundEnabled     bool    `json:"soundEnabled"`
	SoundVolume      float64 `json:"soundVolume"`
	SoundType        string  `json:"soundType"`
	VibrationEnabled bool    `json:"vibrationEnabled"`
	VibrationMs      int     `json:"vibrationMs"`
	UseHaptic        bool    `json:"useHapticInterface"`
}

func (SoundSettings) Method() string { return "updateSettings" }

func (s SoundSettings) Validate() error {
	if s.SoundVolume < 0 || s.SoundVolume > 1 {
		return ErrInvalidField("soundVolume", "soundVolume must be within [0,1]")
	}
	if s.VibrationMs < MinVibrationMs || s.VibrationMs > MaxVibrationMs {
		return ErrInvalidField("vibrationMs", fmt.Sprintf("vibrationMs must be within [%d,%d]", MinVibrationMs, MaxVibrationMs))
	}
	if s.SoundType == "" {
		return ErrInvalidField("soundType", "soundType is required")
	}
	return nil
}

// KeyboardSound is the setKeyboardSound payload on the sound channel.
type KeyboardSound struct {
	Enabled bool    `json:"enabled"`
	Volume  float64 `json:"volume"`
	Sound   string  `json:"sound"`
}

func (KeyboardSound) Method() string { return "setKeyboardSound" }

func (k KeyboardSound) Validate() error {
	if k.Volume < 0 || k.Volume > 1 {
		return ErrInvalidField("volume", "volume must be within [0,1]")
	}
	return nil
}

// GestureSettings is the updateGestureSettings payload.
type GestureSettings struct {
	GlideTyping      bool              `json:"glideTyping"`
	ShowGlideTrail   bool              `json:"showGlideTrail"`
	GlideTrailFadeMs int               `json:"glideTrailFadeMs"`
	SwipeVelocity    float64           `json:"swipeVelocityThreshold"`
	SwipeDistance    float64           `json:"swipeDistanceThreshold"`
	Actions          map[string]string `json:"actions"`
}

func (GestureSettings) Method() string { return "updateGestureSettings" }

func (g GestureSettings) Validate() error {
	if g.ShowGlideTrail && !g.GlideTyping {
		return ErrInvalidField("showGlideTrail", "glide trail requires glide typing")
	}
	for slot, action := range g.Actions {
		if !IsGestureAction(action) {
			return ErrInvalidField(slot, "unknown gesture action "+action)
		}
	}
	return nil
}

// KeyboardSettings is the updateSettings payload for the keyboard layout screen.
type KeyboardSettings struct {
	NumberRow         bool     `json:"numberRow"`
	KeyBorders        bool     `json:"keyBorders"`
	KeyHeightPercent  int      `json:"keyHeightPercent"`
	OneHandedMode     string   `json:"oneHandedMode"`
	OneHandedWidth    float64  `json:"oneHandedWidth"`
	PopupOnKeypress   bool     `json:"popupOnKeypress"`
	AutoCapitalize    bool     `json:"autoCapitalize"`
	DoubleSpacePeriod bool     `json:"doubleSpacePeriod"`
	Languages         []string `json:"languages"`
	CurrentLanguage   string   `json:"currentLanguage"`
	ActiveFeatures    []string `json:"active_features"`
}

func (KeyboardSettings) Method() string { return "updateSettings" }

func (k KeyboardSettings) Validate() error {
	if len(k.Languages) == 0 {
		return ErrInvalidField("languages", "at least one language is required")
	}
	found := false
	for _, l := range k.Languages {
		if l == k.CurrentLanguage {
			found = true
		}
	}
	if !found {
		return ErrInvalidField("currentLanguage", "current language must be enabled")
	}
	return nil
}

// OneHandedMode is the setOneHandedMode payload.
type OneHandedMode struct {
	Mode  string  `json:"mode"`
	Width float64 `json:"width"`
}

func (OneHandedMode) Method() string { return "setOneHandedMode" }

func (o OneHandedMode) Validate() error {
	switch o.Mode {
	case OneHandedOff, OneHandedLeft, OneHandedRight:
		return nil
	}
	return ErrInvalidField("mode", "unknown one-handed mode "+o.Mode)
}

// EmojiSettings is the updateEmojiSettings payload.
type EmojiSettings struct {
	SkinTone        string `json:"skinTone"`
	RecentLimit     int    `json:"recentLimit"`
	ShowSuggestions bool   `json:"showEmojiSuggestions"`
}

func (EmojiSettings) Method() string { return "updateEmojiSettings" }

func (e EmojiSettings) Validate() error {
	if !IsSkinTone(e.SkinTone) {
		return ErrInvalidField("skinTone", "unknown skin tone "+e.SkinTone)
	}
	return nil
}

// ClipboardSettings is the updateSettings payload for the clipboard screen.
type ClipboardSettings struct {
	ClipboardHistory bool `json:"clipboardHistory"`
	MaxItems         int  `json:"clipboardMaxItems"`
	ExpiryMinutes    int  `json:"clipboardExpiryMinutes"`
	SyncToCloud      bool `json:"clipboardCloudSync"`
}

func (ClipboardSettings) Method() string { return "updateSettings" }

func (c ClipboardSettings) Validate() error {
	if c.MaxItems <= 0 {
		return ErrInvalidField("clipboardMaxItems", "clipboardMaxItems must be positive")
	}
	return nil
}

// DictionarySettings is the updateSettings payload for the dictionary screen.
type DictionarySettings struct {
	LearnWords          bool `json:"learnWords"`
	Suggestions         bool `json:"showSuggestions"`
	AutoCorrect         bool `json:"autoCorrect"`
	NextWordPrediction  bool `json:"nextWordPrediction"`
	BlockOffensiveWords bool `json:"blockOffensiveWords"`
}

func (DictionarySettings) Method() string { return "updateSettings" }

func (DictionarySettings) Validate() error { return nil }

// ThemeSettings is the updateSettings payload for the theme picker.
type ThemeSettings struct {
	Theme       string  `json:"theme"`
	ButtonStyle string  `json:"buttonStyle"`
	Font        string  `json:"font"`
	FontScale   float64 `json:"fontScale"`
}

func (ThemeSettings) Method() string { return "updateSettings" }

func (t ThemeSettings) Validate() error {
	if t.Theme == "" {
		return ErrInvalidField("theme", "theme is required")
	}
	return nil
}
