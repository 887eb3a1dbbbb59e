package controller

import (
	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/settings"
	"github.com/glyphkey/kbcompanion/internal/syncer"
)

// areaDef binds a settings schema to the keyboard payloads it produces and
// the fields it mirrors to the cloud document.
type areaDef struct {
	schema *settings.Schema
	pushes []syncer.Push
	cloud  func(settings.Values) map[string]any
}

var areaDefs = map[string]areaDef{
	settings.AreaSounds: {
		schema: &settings.Sounds,
		pushes: []syncer.Push{
			{Channel: bridge.ConfigChannel, Build: soundSettings},
			{Channel: bridge.SoundChannel, Build: keyboardSound},
		},
		cloud: func(v settings.Values) map[string]any {
			return map[string]any{
				"soundEnabled":     v.Bool(settings.SoundEnabled),
				"soundVolume":      v.Int(settings.SoundVolume),
				"vibrationEnabled": v.Bool(settings.VibrationEnabled),
				"vibrationMs":      v.Int(settings.VibrationMs),
			}
		},
	},
	settings.AreaGestures: {
		schema: &settings.Gestures,
		pushes: []syncer.Push{{Channel: bridge.ConfigChannel, Build: gestureSettings}},
		cloud: func(v settings.Values) map[string]any {
			return map[string]any{
				"glideTyping":    v.Bool(settings.GlideTyping),
				"showGlideTrail": v.Bool(settings.ShowGlideTrail),
			}
		},
	},
	settings.AreaKeyboard: {
		schema: &settings.Keyboard,
		pushes: []syncer.Push{
			{Channel: bridge.ConfigChannel, Build: keyboardSettings},
			{Channel: bridge.ConfigChannel, Build: oneHandedMode},
		},
		cloud: func(v settings.Values) map[string]any {
			return map[string]any{
				"active_features":   v.Strings(settings.ActiveFeatures),
				"numberRow":         v.Bool(settings.NumberRow),
				"keyBorders":        v.Bool(settings.KeyBorders),
				"autoCapitalize":    v.Bool(settings.AutoCapitalize),
				"doubleSpacePeriod": v.Bool(settings.DoubleSpacePeriod),
				"popupOnKeypress":   v.Bool(settings.PopupOnKeypress),
				"languages":         v.Strings(settings.Languages),
			}
		},
	},
	settings.AreaClipboard: {
		schema: &settings.Clipboard,
		pushes: []syncer.Push{{Channel: bridge.ConfigChannel, Build: clipboardSettings}},
	},
	settings.AreaEmoji: {
		schema: &settings.Emoji,
		pushes: []syncer.Push{{Channel: bridge.ConfigChannel, Build: emojiSettings}},
		cloud: func(v settings.Values) map[string]any {
			return map[string]any{"skinTone": v.String(settings.EmojiSkinTone)}
		},
	},
	settings.AreaDictionary: {
		schema: &settings.Dictionary,
		pushes: []syncer.Push{{Channel: bridge.ConfigChannel, Build: dictionarySettings}},
	},
	settings.AreaTheme: {
		schema: &settings.ThemeStyle,
		pushes: []syncer.Push{{Channel: bridge.ConfigChannel, Build: themeSettings}},
		cloud: func(v settings.Values) map[string]any {
			return map[string]any{
				"theme":       v.String(settings.Theme),
				"buttonStyle": v.String(settings.ButtonStyle),
				"font":        v.String(settings.FontFamily),
			}
		},
	},
}

func soundSettings(v settings.Values) models.Payload {
	return models.SoundSettings{
		SoundEnabled:     v.Bool(settings.SoundEnabled),
		SoundVolume:      models.VolumeToFraction(v.Float(settings.SoundVolume)),
		SoundType:        v.String(settings.SoundType),
		VibrationEnabled: v.Bool(settings.VibrationEnabled),
		VibrationMs:      v.Int(settings.VibrationMs),
		UseHaptic:        v.Bool(settings.UseHaptic),
	}
}

func keyboardSound(v settings.Values) models.Payload {
	return models.KeyboardSound{
		Enabled: v.Bool(settings.SoundEnabled),
		Volume:  models.VolumeToFraction(v.Float(settings.SoundVolume)),
		Sound:   v.String(settings.SoundType),
	}
}

func gestureSettings(v settings.Values) models.Payload {
	actions := make(map[string]string, len(settings.GestureSlots))
	for _, slot := range settings.GestureSlots {
		actions[slot.Key] = v.String(slot.Key)
	}
	return models.GestureSettings{
		GlideTyping:      v.Bool(settings.GlideTyping),
		ShowGlideTrail:   v.Bool(settings.ShowGlideTrail),
		GlideTrailFadeMs: v.Int(settings.GlideTrailFadeMs),
		SwipeVelocity:    v.Float(settings.SwipeVelocity),
		SwipeDistance:    v.Float(settings.SwipeDistance),
		Actions:          actions,
	}
}

func keyboardSettings(v settings.Values) models.Payload {
	return models.KeyboardSettings{
		NumberRow:         v.Bool(settings.NumberRow),
		KeyBorders:        v.Bool(settings.KeyBorders),
		KeyHeightPercent:  v.Int(settings.KeyHeightPercent),
		OneHandedMode:     v.String(settings.OneHandedMode),
		OneHandedWidth:    v.Float(settings.OneHandedWidth),
		PopupOnKeypress:   v.Bool(settings.PopupOnKeypress),
		AutoCapitalize:    v.Bool(settings.AutoCapitalize),
		DoubleSpacePeriod: v.Bool(settings.DoubleSpacePeriod),
		Languages:         v.Strings(settings.Languages),
		CurrentLanguage:   v.String(settings.CurrentLanguage),
		ActiveFeatures:    v.Strings(settings.ActiveFeatures),
	}
}

func oneHandedMode(v settings.Values) models.Payload {
	return models.OneHandedMode{
		Mode:  v.String(settings.OneHandedMode),
		Width: v.Float(settings.OneHandedWidth),
	}
}

func clipboardSettings(v settings.Values) models.Payload {
	return models.ClipboardSettings{
		ClipboardHistory: v.Bool(settings.ClipboardHistory),
		MaxItems:         v.Int(settings.ClipboardMaxItems),
		ExpiryMinutes:    v.Int(settings.ClipboardExpiryMin),
		SyncToCloud:      v.Bool(settings.ClipboardCloudSync),
	}
}

func emojiSettings(v settings.Values) models.Payload {
	return models.EmojiSettings{
		SkinTone:        v.String(settings.EmojiSkinTone),
		RecentLimit:     v.Int(settings.EmojiRecentLimit),
		ShowSuggestions: v.Bool(settings.EmojiSuggestions),
	}
}

func dictionarySettings(v settings.Values) models.Payload {
	return models.DictionarySettings{
		LearnWords:          v.Bool(settings.LearnWords),
		Suggestions:         v.Bool(settings.ShowSuggestions),
		AutoCorrect:         v.Bool(settings.AutoCorrect),
		NextWordPrediction:  v.Bool(settings.NextWordPrediction),
		BlockOffensiveWords: v.Bool(settings.BlockOffensiveWords),
	}
}

func themeSettings(v settings.Values) models.Payload {
	return models.ThemeSettings{
		Theme:       v.String(settings.Theme),
		ButtonStyle: v.String(settings.ButtonStyle),
		Font:        v.String(settings.FontFamily),
		FontScale:   v.Float(settings.FontScale),
	}
}
