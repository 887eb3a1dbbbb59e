package settings

import (
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

// Feature areas.
const (
	AreaSounds     = "sounds"
	AreaGestures   = "gestures"
	AreaKeyboard   = "keyboard"
	AreaClipboard  = "clipboard"
	AreaEmoji      = "emoji"
	AreaDictionary = "dictionary"
	AreaTheme      = "theme"
)

// Sound setting keys.
const (
	SoundEnabled     = "sound_enabled"
	SoundVolume      = "sound_volume"
	SoundType        = "sound_type"
	VibrationEnabled = "vibration_enabled"
	VibrationMs      = "vibration_ms"
	UseHaptic        = "use_haptic_feedback"
)

// Sounds is the sound and vibration screen. Volume is canonical 0-100; the
// bare legacy key stores a 0-1 fraction.
var Sounds = Schema{
	Area: AreaSounds,
	Fields: []Field{
		{Key: SoundEnabled, Kind: Bool, Default: true,
			Aliases: append(prefs.Both(SoundEnabled), prefs.Key("sounds.enabled"))},
		{Key: SoundVolume, Kind: Int, Default: 50, Min: models.MinVolume, Max: models.MaxVolume,
			Aliases: []prefs.Alias{prefs.Flutter(SoundVolume), prefs.Key(SoundVolume).Scaled(0.01), prefs.Key("sounds.volume")}},
		{Key: SoundType, Kind: Enum, Default: "default",
			Allowed: []string{"default", "click", "typewriter", "soft", "mechanical", "bubble"},
			Aliases: prefs.Both(SoundType)},
		{Key: VibrationEnabled, Kind: Bool, Default: true,
			Aliases: append(prefs.Both(VibrationEnabled), prefs.Key("sounds.vibration_enabled"))},
		{Key: VibrationMs, Kind: Int, Default: 25, Min: models.MinVibrationMs, Max: models.MaxVibrationMs,
			Aliases: []prefs.Alias{prefs.Flutter(VibrationMs), prefs.Key(VibrationMs), prefs.Flutter("vibration_duration")}},
		{Key: UseHaptic, Kind: Bool, Default: false, Aliases: prefs.Both(UseHaptic)},
	},
}

// Gesture setting keys.
const (
	GlideTyping      = "glide_typing"
	ShowGlideTrail   = "show_glide_trail"
	GlideTrailFadeMs = "glide_trail_fade_ms"
	SwipeVelocity    = "swipe_velocity_threshold"
	SwipeDistance    = "swipe_distance_threshold"
)

// GestureSlots maps each gesture slot key to its default action.
var GestureSlots = []struct {
	Key     string
	Default string
}{
	{"gesture_swipe_up", models.ActionShift},
	{"gesture_swipe_down", models.ActionHideKeyboard},
	{"gesture_swipe_left", models.ActionDeleteWord},
	{"gesture_swipe_right", models.ActionNone},
	{"gesture_space_swipe_left", models.ActionCursorLeft},
	{"gesture_space_swipe_right", models.ActionCursorRight},
	{"gesture_space_long_press", models.ActionSwitchLanguage},
	{"gesture_delete_swipe_left", models.ActionDeleteWord},
}

// Gestures is the gesture and glide typing screen.
var Gestures = Schema{
	Area: AreaGestures,
	Fields: append([]Field{
		{Key: GlideTyping, Kind: Bool, Default: true,
			Aliases: append(prefs.Both(GlideTyping), prefs.Key("gestures.glide_typing"))},
		{Key: ShowGlideTrail, Kind: Bool, Default: true,
			Aliases: append(prefs.Both(ShowGlideTrail), prefs.Key("gestures.show_glide_trail"))},
		{Key: GlideTrailFadeMs, Kind: Int, Default: 300, Min: 100, Max: 1000, Aliases: prefs.Both(GlideTrailFadeMs)},
		{Key: SwipeVelocity, Kind: Float, Default: 1900.0, Min: 500, Max: 5000, Aliases: prefs.Both(SwipeVelocity)},
		{Key: SwipeDistance, Kind: Float, Default: 80.0, Min: 10, Max: 200, Aliases: prefs.Both(SwipeDistance)},
	}, gestureSlotFields()...),
	Derive: func(v Values) {
		if !v.Bool(GlideTyping) {
			v[ShowGlideTrail] = false
		}
	},
}

func gestureSlotFields() []Field {
	fields := make([]Field, 0, len(GestureSlots))
	for _, slot := range GestureSlots {
		fields = append(fields, Field{
			Key:     slot.Key,
			Kind:    Enum,
			Default: slot.Default,
			Allowed: models.GestureActions,
			Aliases: prefs.Both(slot.Key),
		})
	}
	return fields
}

// Keyboard layout setting keys.
const (
	NumberRow         = "number_row"
	KeyBorders        = "key_borders"
	KeyHeightPercent  = "key_height_percent"
	OneHandedMode     = "one_handed_mode"
	OneHandedWidth    = "one_handed_width"
	PopupOnKeypress   = "popup_on_keypress"
	AutoCapitalize    = "auto_capitalize"
	DoubleSpacePeriod = "double_space_period"
	Languages         = "enabled_languages"
	CurrentLanguage   = "current_language"
	ActiveFeatures    = "active_features"
)

// Keyboard is the keyboard layout screen.
var Keyboard = Schema{
	Area: AreaKeyboard,
	Fields: []Field{
		{Key: NumberRow, Kind: Bool, Default: false, Aliases: prefs.Both(NumberRow)},
		{Key: KeyBorders, Kind: Bool, Default: true, Aliases: prefs.Both(KeyBorders)},
		{Key: KeyHeightPercent, Kind: Int, Default: 100, Min: 80, Max: 130, Aliases: prefs.Both(KeyHeightPercent)},
		{Key: OneHandedMode, Kind: Enum, Default: models.OneHandedOff,
			Allowed: []string{models.OneHandedOff, models.OneHandedLeft, models.OneHandedRight},
			Aliases: prefs.Both(OneHandedMode)},
		{Key: OneHandedWidth, Kind: Float, Default: 0.87, Min: 0.6, Max: 0.95, Aliases: prefs.Both(OneHandedWidth)},
		{Key: PopupOnKeypress, Kind: Bool, Default: true, Aliases: prefs.Both(PopupOnKeypress)},
		{Key: AutoCapitalize, Kind: Bool, Default: true, Aliases: prefs.Both(AutoCapitalize)},
		{Key: DoubleSpacePeriod, Kind: Bool, Default: true, Aliases: prefs.Both(DoubleSpacePeriod)},
		{Key: Languages, Kind: StringList, Default: []string{"en"}, Aliases: prefs.Both(Languages)},
		{Key: CurrentLanguage, Kind: String, Default: "en", Aliases: prefs.Both(CurrentLanguage)},
		{Key: ActiveFeatures, Kind: StringList, Default: []string{"suggestions", "glide", "emoji"},
			Aliases: prefs.Both(ActiveFeatures)},
	},
	Derive: func(v Values) {
		langs := v.Strings(Languages)
		if len(langs) == 0 {
			langs = []string{"en"}
			v[Languages] = langs
		}
		cur := v.String(CurrentLanguage)
		for _, l := range langs {
			if l == cur {
				return
			}
		}
		v[CurrentLanguage] = langs[0]
	},
}

// Clipboard setting keys.
const (
	ClipboardHistory   = "clipboard_history"
	ClipboardMaxItems  = "clipboard_max_items"
	ClipboardExpiryMin = "clipboard_expiry_minutes"
	ClipboardCloudSync = "clipboard_cloud_sync"
)

// Clipboard is the clipboard settings screen.
var Clipboard = Schema{
	Area: AreaClipboard,
	Fields: []Field{
		{Key: ClipboardHistory, Kind: Bool, Default: true,
			Aliases: append(prefs.Both(ClipboardHistory), prefs.Key("clipboard.history_enabled"))},
		{Key: ClipboardMaxItems, Kind: Int, Default: 20, Min: 5, Max: 100, Aliases: prefs.Both(ClipboardMaxItems)},
		{Key: ClipboardExpiryMin, Kind: Int, Default: 60, Min: 0, Max: 1440, Aliases: prefs.Both(ClipboardExpiryMin)},
		{Key: ClipboardCloudSync, Kind: Bool, Default: false, Aliases: prefs.Both(ClipboardCloudSync)},
	},
}

// Emoji setting keys.
const (
	EmojiSkinTone    = "emoji_skin_tone"
	EmojiRecentLimit = "emoji_recent_limit"
	EmojiSuggestions = "emoji_suggestions"
)

// Emoji is the emoji skin tone screen.
var Emoji = Schema{
	Area: AreaEmoji,
	Fields: []Field{
		{Key: EmojiSkinTone, Kind: Enum, Default: "default", Allowed: models.SkinTones,
			Aliases: append(prefs.Both(EmojiSkinTone), prefs.Key("emoji.skin_tone"))},
		{Key: EmojiRecentLimit, Kind: Int, Default: 25, Min: 10, Max: 50, Aliases: prefs.Both(EmojiRecentLimit)},
		{Key: EmojiSuggestions, Kind: Bool, Default: true, Aliases: prefs.Both(EmojiSuggestions)},
	},
}

// Dictionary setting keys.
const (
	LearnWords          = "learn_words"
	ShowSuggestions     = "show_suggestions"
	AutoCorrect         = "auto_correct"
	NextWordPrediction  = "next_word_prediction"
	BlockOffensiveWords = "block_offensive_words"
)

// Dictionary is the dictionary and prediction screen.
var Dictionary = Schema{
	Area: AreaDictionary,
	Fields: []Field{
		{Key: LearnWords, Kind: Bool, Default: true, Aliases: prefs.Both(LearnWords)},
		{Key: ShowSuggestions, Kind: Bool, Default: true, Aliases: prefs.Both(ShowSuggestions)},
		{Key: AutoCorrect, Kind: Bool, Default: true, Aliases: prefs.Both(AutoCorrect)},
		{Key: NextWordPrediction, Kind: Bool, Default: true, Aliases: prefs.Both(NextWordPrediction)},
		{Key: BlockOffensiveWords, Kind: Bool, Default: false, Aliases: prefs.Both(BlockOffensiveWords)},
	},
	Derive: func(v Values) {
		if !v.Bool(ShowSuggestions) {
			v[NextWordPrediction] = false
		}
	},
}

// Theme setting keys.
const (
	Theme       = "keyboard_theme"
	ButtonStyle = "button_style"
	FontFamily  = "font_family"
	FontScale   = "font_scale"
)

// ThemeStyle is the theme, button and font style picker.
var ThemeStyle = Schema{
	Area: AreaTheme,
	Fields: []Field{
		{Key: Theme, Kind: Enum, Default: "default",
			Allowed: []string{"default", "dark", "light", "ocean", "forest", "sunset", "midnight", "custom"},
			Aliases: append(prefs.Both(Theme), prefs.Key("theme.name"))},
		{Key: ButtonStyle, Kind: Enum, Default: "rounded",
			Allowed: []string{"rounded", "flat", "outlined", "pill"}, Aliases: prefs.Both(ButtonStyle)},
		{Key: FontFamily, Kind: Enum, Default: "system",
			Allowed: []string{"system", "roboto", "noto_sans", "open_sans", "serif", "monospace"},
			Aliases: prefs.Both(FontFamily)},
		{Key: FontScale, Kind: Float, Default: 1.0, Min: 0.8, Max: 1.4, Aliases: prefs.Both(FontScale)},
	},
}

// All returns every feature area schema.
func All() []*Schema {
	return []*Schema{&Sounds, &Gestures, &Keyboard, &Clipboard, &Emoji, &Dictionary, &ThemeStyle}
}

// ByArea returns the schema for area.
func ByArea(area string) (*Schema, bool) {
	for _, s := range All() {
		if s.Area == area {
			return s, true
		}
	}
	return nil, false
}
