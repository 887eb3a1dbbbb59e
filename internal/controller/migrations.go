package controller

import (
	"github.com/glyphkey/kbcompanion/internal/prefs"
	"github.com/glyphkey/kbcompanion/internal/settings"
)

// Migrations are the preference migrations applied at startup, in order.
var Migrations = []prefs.Migration{
	{Version: 1, Name: "reset sound and vibration", Apply: resetSoundAndVibration},
}

// resetSoundAndVibration writes the sound and vibration defaults under every
// alias.
func resetSoundAndVibration(s prefs.Store) error {
	for _, key := range []string{
		settings.SoundEnabled,
		settings.SoundVolume,
		settings.VibrationEnabled,
		settings.VibrationMs,
	} {
		f, _ := settings.Sounds.Field(key)
		if err := prefs.WriteAll(s, f.Aliases, f.StoredValue(f.DefaultValue())); err != nil {
			return err
		}
	}
	return nil
}
