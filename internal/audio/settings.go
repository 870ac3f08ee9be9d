package audio

import "github.com/oshokin/order-alert/internal/config"

// OptionsFromSettings maps the audio section of the configuration to surface options.
func OptionsFromSettings(settings *config.Audio) Options {
	return Options{
		NotificationSound:  settings.NotificationSound,
		LoopSound:          settings.LoopSound,
		Player:             settings.Player,
		NotificationVolume: settings.NotificationVolume,
		LoopVolume:         settings.LoopVolume,
	}
}
