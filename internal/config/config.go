package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the monitor, audio surface and CLI binaries.
type Config struct {
	// EndpointURL is the remote endpoint that reports the pending-order count.
	EndpointURL string `yaml:"endpoint_url"`
	// PollInterval is the fixed delay between poll ticks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// AlertThrottle is the minimum gap between two one-shot alerts.
	AlertThrottle time.Duration `yaml:"alert_throttle"`
	// Timeout bounds HTTP fetches and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// StoreFile is the path to the JSON key-value store holding the shop identifier.
	StoreFile string `yaml:"store_file"`
	// GRPCAddress is where the monitor command service listens.
	GRPCAddress string `yaml:"grpc_address"`
	// HTTPAddress is where the HTTP command API listens. Empty disables it.
	HTTPAddress string `yaml:"http_address"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
	// DesktopNotifications enables a desktop notification for each one-shot alert.
	DesktopNotifications bool `yaml:"desktop_notifications"`
	// Audio configures the audio surface.
	Audio Audio `yaml:"audio"`
}

// Audio holds the audio surface settings.
type Audio struct {
	// Mode selects an in-process surface (embedded) or a separate process (remote).
	Mode string `yaml:"mode"`
	// Address is the gRPC address of the remote audio surface.
	Address string `yaml:"address"`
	// Executable is the audio surface binary the monitor launches in remote mode.
	Executable string `yaml:"executable"`
	// NotificationSound overrides the synthesized one-shot clip with a WAV file.
	NotificationSound string `yaml:"notification_sound"`
	// LoopSound overrides the synthesized looping clip with a WAV file.
	LoopSound string `yaml:"loop_sound"`
	// Player overrides the detected OS audio player command.
	Player string `yaml:"player"`
	// NotificationVolume scales the one-shot clip (0..1]. A user file gets it
	// only through players with a volume flag (paplay, afplay, mpv).
	NotificationVolume float64 `yaml:"notification_volume"`
	// LoopVolume scales the looping clip (0..1], with the same user file caveat.
	LoopVolume float64 `yaml:"loop_volume"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "order-alert-settings.yaml"

	// DefaultStoreFilename is the default filename of the shop key-value store.
	DefaultStoreFilename = "order-alert-shop.json"

	// DefaultEndpointURL is the production pending-order count endpoint.
	DefaultEndpointURL = "https://getshopnotificationcount-snbci4upja-uc.a.run.app"

	// DefaultPollInterval is the fixed delay between poll ticks.
	DefaultPollInterval = 5 * time.Second

	// DefaultAlertThrottle is the minimum gap between one-shot alerts.
	DefaultAlertThrottle = 5 * time.Second

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultGRPCAddress is the default listen address of the monitor command service.
	DefaultGRPCAddress = "127.0.0.1:50061"

	// DefaultAudioAddress is the default listen address of a remote audio surface.
	DefaultAudioAddress = "127.0.0.1:50062"

	// DefaultAudioExecutable is the audio surface binary name.
	DefaultAudioExecutable = "order-alert-audio"

	// DefaultNotificationVolume is the one-shot clip volume.
	DefaultNotificationVolume = 0.7

	// DefaultLoopVolume is the looping clip volume.
	DefaultLoopVolume = 0.5

	// DefaultFilePermissions is the default file permission for config and store files.
	DefaultFilePermissions = 0o600

	// AudioModeEmbedded runs the audio surface inside the monitor process.
	AudioModeEmbedded = "embedded"

	// AudioModeRemote talks to a separate audio surface process over gRPC.
	AudioModeRemote = "remote"

	// envPrefix prefixes every environment override.
	envPrefix = "ORDER_ALERT_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownAudioMode is returned for an audio mode other than embedded or remote.
	errUnknownAudioMode = errors.New("unknown audio mode")
	// errBadVolume is returned when a volume falls outside (0, 1].
	errBadVolume = errors.New("volume must be within (0, 1]")
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg) //nolint:errcheck // Defaults are always valid.

	return cfg
}

// Load reads configuration from the provided path, applies environment
// overrides and validates the result. A missing file at the default path
// yields the defaults so the binaries work without any setup.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	// A .env file is optional.
	_ = godotenv.Load() //nolint:errcheck // Missing .env is the common case.

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Fall through with an empty configuration.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting
// and fills in defaults for everything left empty.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.EndpointURL == "" {
		settings.EndpointURL = DefaultEndpointURL
	}

	if _, err := url.ParseRequestURI(settings.EndpointURL); err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.AlertThrottle <= 0 {
		settings.AlertThrottle = DefaultAlertThrottle
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.StoreFile == "" {
		settings.StoreFile = DefaultStoreFilename
	}

	if settings.GRPCAddress == "" {
		settings.GRPCAddress = DefaultGRPCAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.GRPCAddress); err != nil {
		return fmt.Errorf("invalid gRPC address: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid HTTP address: %w", err)
		}
	}

	return validateAudio(&settings.Audio)
}

// validateAudio fills audio defaults and checks the mode and volumes.
func validateAudio(audio *Audio) error {
	audio.Mode = strings.ToLower(strings.TrimSpace(audio.Mode))

	switch audio.Mode {
	case "":
		audio.Mode = AudioModeEmbedded
	case AudioModeEmbedded, AudioModeRemote:
	default:
		return fmt.Errorf("%w: %q", errUnknownAudioMode, audio.Mode)
	}

	if audio.Address == "" {
		audio.Address = DefaultAudioAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", audio.Address); err != nil {
		return fmt.Errorf("invalid audio address: %w", err)
	}

	if audio.Executable == "" {
		audio.Executable = DefaultAudioExecutable
	}

	if audio.NotificationVolume == 0 {
		audio.NotificationVolume = DefaultNotificationVolume
	}

	if audio.LoopVolume == 0 {
		audio.LoopVolume = DefaultLoopVolume
	}

	if audio.NotificationVolume < 0 || audio.NotificationVolume > 1 ||
		audio.LoopVolume < 0 || audio.LoopVolume > 1 {
		return errBadVolume
	}

	return nil
}

// applyEnv overrides cfg fields from ORDER_ALERT_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENDPOINT_URL":     &cfg.EndpointURL,
		"STORE_FILE":       &cfg.StoreFile,
		"GRPC_ADDRESS":     &cfg.GRPCAddress,
		"HTTP_ADDRESS":     &cfg.HTTPAddress,
		"LOG_LEVEL":        &cfg.LogLevel,
		"AUDIO_MODE":       &cfg.Audio.Mode,
		"AUDIO_ADDRESS":    &cfg.Audio.Address,
		"AUDIO_EXECUTABLE": &cfg.Audio.Executable,
		"AUDIO_PLAYER":     &cfg.Audio.Player,
	}

	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"POLL_INTERVAL":  &cfg.PollInterval,
		"ALERT_THROTTLE": &cfg.AlertThrottle,
		"TIMEOUT":        &cfg.Timeout,
	}

	for key, dst := range durations {
		v, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}

		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}

		*dst = d
	}

	if v, ok := lookup(envPrefix + "DESKTOP_NOTIFICATIONS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sDESKTOP_NOTIFICATIONS: %w", envPrefix, err)
		}

		cfg.DesktopNotifications = b
	}

	return nil
}
