package server

import (
	"context"
	"fmt"

	"github.com/oshokin/order-alert/internal/api/grpc/command"
	"github.com/oshokin/order-alert/internal/audio"
	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/service/launcher"
	"github.com/oshokin/order-alert/internal/service/monitor"
)

// openAudio builds the monitor's audio channel for the configured mode and
// returns a function releasing it.
//
//nolint:ireturn // The mode decides the implementation.
func openAudio(ctx context.Context, cfg *config.Config, configPath string) (monitor.AudioChannel, func(), error) {
	if cfg.Audio.Mode == config.AudioModeRemote {
		remote, closeRemote, err := openRemoteAudio(ctx, cfg, configPath)
		if err != nil {
			return nil, nil, err
		}

		return remote, closeRemote, nil
	}

	mailbox, closeMailbox, err := openEmbeddedAudio(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return mailbox, closeMailbox, nil
}

// openEmbeddedAudio runs the surface in this process behind a mailbox.
func openEmbeddedAudio(ctx context.Context, cfg *config.Config) (*audio.Mailbox, func(), error) {
	surface, err := audio.Open(ctx, audio.OptionsFromSettings(&cfg.Audio))
	if err != nil {
		return nil, nil, err
	}

	mailbox := audio.NewMailbox(surface)

	return mailbox, func() {
		mailbox.Close()
		surface.Close()
	}, nil
}

// openRemoteAudio talks to an audio surface process, starting one when needed.
func openRemoteAudio(ctx context.Context, cfg *config.Config, configPath string) (*launcher.RemoteAudio, func(), error) {
	client, err := command.DialAudio(ctx, cfg.Audio.Address, command.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("dial audio surface: %w", err)
	}

	args := []string{"--listen", cfg.Audio.Address}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	process := launcher.NewProcess(cfg.Audio.Executable, args...)
	remote := launcher.NewRemoteAudio(ctx, client, process)

	logger.InfoKV(ctx, "Using remote audio surface", "address", cfg.Audio.Address, "executable", process.Name())

	return remote, func() {
		if err := remote.Close(); err != nil {
			logger.ErrorKV(ctx, "Stop audio surface failed", "error", err)
		}

		_ = client.Close()
	}, nil
}
