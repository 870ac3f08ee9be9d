package audioserver

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/oshokin/order-alert/internal/api/grpc/command"
	"github.com/oshokin/order-alert/internal/audio"
	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/logger"
)

// Options controls the audio surface process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the audio address from the configuration.
	ListenAddress string
}

// Run serves the audio surface until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "order-alert-audio")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !logger.SetLevelString(cfg.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping current", "log_level", cfg.LogLevel)
	}

	address := cfg.Audio.Address
	if opts.ListenAddress != "" {
		address = opts.ListenAddress
	}

	surface, err := audio.Open(ctx, audio.OptionsFromSettings(&cfg.Audio))
	if err != nil {
		return fmt.Errorf("open audio surface: %w", err)
	}

	defer surface.Close()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return serve(ctx, lis, surface)
}

// serve answers audio instructions on lis until ctx is canceled.
// Any playing loop is silenced before returning.
func serve(ctx context.Context, lis net.Listener, surface *audio.Surface) error {
	grpcServer := grpc.NewServer()
	command.RegisterAudioServer(grpcServer, command.NewServer(surface.Dispatch))
	healthServer := command.RegisterHealth(grpcServer, command.AudioServiceName)

	logger.InfoKV(ctx, "Audio surface listening", "address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down audio surface")

		healthServer.Shutdown()
		grpcServer.GracefulStop()

		if err := surface.StopLoop(ctx); err != nil {
			logger.ErrorKV(ctx, "Stop loop failed", "error", err)
		}
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Audio surface stopped")

	return nil
}
