package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/oshokin/order-alert/internal/api/grpc/command"
	"github.com/oshokin/order-alert/internal/api/httpapi"
	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/events"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/repository/shop"
	"github.com/oshokin/order-alert/internal/service/monitor"
	"github.com/oshokin/order-alert/internal/service/orders"
)

// Options controls the monitor daemon and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the configuration.
	ListenAddress string
	// HTTPAddress overrides the HTTP API listen address from the configuration.
	HTTPAddress string
	// StoreFile overrides the shop store path from the configuration.
	StoreFile string
	// AudioMode overrides the audio surface mode from the configuration.
	AudioMode string
}

const (
	// shutdownTimeout bounds silencing the alert and stopping servers.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout protects the HTTP API from slow clients.
	readHeaderTimeout = 10 * time.Second
)

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the monitor daemon and blocks until ctx is canceled or a server fails.
//
//nolint:funlen // Wiring of all daemon parts reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "order-alert-monitor")

	cfg, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if !logger.SetLevelString(cfg.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping current", "log_level", cfg.LogLevel)
	}

	listenAddress, err := resolveListenAddress(cfg.GRPCAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	fetcher, err := orders.NewClient(cfg.EndpointURL, orders.WithTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("create count client: %w", err)
	}

	repo := shop.NewFileRepository(cfg.StoreFile)

	hub := events.NewHub(events.DefaultBuffer)
	defer hub.Close()

	audioChannel, closeAudio, err := openAudio(ctx, cfg, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("open audio surface: %w", err)
	}

	defer closeAudio()

	scheduler := monitor.NewCronScheduler(ctx)
	scheduler.Start()

	defer scheduler.Stop(context.WithoutCancel(ctx))

	mon, err := monitor.New(ctx, fetcher, audioChannel, scheduler,
		monitor.WithInterval(cfg.PollInterval),
		monitor.WithThrottle(cfg.AlertThrottle),
		monitor.WithPublisher(hub),
	)
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}

	if cfg.DesktopNotifications {
		alerts, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		go runDesktopNotifier(ctx, alerts, notifyDesktop)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	command.RegisterMonitorServer(grpcServer, command.NewServer(mon.Handle))
	healthServer := command.RegisterHealth(grpcServer, command.MonitorServiceName)

	httpServer, err := startHTTP(ctx, cfg.HTTPAddress, httpapi.NewRouter(ctx, mon, hub))
	if err != nil {
		_ = lis.Close()
		return err
	}

	logger.InfoKV(ctx, "Monitor daemon listening",
		"grpc_address", listenAddress,
		"http_address", cfg.HTTPAddress,
		"store_file", repo.Path(),
		"audio_mode", cfg.Audio.Mode,
	)

	lifecycleDone := make(chan struct{})

	go func() {
		defer close(lifecycleDone)
		runLifecycle(ctx, mon, repo)
	}()

	// Done channel is closed after shutdown finishes to ensure we block
	// until everything stops before returning.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.InfoKV(ctx, "Shutting down monitor daemon",
			"event_subscribers", hub.Len(),
			"scheduled_polls", scheduler.Len(),
		)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		<-lifecycleDone
		mon.StopMonitoring(shutdownCtx)

		healthServer.Shutdown()
		grpcServer.GracefulStop()

		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", err)
			}
		}
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Monitor daemon stopped")

	return nil
}

// loadSettings loads the configuration and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.StoreFile != "" {
		cfg.StoreFile = opts.StoreFile
	}

	if opts.HTTPAddress != "" {
		cfg.HTTPAddress = opts.HTTPAddress
	}

	if opts.AudioMode != "" {
		cfg.Audio.Mode = opts.AudioMode
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return cfg, nil
}

// runLifecycle resumes monitoring at start and every time the store is written,
// until ctx is canceled.
func runLifecycle(ctx context.Context, mon *monitor.Monitor, repo *shop.FileRepository) {
	resume := func(ctx context.Context) {
		if _, err := mon.Resume(ctx, repo); err != nil {
			logger.ErrorKV(ctx, "Resume monitoring failed", "error", err)
		}
	}

	resume(ctx)

	if err := repo.Watch(ctx, resume); err != nil {
		logger.ErrorKV(ctx, "Store watcher stopped", "error", err)
	}
}

// startHTTP serves handler on address in the background. An empty address disables the API.
func startHTTP(ctx context.Context, address string, handler http.Handler) (*http.Server, error) {
	if address == "" {
		return nil, nil //nolint:nilnil // Disabled API is not an error.
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "HTTP server failed", "error", err)
		}
	}()

	return srv, nil
}

// resolveListenAddress determines the gRPC listen address.
// The override wins; otherwise the configured address is used as is so a
// loopback host stays loopback.
func resolveListenAddress(configAddr, override string) (string, error) {
	address := override
	if address == "" {
		address = configAddr
	}

	if address == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", address, err)
	}

	return address, nil
}
