package server

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

var errTestNotify = errors.New("test notify error")

// TestResolveListenAddress verifies override, config and validation paths.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("127.0.0.1:50061", "")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:50061", address)

	address, err = resolveListenAddress("127.0.0.1:50061", ":9090")
	require.NoError(t, err)
	require.Equal(t, ":9090", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("localhost", "")
	require.Error(t, err)
}

// TestLoadSettings applies command line overrides on top of the file.
func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, config.Default()))

	cfg, err := loadSettings(&Options{
		ConfigPath:  path,
		StoreFile:   "/tmp/shop.json",
		HTTPAddress: "127.0.0.1:8099",
		AudioMode:   config.AudioModeRemote,
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/shop.json", cfg.StoreFile)
	require.Equal(t, "127.0.0.1:8099", cfg.HTTPAddress)
	require.Equal(t, config.AudioModeRemote, cfg.Audio.Mode)

	_, err = loadSettings(&Options{ConfigPath: path, AudioMode: "speakers"})
	require.Error(t, err)

	_, err = loadSettings(&Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

// TestRunDesktopNotifier notifies only for alert events.
func TestRunDesktopNotifier(t *testing.T) {
	t.Parallel()

	events := make(chan domain.Event, 3)
	events <- domain.Event{Kind: domain.EventPoll, Count: 1}
	events <- domain.Event{Kind: domain.EventAlert, Count: 2}
	events <- domain.Event{Kind: domain.EventAlert, Count: 3}
	close(events)

	var messages []string

	runDesktopNotifier(context.Background(), events, func(title, message string) error {
		require.Equal(t, notifyTitle, title)

		messages = append(messages, message)

		return errTestNotify
	})

	require.Equal(t, []string{"2 pending order(s)", "3 pending order(s)"}, messages)
}

// TestRun_ServesAndResumes starts the daemon with an embedded silent surface and
// stops it through context cancellation.
func TestRun_ServesAndResumes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.EndpointURL = "http://127.0.0.1:1"
	cfg.GRPCAddress = "127.0.0.1:0"
	cfg.StoreFile = filepath.Join(dir, "shop.json")
	cfg.Audio.Player = "true"
	cfg.Timeout = 100 * time.Millisecond

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(path, cfg))
	require.NoError(t, os.WriteFile(cfg.StoreFile, []byte(`{"shopId":"abc"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)

	go func() {
		errs <- Run(ctx, &Options{ConfigPath: path})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

// TestRun_HTTPListenFailureReleasesGRPC returns the HTTP listen error and frees the gRPC port.
func TestRun_HTTPListenFailureReleasesGRPC(t *testing.T) {
	t.Parallel()

	lc := net.ListenConfig{}

	busy, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() {
		_ = busy.Close()
	}()

	free, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcAddress := free.Addr().String()
	require.NoError(t, free.Close())

	dir := t.TempDir()

	cfg := config.Default()
	cfg.EndpointURL = "http://127.0.0.1:1"
	cfg.GRPCAddress = grpcAddress
	cfg.HTTPAddress = busy.Addr().String()
	cfg.StoreFile = filepath.Join(dir, "shop.json")
	cfg.Audio.Player = "true"

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	err = Run(context.Background(), &Options{ConfigPath: path})
	require.ErrorContains(t, err, busy.Addr().String())

	again, err := lc.Listen(context.Background(), "tcp", grpcAddress)
	require.NoError(t, err, "gRPC listener must be closed")
	require.NoError(t, again.Close())
}
