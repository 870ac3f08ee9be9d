package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

const (
	// DefaultReadyTimeout bounds how long Ensure waits for a process to answer.
	DefaultReadyTimeout = 5 * time.Second
	// defaultCheckInterval is the delay between health checks.
	defaultCheckInterval = 200 * time.Millisecond
)

// errNotReady is returned when the audio surface does not answer in time.
var errNotReady = errors.New("audio surface did not become ready")

// Client talks to the audio surface service.
type Client interface {
	Send(ctx context.Context, req domain.Request) (domain.Response, error)
	Healthy(ctx context.Context) error
}

// Instances manages audio surface processes.
type Instances interface {
	Running() ([]int, error)
	Terminate(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
}

// RemoteAudio is an audio channel to a separate audio surface process.
type RemoteAudio struct {
	// client sends instructions and health checks.
	client Client
	// instances starts and stops the process.
	instances Instances

	// ctx bounds processes started by Ensure.
	ctx context.Context //nolint:containedctx // Lifetime of started processes.
	// readyTimeout bounds a single wait for readiness.
	readyTimeout time.Duration
	// checkInterval is the delay between health checks.
	checkInterval time.Duration

	// mu serializes Ensure so only one caller starts a process.
	mu sync.Mutex
}

// RemoteOption configures RemoteAudio.
type RemoteOption func(*RemoteAudio)

// WithReadyTimeout overrides DefaultReadyTimeout.
func WithReadyTimeout(timeout time.Duration) RemoteOption {
	return func(r *RemoteAudio) {
		if timeout > 0 {
			r.readyTimeout = timeout
		}
	}
}

// NewRemoteAudio creates the channel. Processes it starts live as long as ctx.
func NewRemoteAudio(ctx context.Context, client Client, instances Instances, opts ...RemoteOption) *RemoteAudio {
	r := &RemoteAudio{
		client:        client,
		instances:     instances,
		ctx:           logger.WithName(ctx, "audio-launcher"),
		readyTimeout:  DefaultReadyTimeout,
		checkInterval: defaultCheckInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Ensure makes sure an audio surface answers. A running instance gets a chance
// to become ready; one that never does is replaced.
func (r *RemoteAudio) Ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client.Healthy(ctx) == nil {
		return nil
	}

	pids, err := r.instances.Running()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
	}

	if len(pids) > 0 {
		logger.InfoKV(ctx, "Waiting for running audio surface", "pids", pids)

		if err = r.waitReady(ctx); err == nil {
			return nil
		}

		logger.WarnKV(ctx, "Audio surface is not answering, replacing it", "error", err)

		if err = r.instances.Terminate(ctx); err != nil {
			return fmt.Errorf("terminate audio surface: %w", err)
		}
	}

	if err = r.instances.Start(r.ctx); err != nil {
		return fmt.Errorf("start audio surface: %w", err)
	}

	return r.waitReady(ctx)
}

// Send delivers an instruction to the audio surface.
func (r *RemoteAudio) Send(ctx context.Context, req domain.Request) (domain.Response, error) {
	return r.client.Send(ctx, req)
}

// Close stops the process started by Ensure, if any.
func (r *RemoteAudio) Close() error {
	return r.instances.Stop()
}

// waitReady checks health until the surface is healthy or readyTimeout passes.
func (r *RemoteAudio) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		err := r.client.Healthy(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errNotReady, err)
		case <-ticker.C:
		}
	}
}
