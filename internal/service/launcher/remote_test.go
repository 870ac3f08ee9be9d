package launcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

var (
	errTestUnavailable = errors.New("test unavailable")
	errTestStart       = errors.New("test start error")
)

// fakeClient becomes healthy once the fake instances report a ready process.
type fakeClient struct {
	mu       sync.Mutex
	ready    func() bool
	checks   int
	requests []domain.Request
}

// Healthy reports whether ready returns true.
func (c *fakeClient) Healthy(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks++

	if c.ready() {
		return nil
	}

	return errTestUnavailable
}

// Send records req.
func (c *fakeClient) Send(_ context.Context, req domain.Request) (domain.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)

	return domain.OK(), nil
}

// fakeInstances simulates processes that get ready some time after they start.
type fakeInstances struct {
	mu         sync.Mutex
	running    []int
	readyAt    time.Time
	startDelay time.Duration
	startErr   error
	starts     int
	terminated int
	stopped    int
}

// ready reports whether a started process is answering.
func (f *fakeInstances) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.readyAt.IsZero() && !time.Now().Before(f.readyAt)
}

// Running returns the simulated pids.
func (f *fakeInstances) Running() ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.running, nil
}

// Terminate forgets every simulated process.
func (f *fakeInstances) Terminate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.terminated++
	f.running = nil
	f.readyAt = time.Time{}

	return nil
}

// Start simulates a process that answers after startDelay.
func (f *fakeInstances) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}

	f.starts++
	f.running = []int{100 + f.starts}
	f.readyAt = time.Now().Add(f.startDelay)

	return nil
}

// Stop counts stop requests.
func (f *fakeInstances) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped++

	return nil
}

// newTestRemote wires a RemoteAudio over the fakes.
func newTestRemote(instances *fakeInstances) (*RemoteAudio, *fakeClient) {
	client := &fakeClient{ready: instances.ready}
	remote := NewRemoteAudio(context.Background(), client, instances, WithReadyTimeout(time.Second))

	return remote, client
}

// TestRemoteAudio_StartsWhenNoneRunning launches a process and waits until it answers.
func TestRemoteAudio_StartsWhenNoneRunning(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		instances := &fakeInstances{startDelay: 500 * time.Millisecond}
		remote, client := newTestRemote(instances)

		require.NoError(t, remote.Ensure(context.Background()))
		require.Equal(t, 1, instances.starts)
		require.Zero(t, instances.terminated)

		// Already healthy: nothing to do.
		require.NoError(t, remote.Ensure(context.Background()))
		require.Equal(t, 1, instances.starts)

		resp, err := remote.Send(context.Background(), domain.Request{Action: domain.ActionPlayNotification})
		require.NoError(t, err)
		require.True(t, resp.Success)
		require.Len(t, client.requests, 1)

		require.NoError(t, remote.Close())
		require.Equal(t, 1, instances.stopped)
	})
}

// TestRemoteAudio_ReusesRunningInstance waits for a running process instead of starting another.
func TestRemoteAudio_ReusesRunningInstance(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		instances := &fakeInstances{
			running: []int{42},
			readyAt: time.Now().Add(300 * time.Millisecond),
		}
		remote, _ := newTestRemote(instances)

		require.NoError(t, remote.Ensure(context.Background()))
		require.Zero(t, instances.starts)
		require.Zero(t, instances.terminated)
	})
}

// TestRemoteAudio_ReplacesStuckInstance terminates a process that never answers.
func TestRemoteAudio_ReplacesStuckInstance(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		instances := &fakeInstances{running: []int{42}}
		remote, _ := newTestRemote(instances)

		start := time.Now()

		require.NoError(t, remote.Ensure(context.Background()))
		require.Equal(t, 1, instances.terminated)
		require.Equal(t, 1, instances.starts)
		require.GreaterOrEqual(t, time.Since(start), time.Second)
	})
}

// TestRemoteAudio_Failures reports start failures and processes that never get ready.
func TestRemoteAudio_Failures(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		instances := &fakeInstances{startErr: errTestStart}
		remote, _ := newTestRemote(instances)

		require.ErrorIs(t, remote.Ensure(context.Background()), errTestStart)

		instances.startErr = nil
		instances.startDelay = time.Hour

		err := remote.Ensure(context.Background())
		require.ErrorIs(t, err, errNotReady)
		require.ErrorIs(t, err, errTestUnavailable)
	})
}
