package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// CountFetcher returns the pending-order count of a shop.
type CountFetcher interface {
	Count(ctx context.Context, shopID string) (int, error)
}

// AudioChannel exchanges playback instructions with the audio surface.
type AudioChannel interface {
	// Ensure makes sure the audio surface is up.
	Ensure(ctx context.Context) error
	// Send delivers one instruction and returns its acknowledgment.
	Send(ctx context.Context, req domain.Request) (domain.Response, error)
}

// Publisher receives monitor events.
type Publisher interface {
	Publish(event domain.Event)
}

// Monitor is the polling controller. It exclusively owns its MonitorState.
type Monitor struct {
	// fetcher queries the count endpoint.
	fetcher CountFetcher
	// audio drives the audio surface.
	audio AudioChannel
	// scheduler runs the recurring poll.
	scheduler Scheduler
	// publisher receives events.
	publisher Publisher

	// interval between polls.
	interval time.Duration
	// throttle is the minimum time between one-shot alerts.
	throttle time.Duration
	// now returns the current time.
	now func() time.Time
	// newSession generates session tokens.
	newSession func() string

	// ctx is used by polls and audio messages that outlive the command that started them.
	ctx context.Context //nolint:containedctx // Lifetime of the monitor.

	// mu guards state. It is never held across a fetch or an audio round trip.
	mu    sync.Mutex
	state *domain.MonitorState
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the poll interval.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithThrottle sets the minimum time between one-shot alerts.
func WithThrottle(throttle time.Duration) Option {
	return func(m *Monitor) {
		if throttle >= 0 {
			m.throttle = throttle
		}
	}
}

// WithPublisher sets the event receiver.
func WithPublisher(publisher Publisher) Option {
	return func(m *Monitor) {
		if publisher != nil {
			m.publisher = publisher
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// nopPublisher drops events.
type nopPublisher struct{}

// Publish does nothing.
func (nopPublisher) Publish(domain.Event) {}

// errNoAudio is returned when the monitor is built without an audio channel.
var errNoAudio = errors.New("audio channel is required")

// New creates an idle monitor. ctx scopes background polls and is named "order-monitor" in logs.
func New(
	ctx context.Context,
	fetcher CountFetcher,
	audio AudioChannel,
	scheduler Scheduler,
	opts ...Option,
) (*Monitor, error) {
	if audio == nil {
		return nil, errNoAudio
	}

	m := &Monitor{
		fetcher:    fetcher,
		audio:      audio,
		scheduler:  scheduler,
		publisher:  nopPublisher{},
		interval:   config.DefaultPollInterval,
		throttle:   config.DefaultAlertThrottle,
		now:        time.Now,
		newSession: uuid.NewString,
		ctx:        logger.WithName(ctx, "order-monitor"),
		state:      new(domain.MonitorState),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// StartMonitoring begins polling shopID, replacing any running session.
// Fetch failures never make it fail; only an empty shop id does.
func (m *Monitor) StartMonitoring(ctx context.Context, shopID string) error {
	if shopID == "" {
		return domain.ErrShopIDRequired
	}

	m.mu.Lock()

	if m.state.Active() {
		m.scheduler.Cancel(m.state.PollHandle)
	}

	m.state.Reset()

	session := m.newSession()
	m.state.ShopID = shopID
	m.state.Session = session
	m.state.PollHandle = m.scheduler.Every(m.interval, func() {
		m.poll(m.ctx, session)
	})

	wasLooping := m.takeLoopLocked()

	m.mu.Unlock()

	ctx = logger.WithKV(ctx, "shop_id", shopID)
	logger.InfoKV(ctx, "Monitoring started", "interval", m.interval.String())
	m.publish(domain.EventMonitoringStarted, shopID, 0)

	if err := m.audio.Ensure(ctx); err != nil {
		logger.ErrorKV(ctx, "Audio surface unavailable", "error", err)
	}

	m.stopLoop(ctx, shopID, wasLooping)

	m.poll(m.ctx, session)

	return nil
}

// StopMonitoring cancels the poll task and silences the loop. It is idempotent.
func (m *Monitor) StopMonitoring(ctx context.Context) {
	m.mu.Lock()

	shopID := m.state.ShopID
	if m.state.Active() {
		m.scheduler.Cancel(m.state.PollHandle)
	}

	m.state.Reset()
	wasLooping := m.takeLoopLocked()

	m.mu.Unlock()

	m.stopLoop(ctx, shopID, wasLooping)

	if shopID != "" {
		logger.InfoKV(ctx, "Monitoring stopped", "shop_id", shopID)
		m.publish(domain.EventMonitoringStopped, shopID, 0)
	}
}

// Acknowledge silences the loop until a poll observes zero orders.
// It works whether or not monitoring is active.
func (m *Monitor) Acknowledge(ctx context.Context) {
	m.mu.Lock()

	m.state.UserAcknowledged = true
	shopID := m.state.ShopID
	count := m.state.ObservedCount
	wasLooping := m.takeLoopLocked()

	m.mu.Unlock()

	logger.InfoKV(ctx, "Alert acknowledged", "shop_id", shopID, "count", count)
	m.publish(domain.EventAcknowledged, shopID, count)

	m.stopLoop(ctx, shopID, wasLooping)
}

// TestSounds asks the audio surface to run its test sequence. Monitor state is untouched.
func (m *Monitor) TestSounds(ctx context.Context) error {
	if err := m.audio.Ensure(ctx); err != nil {
		return fmt.Errorf("audio surface: %w", err)
	}

	if err := m.send(ctx, domain.ActionTestSounds); err != nil {
		return fmt.Errorf("test sounds: %w", err)
	}

	return nil
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() *domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Status()
}

// Snapshot returns a copy of the full state.
func (m *Monitor) Snapshot() *domain.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone()
}

// poll runs one tick of the given session: fetch, then apply.
func (m *Monitor) poll(ctx context.Context, session string) {
	m.mu.Lock()
	current := m.state.Session == session
	shopID := m.state.ShopID
	m.mu.Unlock()

	if !current {
		return
	}

	ctx = logger.WithKV(ctx, "shop_id", shopID)

	count, err := m.fetcher.Count(ctx, shopID)
	if err != nil {
		logger.ErrorKV(ctx, "Poll failed", "error", err)
		m.publishEvent(domain.Event{Kind: domain.EventPollFailed, ShopID: shopID, Error: err.Error()})

		return
	}

	m.apply(ctx, session, count)
}

// apply updates the state for a fetched count and then sends the resulting instructions.
// A count from a session that is no longer current is discarded.
func (m *Monitor) apply(ctx context.Context, session string, count int) {
	var (
		actions []domain.Action
		alerted bool
	)

	m.mu.Lock()

	if m.state.Session != session {
		m.mu.Unlock()
		logger.DebugKV(ctx, "Discarding stale poll result", "count", count)

		return
	}

	shopID := m.state.ShopID
	previous := m.state.ObservedCount
	now := m.now()

	if count > 0 {
		if count > m.state.ObservedCount && m.throttleElapsed(now) {
			m.state.LastAlertAt = now
			alerted = true

			actions = append(actions, domain.ActionPlayNotification)
		}

		if !m.state.IsLooping && !m.state.UserAcknowledged {
			m.state.IsLooping = true

			actions = append(actions, domain.ActionStartLoopingNotify)
		}

		m.state.ObservedCount = count
	} else {
		if m.takeLoopLocked() {
			actions = append(actions, domain.ActionStopLoopingNotify)
		}

		m.state.UserAcknowledged = false
		m.state.ObservedCount = 0
	}

	m.mu.Unlock()

	logger.DebugKV(ctx, "Poll applied", "count", count, "previous", previous)
	m.publish(domain.EventPoll, shopID, count)

	if alerted {
		logger.InfoKV(ctx, "New orders", "count", count, "previous", previous)
		m.publish(domain.EventAlert, shopID, count)
	}

	for _, action := range actions {
		m.perform(ctx, session, shopID, action)
	}
}

// perform sends one instruction decided by apply.
// A failed loop start clears IsLooping so a later poll retries it. A loop start
// that nobody wants any more, because stop or acknowledge cleared IsLooping, is
// followed by a stop. A newer session that wants the loop keeps it playing.
func (m *Monitor) perform(ctx context.Context, session, shopID string, action domain.Action) {
	err := m.send(ctx, action)

	switch action {
	case domain.ActionStartLoopingNotify:
		m.mu.Lock()
		current := m.state.Session == session
		looping := m.state.IsLooping
		if err != nil && current && looping {
			m.state.IsLooping = false
		}
		m.mu.Unlock()

		switch {
		case err != nil:
		case current && looping:
			m.publish(domain.EventLoopStarted, shopID, 0)
		case looping:
			logger.Debug(ctx, "Loop start outlived its session, the new session keeps it")
		default:
			logger.Debug(ctx, "Loop start superseded, stopping it")
			m.silenceUnwantedLoop(ctx)
		}
	case domain.ActionStopLoopingNotify:
		m.publish(domain.EventLoopStopped, shopID, 0)
	default:
	}
}

// silenceUnwantedLoop stops a loop nobody wants. If a session asked for the loop
// while the stop was on its way, the loop is started again so that request wins.
func (m *Monitor) silenceUnwantedLoop(ctx context.Context) {
	_ = m.send(ctx, domain.ActionStopLoopingNotify)

	m.mu.Lock()
	wanted := m.state.IsLooping
	m.mu.Unlock()

	if wanted {
		_ = m.send(ctx, domain.ActionStartLoopingNotify)
	}
}

// stopLoop tells the audio surface to stop looping. The instruction is sent even
// when IsLooping was already clear, so a loop whose start was rolled back is silenced too.
func (m *Monitor) stopLoop(ctx context.Context, shopID string, wasLooping bool) {
	_ = m.send(ctx, domain.ActionStopLoopingNotify)

	if wasLooping {
		m.publish(domain.EventLoopStopped, shopID, 0)
	}
}

// send delivers action to the audio surface. Failures are logged and returned,
// never turned into monitor state failures.
func (m *Monitor) send(ctx context.Context, action domain.Action) error {
	resp, err := m.audio.Send(ctx, domain.Request{Action: action})
	if err == nil {
		err = resp.Err()
	}

	if err != nil {
		logger.ErrorKV(ctx, "Audio instruction failed", "action", string(action), "error", err)
		return err
	}

	return nil
}

// takeLoopLocked clears IsLooping and reports whether it was set. m.mu must be held.
func (m *Monitor) takeLoopLocked() bool {
	wasLooping := m.state.IsLooping
	m.state.IsLooping = false

	return wasLooping
}

// throttleElapsed reports whether a one-shot alert may fire at now. m.mu must be held.
func (m *Monitor) throttleElapsed(now time.Time) bool {
	return m.state.LastAlertAt.IsZero() || now.Sub(m.state.LastAlertAt) >= m.throttle
}

// publish emits a simple event.
func (m *Monitor) publish(kind domain.EventKind, shopID string, count int) {
	m.publishEvent(domain.Event{Kind: kind, ShopID: shopID, Count: count})
}

// publishEvent stamps and emits event.
func (m *Monitor) publishEvent(event domain.Event) {
	event.At = m.now()
	m.publisher.Publish(event)
}
