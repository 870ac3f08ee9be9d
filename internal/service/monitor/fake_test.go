package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/repository/shop"
)

var (
	errTestFetch     = errors.New("test fetch error")
	errTestTransport = errors.New("test transport error")
)

// fetchResult is one scripted endpoint answer.
type fetchResult struct {
	count int
	err   error
}

// fakeFetcher answers Count from a script, repeating the last answer when it runs out.
type fakeFetcher struct {
	mu      sync.Mutex
	script  []fetchResult
	calls   []string
	started chan struct{}
	gate    chan struct{}
}

// newFakeFetcher scripts successful counts.
func newFakeFetcher(counts ...int) *fakeFetcher {
	f := new(fakeFetcher)
	for _, n := range counts {
		f.script = append(f.script, fetchResult{count: n})
	}

	return f
}

// Count pops the next scripted answer. When gate is set, it signals started and blocks on gate first.
func (f *fakeFetcher) Count(_ context.Context, shopID string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, shopID)
	gate, started := f.gate, f.started

	var res fetchResult

	switch len(f.script) {
	case 0:
	case 1:
		res = f.script[0]
	default:
		res, f.script = f.script[0], f.script[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}

	return res.count, res.err
}

// push replaces the script.
func (f *fakeFetcher) push(results ...fetchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.script = results
}

// hold makes later fetches signal started and block until the returned release is called.
func (f *fakeFetcher) hold() func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	gate := make(chan struct{})
	f.gate = gate
	f.started = make(chan struct{})

	return func() {
		close(gate)
	}
}

// unhold lets later fetches return immediately. Fetches already blocked stay blocked.
func (f *fakeFetcher) unhold() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gate = nil
}

// callCount returns how many fetches were made.
func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// fakeAudio records every instruction and acknowledges it. It tracks the
// loop like the surface does: start turns it on, stop turns it off.
type fakeAudio struct {
	mu        sync.Mutex
	actions   []domain.Action
	ensured   int
	sendErr   error
	ensureErr error
	looping   bool

	// holdOn makes the next send of that action block until gate is closed.
	holdOn domain.Action
	held   chan struct{}
	gate   chan struct{}
}

// Ensure counts initialization requests.
func (a *fakeAudio) Ensure(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ensured++

	return a.ensureErr
}

// Send records the action once it is delivered.
func (a *fakeAudio) Send(_ context.Context, req domain.Request) (domain.Response, error) {
	a.mu.Lock()

	if a.holdOn != "" && a.holdOn == req.Action {
		held, gate := a.held, a.gate
		a.holdOn = ""
		a.mu.Unlock()

		close(held)
		<-gate

		a.mu.Lock()
	}

	defer a.mu.Unlock()

	if a.sendErr != nil {
		return domain.Response{}, a.sendErr
	}

	a.actions = append(a.actions, req.Action)

	switch req.Action {
	case domain.ActionStartLoopingNotify:
		a.looping = true
	case domain.ActionStopLoopingNotify:
		a.looping = false
	default:
	}

	return domain.OK(), nil
}

// holdNext blocks the next send of action. The returned channel is closed when
// that send arrives; calling release delivers it.
func (a *fakeAudio) holdNext(action domain.Action) (<-chan struct{}, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.holdOn = action
	a.held = make(chan struct{})
	a.gate = make(chan struct{})

	gate := a.gate

	return a.held, func() {
		close(gate)
	}
}

// loopPlaying reports whether the last loop instruction delivered was a start.
func (a *fakeAudio) loopPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.looping
}

// take returns and clears the recorded actions.
func (a *fakeAudio) take() []domain.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	actions := a.actions
	a.actions = nil

	return actions
}

// setSendErr makes later sends fail.
func (a *fakeAudio) setSendErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sendErr = err
}

// fakeScheduler keeps jobs until the test fires them.
type fakeScheduler struct {
	mu        sync.Mutex
	next      domain.TaskHandle
	jobs      map[domain.TaskHandle]func()
	intervals map[domain.TaskHandle]time.Duration
	canceled  []domain.TaskHandle
}

// newFakeScheduler creates an empty scheduler.
func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		jobs:      make(map[domain.TaskHandle]func()),
		intervals: make(map[domain.TaskHandle]time.Duration),
	}
}

// Every stores job under a fresh handle.
func (s *fakeScheduler) Every(interval time.Duration, job func()) domain.TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.jobs[s.next] = job
	s.intervals[s.next] = interval

	return s.next
}

// Cancel drops the job.
func (s *fakeScheduler) Cancel(handle domain.TaskHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, handle)
	s.canceled = append(s.canceled, handle)
}

// active returns the number of scheduled jobs.
func (s *fakeScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

// tick runs every scheduled job once.
func (s *fakeScheduler) tick() {
	s.mu.Lock()

	jobs := make([]func(), 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		job()
	}
}

// job returns the job scheduled under handle.
func (s *fakeScheduler) job(handle domain.TaskHandle) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.jobs[handle]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// newFakeClock starts at a fixed instant.
func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// advance moves the clock forward.
func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

// Publish records event.
func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

// kinds returns the kinds of the recorded events.
func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()

	kinds := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}

	return kinds
}

// memoryShops is an in-memory ShopSource.
type memoryShops struct {
	cfg *domain.ShopConfig
	err error
}

// Load returns the stored shop or ErrNotFound.
func (m *memoryShops) Load(context.Context) (*domain.ShopConfig, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.cfg == nil {
		return nil, shop.ErrNotFound
	}

	return m.cfg, nil
}

// harness bundles a monitor with its fakes.
type harness struct {
	monitor   *Monitor
	fetcher   *fakeFetcher
	audio     *fakeAudio
	scheduler *fakeScheduler
	clock     *fakeClock
	events    *recordingPublisher
}

// newHarness builds a monitor whose fetcher answers with counts.
func newHarness(counts ...int) *harness {
	h := &harness{
		fetcher:   newFakeFetcher(counts...),
		audio:     new(fakeAudio),
		scheduler: newFakeScheduler(),
		clock:     newFakeClock(),
		events:    new(recordingPublisher),
	}

	m, err := New(
		context.Background(),
		h.fetcher,
		h.audio,
		h.scheduler,
		WithClock(h.clock.Now),
		WithPublisher(h.events),
	)
	if err != nil {
		panic(err)
	}

	h.monitor = m

	return h
}

// tick advances the clock by the poll interval and fires the poll task.
func (h *harness) tick() {
	h.clock.advance(h.monitor.interval)
	h.scheduler.tick()
}
