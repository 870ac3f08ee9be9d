package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

const (
	// DefaultTestLoopDelay is the pause between the one-shot clip and the loop in the test sequence.
	DefaultTestLoopDelay = 2 * time.Second
	// DefaultTestLoopDuration is how long the test sequence keeps the loop playing.
	DefaultTestLoopDuration = 10 * time.Second
)

// Options configures Open.
type Options struct {
	// NotificationSound overrides the synthesized one-shot clip.
	NotificationSound string
	// LoopSound overrides the synthesized looping clip.
	LoopSound string
	// Player overrides the detected audio player command.
	Player string
	// NotificationVolume scales the synthesized one-shot clip.
	NotificationVolume float64
	// LoopVolume scales the synthesized looping clip.
	LoopVolume float64
}

// Surface owns the sound resources. isLoopPlaying only makes StartLoop and
// StopLoop idempotent; the surface holds no business state.
type Surface struct {
	// once plays the notification clip.
	once *Track
	// loop plays the looping clip.
	loop *Track

	// testLoopDelay and testLoopDuration time the test sequence.
	testLoopDelay    time.Duration
	testLoopDuration time.Duration

	// mu guards isLoopPlaying together with the loop track start/stop.
	mu sync.Mutex
	// isLoopPlaying tells whether the loop was started and not stopped.
	isLoopPlaying bool

	// ctx scopes background test sequences; cancel stops them on Close.
	ctx    context.Context //nolint:containedctx // Lifetime of the surface, canceled by Close.
	cancel context.CancelFunc
	// sequences tracks running test sequences.
	sequences sync.WaitGroup
	// cleanup removes materialized clips.
	cleanup func()
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithTestTiming overrides the test sequence timing.
func WithTestTiming(loopDelay, loopDuration time.Duration) SurfaceOption {
	return func(s *Surface) {
		s.testLoopDelay = loopDelay
		s.testLoopDuration = loopDuration
	}
}

// NewSurface creates a surface playing the given clips through sink.
// The clips must already point to playable files when sink needs them.
func NewSurface(ctx context.Context, once, loop Clip, sink Sink, opts ...SurfaceOption) *Surface {
	ctx, cancel := context.WithCancel(logger.WithName(context.WithoutCancel(ctx), "audio-surface"))

	s := &Surface{
		once:             NewTrack(once, sink, false),
		loop:             NewTrack(loop, sink, true),
		testLoopDelay:    DefaultTestLoopDelay,
		testLoopDuration: DefaultTestLoopDuration,
		ctx:              ctx,
		cancel:           cancel,
		cleanup:          func() {},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open prepares the clips in a temporary directory, picks a sink and returns a ready surface.
func Open(ctx context.Context, opts Options, surfaceOpts ...SurfaceOption) (*Surface, error) {
	dir, err := os.MkdirTemp("", "order-alert-sounds-*")
	if err != nil {
		return nil, fmt.Errorf("create clip directory: %w", err)
	}

	once := NotificationClip(opts.NotificationVolume)
	once.Path = opts.NotificationSound

	loop := LoopClip(opts.LoopVolume)
	loop.Path = opts.LoopSound

	for _, clip := range []*Clip{&once, &loop} {
		if err = clip.Materialize(dir); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
	}

	sink := DetectSink(opts.Player)

	logger.InfoKV(ctx, "Audio surface initialized", "sink", fmt.Sprint(sink), "notification", once.Path, "loop", loop.Path)

	s := NewSurface(ctx, once, loop, sink, surfaceOpts...)
	s.cleanup = func() {
		_ = os.RemoveAll(dir)
	}

	return s, nil
}

// PlayOnce rewinds the one-shot clip and plays it. Overlapping calls restart it.
func (s *Surface) PlayOnce(ctx context.Context) error {
	if err := s.once.Play(ctx); err != nil {
		return fmt.Errorf("play notification: %w", err)
	}

	return nil
}

// StartLoop starts the looping clip unless it is already playing.
// A failed start, or a player that died since, leaves the surface not playing
// so the next call retries.
func (s *Surface) StartLoop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopActiveLocked() {
		return nil
	}

	s.isLoopPlaying = true

	if err := s.loop.Play(ctx); err != nil {
		s.isLoopPlaying = false
		return fmt.Errorf("start loop: %w", err)
	}

	return nil
}

// StopLoop pauses and rewinds the looping clip if it is playing.
func (s *Surface) StopLoop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isLoopPlaying {
		return nil
	}

	s.isLoopPlaying = false
	s.loop.Rewind()

	return nil
}

// LoopPlaying reports the surface's own loop flag.
func (s *Surface) LoopPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loopActiveLocked()
}

// loopActiveLocked reports isLoopPlaying, clearing it first when the loop track
// stopped on a playback fault. s.mu must be held.
func (s *Surface) loopActiveLocked() bool {
	if s.isLoopPlaying && !s.loop.Playing() {
		logger.Warn(s.ctx, "Loop playback ended on its own, clearing loop flag")

		s.isLoopPlaying = false
	}

	return s.isLoopPlaying
}

// RunTestSequence plays the one-shot clip, waits, starts the loop, waits
// again and stops the loop. It blocks until done or ctx is canceled; a
// canceled sequence still stops the loop it started.
func (s *Surface) RunTestSequence(ctx context.Context) error {
	if err := s.PlayOnce(ctx); err != nil {
		logger.ErrorKV(ctx, "Test sequence: notification failed", "error", err)
	}

	if err := sleep(ctx, s.testLoopDelay); err != nil {
		return err
	}

	if err := s.StartLoop(ctx); err != nil {
		logger.ErrorKV(ctx, "Test sequence: loop failed", "error", err)
	}

	err := sleep(ctx, s.testLoopDuration)

	_ = s.StopLoop(ctx) //nolint:errcheck // StopLoop never fails.

	return err
}

// Dispatch executes a playback instruction. Playback faults are logged and
// the instruction is still acknowledged; only unknown actions fail.
func (s *Surface) Dispatch(ctx context.Context, req domain.Request) domain.Response {
	ctx = logger.WithKV(ctx, "action", req.Action)

	var err error

	switch req.Action {
	case domain.ActionPlayNotification:
		err = s.PlayOnce(ctx)
	case domain.ActionStartLoopingNotify:
		err = s.StartLoop(ctx)
	case domain.ActionStopLoopingNotify:
		err = s.StopLoop(ctx)
	case domain.ActionTestSounds:
		s.startTestSequence()
	default:
		logger.WarnKV(ctx, "Unknown audio action")
		return domain.Fail(domain.ErrUnknownAction)
	}

	if err != nil {
		logger.ErrorKV(ctx, "Playback instruction failed", "error", err)
	} else {
		logger.Debug(ctx, "Playback instruction done")
	}

	return domain.OK()
}

// Close stops test sequences and both tracks and removes materialized clips.
func (s *Surface) Close() {
	s.cancel()
	s.sequences.Wait()

	_ = s.StopLoop(s.ctx) //nolint:errcheck // StopLoop never fails.
	s.once.Rewind()
	s.loop.Rewind()
	s.cleanup()
}

// startTestSequence runs the test sequence in the background, scoped to the surface lifetime.
func (s *Surface) startTestSequence() {
	s.sequences.Add(1)

	go func() {
		defer s.sequences.Done()

		if err := s.RunTestSequence(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorKV(s.ctx, "Test sequence failed", "error", err)
		}
	}()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
