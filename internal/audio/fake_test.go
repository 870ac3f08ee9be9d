package audio

import (
	"context"
	"sync"
	"time"
)

// fakeSink records playback starts and produces streams that last a fixed time.
type fakeSink struct {
	// mu protects all fields below.
	mu sync.Mutex
	// length is how long each stream plays; zero plays until canceled.
	length time.Duration
	// failStart makes Start fail for every clip.
	failStart error
	// failWait makes every started stream end at once with this error.
	failWait error
	// starts counts Start calls per clip name.
	starts map[string]int
	// streams keeps every stream context per clip name in start order.
	streams map[string][]context.Context
}

// newFakeSink creates a sink whose streams last length.
func newFakeSink(length time.Duration) *fakeSink {
	return &fakeSink{
		length:  length,
		starts:  make(map[string]int),
		streams: make(map[string][]context.Context),
	}
}

// fakeStream ends after length or when its context is canceled.
type fakeStream struct {
	ctx    context.Context //nolint:containedctx // Test double mirroring exec.CommandContext.
	length time.Duration
	// err ends the stream at once, like a player exiting with a failure.
	err error
}

// Wait blocks like a player process would.
func (s *fakeStream) Wait() error {
	if s.err != nil {
		return s.err
	}

	if s.length <= 0 {
		<-s.ctx.Done()
		return s.ctx.Err()
	}

	timer := time.NewTimer(s.length)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Start records the call and returns a fake stream.
//
//nolint:ireturn // Implements Sink.
func (f *fakeSink) Start(ctx context.Context, clip Clip) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failStart != nil {
		return nil, f.failStart
	}

	f.starts[clip.Name]++
	f.streams[clip.Name] = append(f.streams[clip.Name], ctx)

	return &fakeStream{ctx: ctx, length: f.length, err: f.failWait}, nil
}

// setFail changes the start failure.
func (f *fakeSink) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failStart = err
}

// setFailWait makes later streams end with err as soon as they start.
func (f *fakeSink) setFailWait(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failWait = err
}

// startCount returns how many times clip was started.
func (f *fakeSink) startCount(clip string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts[clip]
}

// streamContexts returns the contexts of every stream started for clip.
func (f *fakeSink) streamContexts(clip string) []context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]context.Context(nil), f.streams[clip]...)
}
