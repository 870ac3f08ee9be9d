package audio

import (
	"context"
	"sync"

	"github.com/oshokin/order-alert/internal/logger"
)

// Track is a rewindable playback of one clip, the equivalent of a media
// element: Play always starts from the beginning and Rewind pauses and
// resets it. A looping track restarts the clip each time it ends.
type Track struct {
	// clip is the sound resource.
	clip Clip
	// sink produces the sound.
	sink Sink
	// loop restarts the clip when it ends.
	loop bool

	// mu serializes Play and Rewind.
	mu sync.Mutex
	// cancel stops the current playback.
	cancel context.CancelFunc
	// done is closed when the current playback goroutine exits.
	done chan struct{}
}

// NewTrack creates a track for clip.
func NewTrack(clip Clip, sink Sink, loop bool) *Track {
	return &Track{
		clip: clip,
		sink: sink,
		loop: loop,
	}
}

// Play stops any current playback and starts the clip from zero.
// It returns once the sink accepted the clip; the playback outlives ctx.
func (t *Track) Play(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rewindLocked()

	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	stream, err := t.sink.Start(playCtx, t.clip)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.run(playCtx, stream, done)

	return nil
}

// Rewind pauses the playback and waits for it to stop.
func (t *Track) Rewind() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rewindLocked()
}

// Playing reports whether a playback goroutine is running.
func (t *Track) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return false
	}

	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// rewindLocked stops the current playback. The caller holds mu.
func (t *Track) rewindLocked() {
	if t.cancel == nil {
		return
	}

	t.cancel()
	<-t.done

	t.cancel = nil
	t.done = nil
}

// run waits for the stream and, for looping tracks, starts the clip again.
func (t *Track) run(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	for {
		err := stream.Wait()

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			logger.ErrorKV(ctx, "Playback failed", "clip", t.clip.Name, "error", err)
			return
		case !t.loop:
			return
		}

		stream, err = t.sink.Start(ctx, t.clip)
		if err != nil {
			logger.ErrorKV(ctx, "Restarting loop failed", "clip", t.clip.Name, "error", err)
			return
		}
	}
}
