package audio

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// Dispatcher executes playback instructions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.Request) domain.Response
}

// ErrMailboxClosed is returned by Send after Close.
var ErrMailboxClosed = errors.New("audio mailbox closed")

// envelope carries one request and its reply channel.
type envelope struct {
	ctx   context.Context //nolint:containedctx // Request-scoped, consumed by the serving goroutine.
	req   domain.Request
	reply chan domain.Response
}

// Mailbox runs a Dispatcher in its own goroutine and exchanges messages with
// it over channels, so the dispatcher is only ever driven from one place.
type Mailbox struct {
	// dispatcher is served by the mailbox goroutine.
	dispatcher Dispatcher
	// inbox queues requests.
	inbox chan envelope
	// quit stops the goroutine.
	quit chan struct{}
	// stopped is closed when the goroutine exits.
	stopped chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
}

// NewMailbox creates a mailbox for dispatcher. It starts serving on the first Ensure or Send.
func NewMailbox(dispatcher Dispatcher) *Mailbox {
	return &Mailbox{
		dispatcher: dispatcher,
		inbox:      make(chan envelope),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Ensure starts the serving goroutine if it is not running yet.
func (m *Mailbox) Ensure(ctx context.Context) error {
	select {
	case <-m.quit:
		return ErrMailboxClosed
	default:
	}

	m.startOnce.Do(func() {
		logger.Debug(ctx, "Starting audio mailbox")

		go m.serve()
	})

	return nil
}

// Send delivers req and waits for the acknowledgment.
func (m *Mailbox) Send(ctx context.Context, req domain.Request) (domain.Response, error) {
	if err := m.Ensure(ctx); err != nil {
		return domain.Response{}, err
	}

	env := envelope{
		ctx:   ctx,
		req:   req,
		reply: make(chan domain.Response, 1),
	}

	select {
	case m.inbox <- env:
	case <-m.quit:
		return domain.Response{}, ErrMailboxClosed
	case <-ctx.Done():
		return domain.Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-ctx.Done():
		return domain.Response{}, ctx.Err()
	}
}

// Close stops the serving goroutine. Pending and later sends fail.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() {
		close(m.quit)
		// Make sure stopped gets closed even if serve never ran.
		m.startOnce.Do(func() {
			close(m.stopped)
		})
	})

	<-m.stopped
}

// serve handles requests one at a time until Close.
func (m *Mailbox) serve() {
	defer close(m.stopped)

	for {
		select {
		case <-m.quit:
			return
		case env := <-m.inbox:
			env.reply <- m.dispatcher.Dispatch(env.ctx, env.req)
		}
	}
}
