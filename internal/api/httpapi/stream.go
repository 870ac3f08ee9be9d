package httpapi

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/oshokin/order-alert/internal/logger"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds what clients may send; they are expected to only send control frames.
	maxMessageSize = 512
)

//nolint:gochecknoglobals // Stateless upgrader shared by all streams.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// stream upgrades to a websocket and pushes monitor events as JSON until
// the client goes away or the server shuts down.
func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so no event after it is missed.
	events, unsubscribe := a.events.Subscribe()
	defer unsubscribe()

	ctx := logger.WithFields(a.ctx, "remote_addr", r.RemoteAddr, "request_id", chimw.GetReqID(r.Context()))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorKV(ctx, "WebSocket upgrade failed", "error", err)
		return
	}

	defer func() {
		_ = conn.Close()
	}()

	logger.Debug(ctx, "Event stream opened")

	gone := make(chan struct{})

	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			logger.Debug(ctx, "Event stream closed by client")
			return
		case <-a.ctx.Done():
			closeStream(conn)
			return
		case event, ok := <-events:
			if !ok {
				closeStream(conn)
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err = conn.WriteJSON(event); err != nil {
				logger.DebugKV(ctx, "Event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and closes gone when the connection breaks.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// closeStream sends a normal closure frame.
func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
