package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tanisingh134/carbon/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket writes live updates as JSON text frames of protocol.Envelope
type WebSocket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Upgrade switches the request to a websocket. checkOrigin may be nil to
// apply gorilla's same-origin check.
func Upgrade(w http.ResponseWriter, r *http.Request, checkOrigin func(*http.Request) bool) (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocket{conn: conn}, nil
}

func (ws *WebSocket) Emit(event protocol.EventType, payload interface{}) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.conn.WriteJSON(protocol.Envelope{Type: event, Payload: payload})
}

// Watch returns a context that is cancelled once the peer disconnects.
// Client frames are read and discarded; pings keep idle connections alive.
func (ws *WebSocket) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		ws.conn.SetReadLimit(1024)
		_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		ws.conn.SetPongHandler(func(string) error {
			return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ws.mu.Lock()
				err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				ws.mu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	return ctx, cancel
}

// Close sends a close frame with the given reason and releases the connection
func (ws *WebSocket) Close(code int, reason string) error {
	ws.mu.Lock()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	ws.mu.Unlock()
	return ws.conn.Close()
}
