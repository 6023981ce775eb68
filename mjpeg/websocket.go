package mjpeg

import (
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket sends every frame as one binary message over an upgraded
// connection.
type WebSocket struct {
	c       *websocket.Conn
	timeout time.Duration
}

func NewWebSocket(c *websocket.Conn, writeTimeout time.Duration) *WebSocket {
	return &WebSocket{c: c, timeout: writeTimeout}
}

// Open is a no-op, the upgrade already happened.
func (w *WebSocket) Open() error { return nil }

func (w *WebSocket) WriteFrame(jpeg []byte) error {
	if w.timeout > 0 {
		if err := w.c.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return err
		}
	}
	return w.c.WriteMessage(websocket.BinaryMessage, jpeg)
}
