package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match"
)

// conn adapts a gorilla websocket connection to the engine's Peer
// interface. Writes are serialized by a mutex because the engine may notify
// from a timer goroutine while the read loop is still alive; Close is
// guarded so the engine's close-after-resolve and the read loop's
// disconnect cleanup cannot double-close.
type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *conn {
	return &conn{ws: ws, writeTimeout: writeTimeout}
}

// Send delivers one outcome payload as a JSON text frame.
func (c *conn) Send(payload match.OutcomePayload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(payload)
}

// keepAlive pings the peer on a fixed interval until the connection's read
// loop exits. A failed ping is left for the read loop to observe.
func (c *conn) keepAlive(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Close sends a close frame best-effort and closes the underlying
// connection exactly once. Repeated calls return the first result.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
