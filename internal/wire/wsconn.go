package wire

import (
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn exposes a WebSocket connection as a byte stream. Each binary message
// carries an arbitrary slice of the stream, so frames may span or share
// WebSocket messages. Text messages are ignored.
//
// Read must be called from one goroutine and Write from one goroutine, which
// is how Messenger uses it.
type WSConn struct {
	ws *websocket.Conn
	r  io.Reader
}

// NewWSConn wraps ws.
func NewWSConn(ws *websocket.Conn) *WSConn { return &WSConn{ws: ws} }

func (c *WSConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			typ, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if errors.Is(err, io.EOF) {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *WSConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal closure and closes the underlying connection.
func (c *WSConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

// RemoteAddr reports the peer address.
func (c *WSConn) RemoteAddr() string { return c.ws.RemoteAddr().String() }
