package stream

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Transport dials one connection to the progress producer.
type Transport interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a single live connection delivering text frames. ReadMessage
// blocks until a frame arrives or the connection dies.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

type wsTransport struct {
	url    string
	dialer *websocket.Dialer
}

// NewWSTransport returns a Transport that dials url as a WebSocket client.
func NewWSTransport(url string) Transport {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &wsTransport{url: url, dialer: &dialer}
}

func (t *wsTransport) Connect(ctx context.Context) (Conn, error) {
	ws, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	// Best effort close frame so the producer sees a clean shutdown.
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}
