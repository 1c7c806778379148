package transport

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
)

// WebSocketPath is where the server accepts websocket connections.
const WebSocketPath = "/play"

// FrameConn reads and writes whole frames. ReadFrame and WriteFrame may be
// called concurrently with each other, but not with themselves.
type FrameConn interface {
	ReadFrame() (protocol.Kind, []byte, error)
	WriteFrame(kind protocol.Kind, payload []byte) error
	Close() error
	RemoteAddr() string
}

// streamConn frames a byte stream with a length prefix.
type streamConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func NewStreamConn(conn net.Conn) FrameConn {
	return &streamConn{conn: conn, r: bufio.NewReader(conn)}
}

func (c *streamConn) ReadFrame() (protocol.Kind, []byte, error) {
	return protocol.ReadFrame(c.r)
}

func (c *streamConn) WriteFrame(kind protocol.Kind, payload []byte) error {
	return protocol.WriteFrame(c.conn, kind, payload)
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

func (c *streamConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// wsConn carries one frame per binary websocket message.
type wsConn struct {
	conn *websocket.Conn
}

func NewWebSocketConn(conn *websocket.Conn) FrameConn {
	conn.SetReadLimit(protocol.MaxFrameSize)
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadFrame() (protocol.Kind, []byte, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return 0, nil, io.EOF
		}
		if errors.Is(err, websocket.ErrReadLimit) {
			return 0, nil, &protocol.FramingError{Err: protocol.ErrFrameTooLarge}
		}
		return 0, nil, err
	}
	if mt != websocket.BinaryMessage {
		return 0, nil, &protocol.FramingError{Err: errors.Errorf("unexpected websocket message type %d", mt)}
	}
	if len(data) == 0 {
		return 0, nil, &protocol.FramingError{Err: errors.New("empty frame")}
	}
	return protocol.Kind(data[0]), data[1:], nil
}

func (c *wsConn) WriteFrame(kind protocol.Kind, payload []byte) error {
	if 1+len(payload) > protocol.MaxFrameSize {
		return errors.Wrapf(protocol.ErrFrameTooLarge, "%d bytes", 1+len(payload))
	}
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, byte(kind))
	buf = append(buf, payload...)
	return c.conn.WriteMessage(websocket.BinaryMessage, buf)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dial connects to address. network is "tcp" or "ws". For websockets address
// may be a full ws:// or wss:// url or a bare host:port.
func Dial(ctx context.Context, network, address string) (FrameConn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, &TransportError{Op: "dial", Err: err}
		}
		return NewStreamConn(conn), nil
	case "ws":
		url := address
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			url = "ws://" + address + WebSocketPath
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, &TransportError{Op: "dial", Err: err}
		}
		return NewWebSocketConn(conn), nil
	default:
		return nil, &TransportError{Op: "dial", Err: errors.Errorf("unsupported network %q", network)}
	}
}
