package race

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/logging"
)

// ErrClosed is returned when publishing on a closed transport.
var ErrClosed = errors.New("transport closed")

// Handler receives raw inbound frames in arrival order.
type Handler func(data []byte)

// Transport is a bidirectional channel to one room. Reconnection policy is
// the transport's concern.
type Transport interface {
	Join(ctx context.Context, room, player string) error
	Publish(ctx context.Context, env Envelope) error
	Subscribe(h Handler)
	Close() error
}

const writeWait = 5 * time.Second

// WSTransport speaks to a room server over a gorilla websocket.
type WSTransport struct {
	server string
	dialer *websocket.Dialer
	log    *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler Handler
	closed  bool
	done    chan struct{}
}

// NewWSTransport creates a transport for server, e.g. ws://localhost:8080.
func NewWSTransport(server string, log *zap.Logger) *WSTransport {
	log = logging.OrNop(log)
	return &WSTransport{
		server: server,
		dialer: websocket.DefaultDialer,
		log:    log,
		done:   make(chan struct{}),
	}
}

// RoomURL builds the websocket endpoint for room and player.
func RoomURL(server, room, player string) (string, error) {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	switch {
	case strings.HasPrefix(server, "http://"):
		server = "ws://" + strings.TrimPrefix(server, "http://")
	case strings.HasPrefix(server, "https://"):
		server = "wss://" + strings.TrimPrefix(server, "https://")
	case !strings.Contains(server, "://"):
		server = "ws://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("failed to parse server address: %w", err)
	}
	// Path holds the decoded form and RawPath the escaped one, so the room id
	// is escaped exactly once on the wire.
	escapedBase := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/rooms/" + room
	u.RawPath = escapedBase + "/ws/rooms/" + url.PathEscape(room)
	q := u.Query()
	q.Set("player", player)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe sets the inbound frame handler. It must be called before Join.
func (t *WSTransport) Subscribe(h Handler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Join dials the room and starts the read loop.
func (t *WSTransport) Join(ctx context.Context, room, player string) error {
	endpoint, err := RoomURL(t.server, room, player)
	if err != nil {
		return err
	}
	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial room: %w", err)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	t.conn = conn
	handler := t.handler
	t.mu.Unlock()

	go t.readLoop(conn, handler)
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn, handler Handler) {
	defer close(t.done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.log.Warn("room connection lost", zap.Error(err))
			}
			return
		}
		if handler != nil {
			handler(data)
		}
	}
}

// Publish writes env as one text frame.
func (t *WSTransport) Publish(_ context.Context, env Envelope) error {
	data, err := Encode(env)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return ErrClosed
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears the connection down.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	err := conn.Close()
	<-t.done
	return err
}
