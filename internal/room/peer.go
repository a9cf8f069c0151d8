package room

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// outboxSize bounds the frames queued for one connection.
const outboxSize = 64

var (
	// ErrPeerBacklog is returned when a connection has not drained its outbox.
	ErrPeerBacklog = errors.New("peer outbox full")
	// ErrPeerClosed is returned when sending to a connection that has gone away.
	ErrPeerClosed = errors.New("peer closed")
)

// wsPeer queues frames for one websocket connection. Only writeLoop touches
// the write side of the socket, so Send never waits on the network.
type wsPeer struct {
	conn   *websocket.Conn
	outbox chan []byte
	done   chan struct{}
	once   sync.Once
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues data without blocking.
func (p *wsPeer) Send(data []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.outbox <- data:
		return nil
	default:
		return ErrPeerBacklog
	}
}

// writeLoop drains the outbox and sends keepalive pings until close is
// called or a write fails. A failed write closes the socket, which ends the
// read loop serving this peer.
func (p *wsPeer) writeLoop(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-p.done:
			return
		case data := <-p.outbox:
			if err = p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				err = p.conn.WriteMessage(websocket.TextMessage, data)
			}
		case <-ticker.C:
			err = p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		}
		if err != nil {
			log.Warn("closing connection after write failure", zap.Error(err))
			p.close()
			_ = p.conn.Close()
			return
		}
	}
}

func (p *wsPeer) close() {
	p.once.Do(func() { close(p.done) })
}
