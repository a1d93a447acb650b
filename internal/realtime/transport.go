package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a slow peer.
	writeWait = 10 * time.Second

	// sendBuffer is the per-connection outbound queue. A consumer that
	// falls further behind than this starts losing events; delivery is
	// best-effort.
	sendBuffer = 256

	maxMessageSize = 4096
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrSendBufferFull  = errors.New("send buffer full")
)

// socketTransport adapts a websocket connection to the Transport interface.
// Writes go through a buffered channel drained by a single write pump, so
// one backed-up recipient never blocks the hub or other recipients. Liveness
// is ping/pong: the pump pings on a ticker and the pong handler stamps
// lastPong.
type socketTransport struct {
	conn *websocket.Conn

	send     chan Event
	done     chan struct{}
	closed   atomic.Bool
	lastPong atomic.Int64

	pongWait time.Duration
	once     sync.Once
}

// NewSocketTransport wraps conn and starts the write pump. The transport
// counts as alive until no pong has been seen for pongWait.
func NewSocketTransport(conn *websocket.Conn, pongWait time.Duration) Transport {
	t := &socketTransport{
		conn:     conn,
		send:     make(chan Event, sendBuffer),
		done:     make(chan struct{}),
		pongWait: pongWait,
	}
	t.lastPong.Store(time.Now().UnixNano())

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		t.lastPong.Store(time.Now().UnixNano())
		return t.conn.SetReadDeadline(time.Now().Add(t.pongWait))
	})

	go t.writePump()
	return t
}

func (t *socketTransport) Send(ev Event) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	select {
	case t.send <- ev:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (t *socketTransport) Alive() bool {
	if t.closed.Load() {
		return false
	}
	last := time.Unix(0, t.lastPong.Load())
	return time.Since(last) < t.pongWait
}

func (t *socketTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.closed.Store(true)
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

func (t *socketTransport) writePump() {
	pingPeriod := (t.pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(ev); err != nil {
				t.Close()
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		case <-t.done:
			return
		}
	}
}
