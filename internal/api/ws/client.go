package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"chess-relay/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 4096
)

// client is one websocket connection. Outbound frames go through send and are written by
// a single writer goroutine; done is closed exactly once when the connection is torn down.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	outstandingPings atomic.Int32
}

func newClient(id string, conn *websocket.Conn, opts Options) *client {
	c := &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(opts.EventRate), opts.EventBurst),
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(c.handlePong)
	return c
}

func (c *client) handlePong(string) error {
	c.outstandingPings.Store(0)
	return nil
}

// enqueue hands a frame to the writer without blocking. It reports false when the client
// is gone or its buffer is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writeLoop drains send and pings the peer every keepAlive. A peer that leaves more than
// maxMisses pings unanswered is dropped.
func (c *client) writeLoop(clock clockwork.Clock, keepAlive time.Duration, maxMisses int) {
	ticker := clock.NewTicker(keepAlive)
	defer ticker.Stop()
	defer c.stop()

	log := logging.WithConn(c.id)
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.Chan():
			if pings := c.outstandingPings.Add(1); int(pings) > maxMisses {
				log.Info("Connection unresponsive", "missed_pings", pings-1)
				return
			}
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("Ping failed", "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}
