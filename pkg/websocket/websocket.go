package websocketPkg

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultQueueSize = 16

var errSlowSubscriber = errors.New("subscriber queue full")

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type IHub interface {
	Register(conn Conn)
	Unregister(conn Conn)
	Broadcast(v interface{})
	Count() int
	CloseConnections()
}

// subscriber owns the only goroutine that writes to its connection.
type subscriber struct {
	conn Conn
	send chan interface{}
}

type hub struct {
	mu           sync.Mutex
	subs         map[Conn]*subscriber
	writeTimeout time.Duration
	queueSize    int
	log          *logrus.Logger
}

func NewHub(log *logrus.Logger) IHub {
	return &hub{
		subs:         make(map[Conn]*subscriber),
		writeTimeout: 5 * time.Second,
		queueSize:    defaultQueueSize,
		log:          log,
	}
}

func (h *hub) Register(conn Conn) {
	sub := &subscriber{conn: conn, send: make(chan interface{}, h.queueSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[conn]; ok {
		return
	}
	h.subs[conn] = sub
	go h.writeLoop(sub)
	h.log.Debugf("Websocket subscriber registered, total=%d", len(h.subs))
}

func (h *hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[conn]; ok {
		delete(h.subs, conn)
		close(sub.send)
		h.log.Debugf("Websocket subscriber removed, total=%d", len(h.subs))
	}
}

func (h *hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast queues v for every subscriber and returns without waiting for the
// writes. A subscriber whose queue is full is dropped.
func (h *hub) Broadcast(v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, sub := range h.subs {
		select {
		case sub.send <- v:
		default:
			h.dropLocked(conn, errSlowSubscriber)
		}
	}
}

func (h *hub) CloseConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, sub := range h.subs {
		delete(h.subs, conn)
		close(sub.send)
		_ = conn.Close()
	}
}

func (h *hub) writeLoop(sub *subscriber) {
	failed := false
	for v := range sub.send {
		if failed {
			continue
		}
		if err := h.write(sub.conn, v); err != nil {
			failed = true
			h.drop(sub.conn, err)
		}
	}
}

func (h *hub) write(conn Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(v); err != nil {
		return err
	}
	return conn.SetWriteDeadline(time.Time{})
}

func (h *hub) drop(conn Conn, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(conn, err)
}

func (h *hub) dropLocked(conn Conn, err error) {
	sub, ok := h.subs[conn]
	if !ok {
		return
	}
	h.log.Warnf("Dropping websocket subscriber: %v", err)
	delete(h.subs, conn)
	close(sub.send)
	_ = conn.Close()
}
