// Package events publishes session activity to a websocket bus so other
// shards (dashboards, home automation) can follow along.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message kinds.
const (
	KindState      = "state"
	KindWake       = "wake"
	KindTranscript = "transcript"
	KindMatch      = "match"
	KindAction     = "action"
	KindLanguage   = "language"
)

type Message struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Kind    string            `json:"kind"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
	Time    time.Time         `json:"time"`
}

// Publisher accepts messages. Publishing never fails the caller.
type Publisher interface {
	Publish(m Message)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Publish(Message) {}

const (
	writeTimeout  = 2 * time.Second
	redialBackoff = 5 * time.Second
	queueSize     = 64
)

// Bus writes messages to a websocket peer from its own goroutine, so
// Publish never waits on the network. Messages are dropped when the queue
// is full or the peer is down; a lost connection is redialed at most once
// per redialBackoff.
type Bus struct {
	url    string
	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// owned by the writer goroutine
	conn     *websocket.Conn
	lastDial time.Time
}

// NewBus connects to wsURL and starts the writer.
func NewBus(ctx context.Context, wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	b := newBus(u.String())
	conn, err := b.dial(ctx)
	if err != nil {
		b.cancel()
		return nil, err
	}
	b.conn = conn
	b.start()

	slog.Info("Connected to bus", "url", wsURL)
	return b, nil
}

func newBus(u string) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		url:    u,
		queue:  make(chan []byte, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Bus) start() {
	b.wg.Add(1)
	go b.run()
}

func (b *Bus) dial(ctx context.Context) (*websocket.Conn, error) {
	b.lastDial = time.Now()
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	return conn, err
}

func (b *Bus) Publish(m Message) {
	if m.From == "" {
		m.From = "vaani"
	}
	if m.To == "" {
		m.To = "*"
	}
	if m.Time.IsZero() {
		m.Time = time.Now()
	}

	data, err := json.Marshal(m)
	if err != nil {
		slog.Warn("bus encode failed", "kind", m.Kind, "err", err)
		return
	}

	if b.ctx.Err() != nil {
		return
	}
	select {
	case b.queue <- data:
	default:
		slog.Debug("bus queue full, dropping message", "kind", m.Kind)
	}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case data := <-b.queue:
			b.write(data)
		}
	}
}

func (b *Bus) write(data []byte) {
	if b.conn == nil {
		if time.Since(b.lastDial) < redialBackoff {
			return
		}
		conn, err := b.dial(b.ctx)
		if err != nil {
			slog.Debug("bus redial failed", "err", err)
			return
		}
		b.conn = conn
	}

	b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("bus write failed", "err", err)
		b.conn.Close()
		b.conn = nil
	}
}

// Close stops the writer, abandoning queued messages, and closes the
// connection.
func (b *Bus) Close() error {
	b.cancel()
	b.wg.Wait()

	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
	err := b.conn.Close()
	b.conn = nil
	return err
}
