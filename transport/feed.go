package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	incomingBuffer = 64
	outgoingBuffer = 16
)

// Feed is a client-side websocket connection to the game server. Incoming
// messages arrive decoded on Incoming in wire order; outgoing sends are
// queued so callers never block on the socket.
type Feed struct {
	ID   string
	conn *websocket.Conn
	log  slog.Logger

	Incoming chan Message
	outgoing chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the game server and starts the read and write pumps.
func Dial(ctx context.Context, url string, log slog.Logger) (*Feed, error) {
	if log == nil {
		log = slog.Disabled
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	f := &Feed{
		ID:       uuid.New().String(),
		conn:     conn,
		log:      log,
		Incoming: make(chan Message, incomingBuffer),
		outgoing: make(chan []byte, outgoingBuffer),
		done:     make(chan struct{}),
	}
	go f.readPump()
	go f.writePump()
	return f, nil
}

// Send queues a message for delivery. Returns an error when the outgoing
// queue is full or the feed is closed, never blocks.
func (f *Feed) Send(name string, payload any) error {
	msg, err := NewMessage(name, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	select {
	case <-f.done:
		return fmt.Errorf("send %s: feed closed", name)
	case f.outgoing <- data:
		return nil
	default:
		return fmt.Errorf("send %s: outgoing queue full", name)
	}
}

// Close tears the connection down. Safe to call more than once; Incoming is
// closed once the read pump drains.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		deadline := time.Now().Add(writeWait)
		f.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = f.conn.Close()
	})
	return err
}

// Done reports feed shutdown.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) readPump() {
	defer func() {
		f.Close()
		close(f.Incoming)
	}()

	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.log.Errorf("feed %s: read: %v", f.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			f.log.Warnf("feed %s: bad frame: %v", f.ID, err)
			continue
		}

		select {
		case f.Incoming <- msg:
		case <-f.done:
			return
		}
	}
}

func (f *Feed) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		f.Close()
	}()

	for {
		select {
		case <-f.done:
			return
		case data := <-f.outgoing:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.log.Errorf("feed %s: write: %v", f.ID, err)
				return
			}
		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
