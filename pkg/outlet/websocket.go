package outlet

import (
	"errors"
	"sync"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/scottastone/MouseTracker/pkg/log"
)

// WebSocketTransport fans samples out to every connected websocket consumer.
// Each consumer has a queue of maxBuffered payloads; when a slow consumer's
// queue is full the oldest payload is dropped.
type WebSocketTransport struct {
	maxBuffered int
	messageType int
	logger      log.Logger

	mu        sync.Mutex
	running   bool
	info      []byte
	consumers map[*wsConsumer]struct{}
	dropped   uint64
}

type wsConsumer struct {
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func (c *wsConsumer) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewWebSocketTransport returns a transport with no consumers. Samples are sent
// as binary frames when binary is set, text frames otherwise.
func NewWebSocketTransport(maxBuffered int, binary bool, logger log.Logger) *WebSocketTransport {
	if maxBuffered <= 0 {
		maxBuffered = 1
	}
	mt := websocket.TextMessage
	if binary {
		mt = websocket.BinaryMessage
	}
	return &WebSocketTransport{
		maxBuffered: maxBuffered,
		messageType: mt,
		logger:      logger,
		running:     true,
		consumers:   make(map[*wsConsumer]struct{}),
	}
}

// Mount registers the upgrade check and the stream route on app.
func (t *WebSocketTransport) Mount(app fiber.Router, path string) {
	app.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(path, websocket.New(t.serve))
}

// Announce stores the info message sent to each consumer on connect.
func (t *WebSocketTransport) Announce(info []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return ErrClosed
	}
	t.info = info
	return nil
}

// Send queues sample for every connected consumer. It never blocks.
func (t *WebSocketTransport) Send(sample []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrClosed
	}
	for c := range t.consumers {
		select {
		case c.queue <- sample:
			continue
		default:
		}
		// Queue full: drop the oldest
		select {
		case <-c.queue:
			t.dropped++
		default:
		}
		select {
		case c.queue <- sample:
		default:
			t.dropped++
		}
	}
	return nil
}

// ConsumerCount returns the number of connected consumers.
func (t *WebSocketTransport) ConsumerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.consumers)
}

// Dropped returns how many queued payloads were discarded for slow consumers.
func (t *WebSocketTransport) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close disconnects every consumer and rejects further sends.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	for c := range t.consumers {
		c.stop()
	}
	t.logger.Infof("WebSocket outlet closed, %d consumers disconnected", len(t.consumers))
	return nil
}

func (t *WebSocketTransport) register() (*wsConsumer, []byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil, nil, false
	}
	c := &wsConsumer{
		queue: make(chan []byte, t.maxBuffered),
		done:  make(chan struct{}),
	}
	t.consumers[c] = struct{}{}
	return c, t.info, true
}

func (t *WebSocketTransport) unregister(c *wsConsumer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.consumers, c)
}

// serve runs for the lifetime of one consumer connection.
func (t *WebSocketTransport) serve(conn *websocket.Conn) {
	c, info, ok := t.register()
	if !ok {
		return
	}
	defer t.unregister(c)

	t.logger.Infof("Stream consumer connected: %s", conn.RemoteAddr())

	if info != nil {
		if err := conn.WriteMessage(websocket.TextMessage, info); err != nil {
			t.logger.Warnf("Failed to send stream info to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}

	// Consumers never send anything we act on; reading detects disconnects.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer c.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					t.logger.Errorf("Stream WS read error: %v", err)
				} else if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
					t.logger.Debugf("Stream WS connection closed: %v", err)
				}
				return
			}
		}
	}()

	// The connection is released when serve returns, so the reader has to be
	// gone by then.
	defer func() {
		conn.Close()
		<-readerDone
		t.logger.Infof("Stream consumer disconnected: %s", conn.RemoteAddr())
	}()

	for {
		select {
		case <-c.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "outlet closed"))
			return
		case payload := <-c.queue:
			if err := conn.WriteMessage(t.messageType, payload); err != nil {
				t.logger.Debugf("Stream WS write to %s failed: %v", conn.RemoteAddr(), err)
				return
			}
		}
	}
}
