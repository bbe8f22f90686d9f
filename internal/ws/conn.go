package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/notsogambhir/Instacom/internal/relay"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 20 * time.Second
	pongTimeout  = 60 * time.Second
)

type outboundMessage struct {
	messageType int
	data        []byte
}

// Conn is one live websocket connection. It implements
// relay.Transport: relayed frames are enqueued on a bounded channel
// drained by a single writer goroutine, which preserves per-pair frame
// order. A full queue drops the frame; delivery is best-effort.
type Conn struct {
	id       string
	identity relay.Identity
	ws       *websocket.Conn
	logger   *log.Logger

	outbound chan outboundMessage
	closed   chan struct{}
	once     sync.Once

	mu       sync.Mutex
	streamID uuid.UUID // message this connection is currently streaming
}

func newConn(ws *websocket.Conn, identity relay.Identity, queueSize int, logger *log.Logger) *Conn {
	return &Conn{
		id:       uuid.New().String(),
		identity: identity,
		ws:       ws,
		logger:   logger,
		outbound: make(chan outboundMessage, queueSize),
		closed:   make(chan struct{}),
	}
}

// ID returns the connection's unique identifier
func (c *Conn) ID() string {
	return c.id
}

// SendFrame enqueues a relayed audio frame for delivery
func (c *Conn) SendFrame(frame relay.Frame) error {
	data, err := EncodeRelayFrame(frame)
	if err != nil {
		return err
	}
	return c.enqueue(outboundMessage{messageType: websocket.BinaryMessage, data: data})
}

func (c *Conn) sendEvent(data []byte) error {
	return c.enqueue(outboundMessage{messageType: websocket.TextMessage, data: data})
}

func (c *Conn) enqueue(msg outboundMessage) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection %s is closed", c.id)
	default:
	}

	select {
	case c.outbound <- msg:
		return nil
	default:
		return fmt.Errorf("outbound queue full on connection %s", c.id)
	}
}

// close marks the connection dead and closes the socket. Safe to call
// more than once.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump is the single writer for this connection. It drains the
// outbound queue and keeps the peer alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(msg.messageType, msg.data); err != nil {
				c.logger.Debug("Write failed, closing connection", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// setStream records the message this connection is streaming
func (c *Conn) setStream(id uuid.UUID) {
	c.mu.Lock()
	c.streamID = id
	c.mu.Unlock()
}

// clearStream forgets the streaming message if it matches id
func (c *Conn) clearStream(id uuid.UUID) {
	c.mu.Lock()
	if c.streamID == id {
		c.streamID = uuid.Nil
	}
	c.mu.Unlock()
}

// currentStream returns the message id this connection is streaming,
// or uuid.Nil
func (c *Conn) currentStream() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamID
}
