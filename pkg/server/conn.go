package server

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hallway-dev/hallway/pkg/protocol"
	"github.com/hallway-dev/hallway/pkg/state"
)

// transport abstracts a byte-stream carrier under a connection. WebSocket
// and raw TCP implementations exist; tests supply in-memory ones.
type transport interface {
	// ReadChunk returns the next chunk of inbound bytes. Chunks carry no
	// framing guarantees; a frame may arrive split across chunks or
	// several frames in one.
	ReadChunk() ([]byte, error)

	// WriteChunk writes a complete outbound frame.
	WriteChunk([]byte) error

	// Close shuts the carrier down, unblocking a pending ReadChunk.
	Close() error

	// Name identifies the transport kind for logs and metrics.
	Name() string

	RemoteAddr() string
}

// conn couples a transport with an outbound queue and the de-framer. It is
// the state.Conn handed to the registry: Send never blocks, and Dispose only
// closes the transport so the disconnect flows back through the read loop.
type conn struct {
	id      string
	t       transport
	out     chan []byte
	quit    chan struct{}
	once    sync.Once
	frames  protocol.FrameBuffer
	metrics *Metrics
	logger  *slog.Logger

	// user is set once the join handshake completes. Guarded by the
	// registry lock.
	user *state.User
}

func newConn(t transport, cfg *Config, metrics *Metrics, logger *slog.Logger) *conn {
	id := uuid.NewString()
	return &conn{
		id:      id,
		t:       t,
		out:     make(chan []byte, cfg.OutboundQueueSize),
		quit:    make(chan struct{}),
		frames:  protocol.FrameBuffer{MaxFrameSize: cfg.MaxFrameSize},
		metrics: metrics,
		logger:  logger.With("conn", id, "transport", t.Name()),
	}
}

// Send enqueues a frame. A connection whose queue is full cannot keep up and
// is dropped rather than stalling the sender.
func (c *conn) Send(frame []byte) {
	select {
	case <-c.quit:
	case c.out <- frame:
	default:
		c.metrics.FramesDropped.Inc()
		c.logger.Warn("outbound queue full, dropping connection", "remote", c.t.RemoteAddr())
		c.Dispose()
	}
}

// Dispose closes the transport. The read loop observes the close and runs
// the disconnect flow; calling Dispose again is a no-op.
func (c *conn) Dispose() {
	c.once.Do(func() {
		close(c.quit)
		if err := c.t.Close(); err != nil {
			c.logger.Debug("transport close", "remote", c.t.RemoteAddr(), "error", err)
		}
	})
}

func (c *conn) RemoteAddr() string { return c.t.RemoteAddr() }

// sendPayload frames and enqueues a protocol payload.
func (c *conn) sendPayload(payload []byte) {
	c.Send(protocol.EncodeFrame(payload))
}

// writeLoop drains the outbound queue onto the transport.
func (c *conn) writeLoop() {
	for {
		select {
		case <-c.quit:
			return
		case frame := <-c.out:
			if err := c.t.WriteChunk(frame); err != nil {
				c.logger.Debug("write failed", "remote", c.t.RemoteAddr(), "error", err)
				c.Dispose()
				return
			}
			c.metrics.BytesWritten.Add(float64(len(frame)))
		}
	}
}
