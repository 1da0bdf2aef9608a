package server

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hallway-dev/hallway/pkg/protocol"
	"github.com/hallway-dev/hallway/pkg/state"
)

const tracerName = "hallway"

// Endpoint drives connections through the wire protocol: it de-frames
// inbound bytes, dispatches one message at a time against the registry, and
// runs the disconnect flow when a transport goes away.
type Endpoint struct {
	cfg      *Config
	registry *state.Registry
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// NewEndpoint returns an endpoint dispatching against registry.
func NewEndpoint(cfg *Config, registry *state.Registry, metrics *Metrics, logger *slog.Logger) *Endpoint {
	if logger == nil {
		logger = slog.Default()
	}
	return &Endpoint{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
		logger:   logger.With("component", "endpoint"),
		tracer:   otel.Tracer(tracerName),
		conns:    make(map[*conn]struct{}),
	}
}

// CloseAll disposes every live connection. Used during shutdown; the
// disconnect flows run on the connections' own read loops.
func (e *Endpoint) CloseAll() {
	e.mu.Lock()
	conns := make([]*conn, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.Unlock()
	for _, c := range conns {
		c.Dispose()
	}
}

func (e *Endpoint) track(c *conn) {
	e.mu.Lock()
	e.conns[c] = struct{}{}
	e.mu.Unlock()
}

func (e *Endpoint) untrack(c *conn) {
	e.mu.Lock()
	delete(e.conns, c)
	e.mu.Unlock()
}

// ServeConn runs a connection until its transport fails or is disposed. It
// blocks; transports call it from their accept path.
func (e *Endpoint) ServeConn(t transport) {
	c := newConn(t, e.cfg, e.metrics, e.logger)
	e.track(c)
	e.metrics.ConnectionsTotal.WithLabelValues(t.Name()).Inc()
	e.logger.Debug("connection accepted", "transport", t.Name(), "remote", t.RemoteAddr())

	go c.writeLoop()
	defer func() {
		c.Dispose()
		e.untrack(c)
		e.metrics.DisconnectsTotal.WithLabelValues(t.Name()).Inc()
		e.registry.Lock()
		e.registry.DisconnectUser(c.user)
		e.registry.Unlock()
		e.logger.Debug("connection closed", "transport", t.Name(), "remote", t.RemoteAddr())
	}()

	// a TCP client's very first bytes may be a legacy policy probe rather
	// than a framed message
	probing := t.Name() == transportTCP

	for {
		chunk, err := t.ReadChunk()
		if err != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}
		e.metrics.BytesRead.Add(float64(len(chunk)))

		if probing {
			probing = false
			if chunk[0] == protocol.PolicyProbeByte {
				e.metrics.PolicyProbes.Inc()
				if err := t.WriteChunk(append([]byte(e.cfg.PolicyDocument), 0)); err != nil {
					return
				}
				continue
			}
		}

		frames, err := c.frames.Append(chunk)
		if err != nil {
			e.logger.Warn("oversized frame, dropping connection",
				"remote", t.RemoteAddr(), "error", err)
			e.metrics.ErrorsTotal.WithLabelValues("oversized_frame").Inc()
			return
		}
		for _, payload := range frames {
			select {
			case <-c.quit:
				return
			default:
			}
			e.dispatch(c, payload)
		}
	}
}

// dispatch handles one decoded payload under the registry lock.
func (e *Endpoint) dispatch(c *conn, payload []byte) {
	if len(payload) == 0 {
		e.metrics.ErrorsTotal.WithLabelValues("empty_frame").Inc()
		c.Dispose()
		return
	}
	tag := protocol.Tag(payload[0])
	e.metrics.MessagesTotal.WithLabelValues(tag.String()).Inc()

	_, span := e.tracer.Start(context.Background(), "hallway.dispatch",
		trace.WithAttributes(attribute.String("message.tag", tag.String())))
	defer span.End()

	e.registry.Lock()
	defer e.registry.Unlock()

	if c.user != nil {
		c.user.Touch()
		span.SetAttributes(attribute.Int("user.id", int(c.user.ID())))
	}

	var err error
	switch tag {
	case protocol.TagJoin:
		err = e.handleJoin(c, payload)
	case protocol.TagChangeRoom:
		err = e.handleChangeRoom(c, payload)
	case protocol.TagInitDataObject:
		err = e.handleInitDataObject(c, payload)
	case protocol.TagDataObjectUpdate:
		err = e.handleUpdateDataObject(c, payload)
	case protocol.TagDataObjectDelete:
		err = e.handleDeleteDataObject(c, payload)
	case protocol.TagGetSessionList, protocol.TagGetRoomList, protocol.TagGetUserList:
		err = e.handleList(c, tag, payload)
	case protocol.TagChatMessage:
		err = e.handleChat(c, payload)
	case protocol.TagCustomMessage:
		err = e.handleCustom(c, payload)
	case protocol.TagPing:
		err = e.handlePing(c)
	default:
		err = ErrUnknownMessage
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.ErrorsTotal.WithLabelValues("dispatch").Inc()
		e.logger.Warn("protocol violation, dropping connection",
			"tag", tag.String(), "remote", c.RemoteAddr(), "error", err)
		// a connection that sends something the protocol forbids is torn
		// down; the disconnect flow runs when its read loop observes the
		// close
		c.Dispose()
	}
}
