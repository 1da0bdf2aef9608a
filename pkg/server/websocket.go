package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const transportWebSocket = "websocket"

// wsTransport carries frames over a WebSocket connection. Each binary
// message is one chunk; the de-framer tolerates clients that split or
// coalesce frames anyway.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) ReadChunk() ([]byte, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (t *wsTransport) WriteChunk(frame []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *wsTransport) Close() error       { return t.conn.Close() }
func (t *wsTransport) Name() string       { return transportWebSocket }
func (t *wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// WebSocketHandler upgrades HTTP requests and serves the wire protocol over
// the resulting connections.
func (e *Endpoint) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  e.cfg.ReadBufferSize,
		WriteBufferSize: e.cfg.WriteBufferSize,
		CheckOrigin:     e.cfg.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			e.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		e.ServeConn(&wsTransport{conn: ws, writeTimeout: e.cfg.WriteTimeout})
	})
}
