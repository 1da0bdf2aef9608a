package server

import (
	"net"
	"time"
)

const transportTCP = "tcp"

// tcpTransport carries frames over a raw TCP connection. Reads return
// whatever the socket delivers; framing is entirely the de-framer's job.
type tcpTransport struct {
	conn         net.Conn
	buf          []byte
	writeTimeout time.Duration
}

func newTCPTransport(conn net.Conn, readBufferSize int, writeTimeout time.Duration) *tcpTransport {
	if readBufferSize <= 0 {
		readBufferSize = 4096
	}
	return &tcpTransport{
		conn:         conn,
		buf:          make([]byte, readBufferSize),
		writeTimeout: writeTimeout,
	}
}

func (t *tcpTransport) ReadChunk() ([]byte, error) {
	n, err := t.conn.Read(t.buf)
	if err != nil {
		return nil, err
	}
	return t.buf[:n], nil
}

func (t *tcpTransport) WriteChunk(frame []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpTransport) Close() error       { return t.conn.Close() }
func (t *tcpTransport) Name() string       { return transportTCP }
func (t *tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }
