package state

// Conn is the transport side of a connected client as the entity model sees
// it. Implementations live in the server package.
//
// Send enqueues a complete frame without blocking; a connection that cannot
// keep up is disposed by its transport. Dispose closes the underlying
// transport and must be safe to call while the registry lock is held: the
// resulting disconnect is reported back through the transport's read loop,
// never synchronously.
type Conn interface {
	Send(frame []byte)
	Dispose()
	RemoteAddr() string
}
