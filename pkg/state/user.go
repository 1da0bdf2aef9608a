package state

import (
	"time"

	"github.com/hallway-dev/hallway/pkg/protocol"
)

// User is a client that completed the join handshake. Every user belongs to
// exactly one session and one room and carries a personal DataObject created
// from the values sent with the join request.
type User struct {
	// Data is free-form server-side storage for embedding applications.
	// It is never sent to clients.
	Data map[string]any

	registry *Registry
	id       uint16
	name     string
	session  *Session
	room     *Room
	object   *DataObject
	conn     Conn

	lastSeen time.Time
	master   bool
	disposed bool
}

// ID returns the user's identifier, unique server-wide while the user lives.
func (u *User) ID() uint16 { return u.id }

// Name returns the display name sent with the join request.
func (u *User) Name() string { return u.name }

// Session returns the session the user belongs to.
func (u *User) Session() *Session { return u.session }

// Room returns the room the user is currently in.
func (u *User) Room() *Room { return u.room }

// DataObject returns the user's personal data object.
func (u *User) DataObject() *DataObject { return u.object }

// Conn returns the user's transport connection.
func (u *User) Conn() Conn { return u.conn }

// IsMaster reports whether the user is its room's master.
func (u *User) IsMaster() bool { return u.master }

// Disposed reports whether the user has been destroyed.
func (u *User) Disposed() bool { return u.disposed }

// LastSeen returns the time of the user's most recent inbound message.
func (u *User) LastSeen() time.Time { return u.lastSeen }

// Touch records inbound activity, deferring idle eviction.
func (u *User) Touch() { u.lastSeen = time.Now() }

// Send frames a payload and enqueues it on the user's connection.
func (u *User) Send(payload []byte) {
	if u.conn == nil {
		return
	}
	u.conn.Send(protocol.EncodeFrame(payload))
}

// sendFrame enqueues an already framed message.
func (u *User) sendFrame(frame []byte) {
	if u.conn == nil {
		return
	}
	u.conn.Send(frame)
}
