package state

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hallway-dev/hallway/pkg/protocol"
)

// Sentinel errors for registry operations.
var (
	ErrSessionExists      = errors.New("state: session already exists")
	ErrObjectIDsExhausted = errors.New("state: data object ids exhausted")
)

// DefaultServerMaxUsers is the server-wide user cap used when NewRegistry
// gets no explicit limit.
const DefaultServerMaxUsers = 1000

// Registry owns every session, user, and data object on the server. One
// mutex guards the whole tree; see the package documentation for the locking
// discipline.
type Registry struct {
	mu sync.Mutex

	sessions  map[string]*Session
	users     map[uint16]*User
	objects   map[uint16]*DataObject
	userIDs   *IDPool
	objectIDs *IDPool

	logger *slog.Logger
}

// NewRegistry returns an empty registry capped at maxUsers concurrent users
// (DefaultServerMaxUsers when zero).
func NewRegistry(maxUsers int, logger *slog.Logger) *Registry {
	if maxUsers <= 0 {
		maxUsers = DefaultServerMaxUsers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		users:     make(map[uint16]*User),
		objects:   make(map[uint16]*DataObject),
		userIDs:   NewIDPool(maxUsers),
		objectIDs: NewIDPool(0),
		logger:    logger.With("component", "registry"),
	}
}

// Lock acquires the registry-wide mutex. Exactly one protocol message,
// sweep, or API call sequence runs per acquisition.
func (g *Registry) Lock() { g.mu.Lock() }

// Unlock releases the registry-wide mutex.
func (g *Registry) Unlock() { g.mu.Unlock() }

// SetMaxUsers changes the server-wide user cap. With add set the cap grows
// by count, otherwise it is replaced. Connected users are never evicted by a
// shrink.
func (g *Registry) SetMaxUsers(count int, add bool) {
	g.userIDs.SetLimit(count, add)
}

// UserIDsLeft reports how many more users can join server-wide.
func (g *Registry) UserIDsLeft() int {
	return g.userIDs.Remaining()
}

// CreateSession registers a new session. The identifier must be unused.
func (g *Registry) CreateSession(id string, opts *SessionOptions) (*Session, error) {
	if _, taken := g.sessions[id]; taken {
		return nil, ErrSessionExists
	}
	s := newSession(g, id, opts)
	g.sessions[id] = s
	g.logger.Info("session created", "session", id, "name", s.name)
	return s, nil
}

// Session returns the session with the given identifier.
func (g *Registry) Session(id string) (*Session, bool) {
	s, ok := g.sessions[id]
	return s, ok
}

// Sessions returns all sessions ordered by identifier.
func (g *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(g.sessions))
	for _, id := range sortedKeys(g.sessions) {
		out = append(out, g.sessions[id])
	}
	return out
}

// DisposeSession disconnects the session's users, removes its rooms, and
// drops it from the registry.
func (g *Registry) DisposeSession(id string) bool {
	s, ok := g.sessions[id]
	if !ok {
		return false
	}
	s.dispose()
	delete(g.sessions, id)
	g.logger.Info("session removed", "session", id)
	return true
}

// User returns the user with the given identifier, in any session.
func (g *Registry) User(id uint16) (*User, bool) {
	u, ok := g.users[id]
	return u, ok
}

// Object returns the data object with the given identifier, in any session.
func (g *Registry) Object(id uint16) (*DataObject, bool) {
	o, ok := g.objects[id]
	return o, ok
}

// Counts returns the number of live sessions, rooms, users, and data
// objects. Safe to call without the registry lock held elsewhere; it locks
// internally so metric collectors can use it directly.
func (g *Registry) Counts() (sessions, rooms, users, objects int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.sessions {
		rooms += len(s.rooms)
	}
	return len(g.sessions), rooms, len(g.users), len(g.objects)
}

// newObject allocates a data object identifier and registers the object.
func (g *Registry) newObject(policy protocol.UpdatePolicy, pairs []protocol.KeyValue) (*DataObject, error) {
	id, ok := g.objectIDs.Acquire()
	if !ok {
		return nil, ErrObjectIDsExhausted
	}
	o := newDataObject(g, id, policy, pairs)
	g.objects[id] = o
	return o, nil
}

func (g *Registry) releaseObject(o *DataObject) {
	delete(g.objects, o.id)
	g.objectIDs.Release(o.id)
}

// CreateUser admits a connection into a room: it validates the session and
// room, allocates a user identifier, and creates the user together with its
// personal data object from the join request's pairs. On failure it returns
// the protocol error code to send back. The caller still owes the join
// acknowledgement sequence (AdmitUser).
func (g *Registry) CreateUser(sessionID, roomID, name string, conn Conn, pairs []protocol.KeyValue) (*User, protocol.ErrorCode) {
	session, ok := g.sessions[sessionID]
	if !ok {
		g.logger.Warn("join rejected, session not found", "session", sessionID)
		return nil, protocol.ErrCodeSessionNotFound
	}
	room, ok := session.ResolveRoom(roomID)
	if !ok {
		g.logger.Warn("join rejected, room not found", "session", sessionID, "room", roomID)
		return nil, protocol.ErrCodeRoomNotFound
	}
	if g.userIDs.Remaining() == 0 {
		g.logger.Warn("join rejected, server full", "session", sessionID)
		return nil, protocol.ErrCodeServerFull
	}
	if room.Full() {
		g.logger.Warn("join rejected, room full", "session", sessionID, "room", roomID)
		return nil, protocol.ErrCodeRoomFull
	}

	id, ok := g.userIDs.Acquire()
	if !ok {
		return nil, protocol.ErrCodeServerFull
	}
	object, err := g.newObject(protocol.PolicyPrivate, pairs)
	if err != nil {
		g.userIDs.Release(id)
		g.logger.Error("join rejected, object pool exhausted", "session", sessionID)
		return nil, protocol.ErrCodeServerFull
	}

	u := &User{
		Data:     make(map[string]any),
		registry: g,
		id:       id,
		name:     name,
		session:  session,
		conn:     conn,
		object:   object,
		lastSeen: time.Now(),
	}
	object.owner = u

	session.addUser(u)
	room.addUser(u)
	g.users[id] = u

	g.logger.Info("user created",
		"user", id, "name", name, "session", sessionID, "room", room.id)
	return u, 0
}

// AdmitUser runs the join acknowledgement sequence for a freshly created
// user: master announcement if the room was empty, the join acknowledgement
// with the room data, the current roster and room data objects, and finally
// the new-user broadcast to the rest of the room.
func (g *Registry) AdmitUser(u *User) {
	room := u.room
	if u.master {
		u.Send(protocol.EncodeMaster())
	}
	u.Send(protocol.EncodeJoinOK(
		u.id, u.session.id, room.id, marshalRoomData(room), u.object.id, u.name, u.object.values))
	room.emit(RoomEvent{Type: RoomEventAddUser, Room: room, User: u})
	g.sendRoster(u, room)
	g.sendRoomObjects(u, room)
	u.Send(protocol.EncodeDataObjectsSent())
	room.broadcast(encodeNewUser(u), u)
}

// RejectUser tears down a user whose join was vetoed. Nothing was announced
// yet, so nothing is broadcast.
func (g *Registry) RejectUser(u *User) {
	g.disposeUser(u)
}

// sendRoster sends u one new-user message per existing member of room.
func (g *Registry) sendRoster(u *User, room *Room) {
	for _, id := range sortedKeys(room.users) {
		member := room.users[id]
		if member == u {
			continue
		}
		u.Send(encodeNewUser(member))
	}
}

// sendRoomObjects sends u a full update per room data object. Personal
// objects are not room members; their values arrive with the roster.
func (g *Registry) sendRoomObjects(u *User, room *Room) {
	for _, id := range sortedKeys(room.objects) {
		u.Send(room.objects[id].encodeUpdate(nil))
	}
}

// MoveUser relocates u into newRoom, running the full departure and arrival
// sequence on the wire: the old room learns the user left and elects a new
// master if needed, the user is told to forget the old room's members and
// objects, and the new room receives the user like a fresh join. Validation
// and hooks are the caller's concern.
func (g *Registry) MoveUser(u *User, newRoom *Room) {
	oldRoom := u.room
	wasMaster := u.master

	oldRoom.broadcast(protocol.EncodeUserLeft(u.id, u.session.id, oldRoom.id), u)

	oldRoom.removeUser(u)
	newRoom.addUser(u)

	if wasMaster {
		if next := oldRoom.electMaster(); next != nil {
			next.Send(protocol.EncodeMaster())
		}
	}

	for _, id := range sortedKeys(oldRoom.users) {
		member := oldRoom.users[id]
		u.Send(protocol.EncodeUserLeft(member.id, member.session.id, oldRoom.id))
	}
	for _, id := range sortedKeys(oldRoom.objects) {
		u.Send(protocol.EncodeDataObjectDelete(id))
	}

	u.Send(protocol.EncodeChangeRoomOK(newRoom.id))
	if u.master {
		u.Send(protocol.EncodeMaster())
	}
	g.sendRoster(u, newRoom)
	g.sendRoomObjects(u, newRoom)
	u.Send(protocol.EncodeDataObjectsSent())
	newRoom.broadcast(encodeNewUser(u), u)

	newRoom.emit(RoomEvent{Type: RoomEventAddUser, Room: newRoom, User: u})
	oldRoom.emit(RoomEvent{Type: RoomEventRemoveUser, Room: oldRoom, User: u})

	g.logger.Info("user changed room",
		"user", u.id, "session", u.session.id, "from", oldRoom.id, "to", newRoom.id)
}

// DisconnectUser removes a user that left or timed out: the room elects a
// new master if needed, learns the user left, and the user with its personal
// object is destroyed. Safe to call twice; the second call is a no-op.
func (g *Registry) DisconnectUser(u *User) {
	if u == nil || u.disposed {
		return
	}
	room := u.room
	if room != nil {
		if u.master {
			if next := room.electMaster(); next != nil {
				next.Send(protocol.EncodeMaster())
			}
		}
		room.broadcast(protocol.EncodeUserLeft(u.id, u.session.id, room.id), u)
		room.emit(RoomEvent{Type: RoomEventRemoveUser, Room: room, User: u})
	}
	g.disposeUser(u)
}

func (g *Registry) disposeUser(u *User) {
	if u.disposed {
		return
	}
	u.disposed = true

	g.logger.Info("user removed",
		"user", u.id, "name", u.name, "session", u.session.id)

	delete(g.users, u.id)
	g.userIDs.Release(u.id)
	u.session.removeUser(u)
	if u.room != nil {
		u.room.removeUser(u)
	}
	if u.object != nil {
		u.object.Dispose(false)
		u.object = nil
	}
	u.conn = nil
}

// StaleConnections returns the connections of users whose last inbound
// message is older than timeout. The caller disposes them outside the
// registry lock; the resulting disconnects come back through the normal
// transport path.
func (g *Registry) StaleConnections(timeout time.Duration) []Conn {
	deadline := time.Now().Add(-timeout)
	var stale []Conn
	for _, u := range g.users {
		if u.conn == nil {
			continue
		}
		if u.lastSeen.Before(deadline) {
			stale = append(stale, u.conn)
		}
	}
	return stale
}

// SweepEmptyRooms removes every non-persistent room with no members and
// returns how many were removed.
func (g *Registry) SweepEmptyRooms() int {
	removed := 0
	for _, sid := range sortedKeys(g.sessions) {
		s := g.sessions[sid]
		for _, rid := range sortedKeys(s.rooms) {
			r := s.rooms[rid]
			if r.persistent || len(r.users) > 0 {
				continue
			}
			s.RemoveRoom(rid)
			removed++
		}
	}
	return removed
}

func encodeNewUser(u *User) []byte {
	return protocol.EncodeNewUser(u.id, u.room.id, u.session.id, u.name, u.object.id, u.object.values)
}

func marshalRoomData(r *Room) []byte {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return []byte("{}")
	}
	return data
}
