package state

import (
	"github.com/hallway-dev/hallway/pkg/protocol"
)

// DefaultMaxUsers is the room capacity used when RoomOptions does not set one.
const DefaultMaxUsers = 50

// RoomOptions configures a room at creation time.
type RoomOptions struct {
	// Name is a human-readable label; it defaults to the room identifier.
	Name string

	// MaxUsers caps the room's membership. Zero means DefaultMaxUsers.
	MaxUsers int

	// Persistent keeps the room alive through empty-room sweeps.
	Persistent bool

	// Password, when non-empty, must accompany change-room requests into
	// this room. Joins ignore it.
	Password string

	// Data seeds the room's application data, serialized as JSON into
	// join acknowledgements.
	Data map[string]any
}

// Room is a channel inside a session. Users in a room see each other's
// presence, data objects, and messages; nothing crosses room boundaries
// except an explicit room change.
type Room struct {
	// Data is free-form application data, serialized as JSON into join
	// and room-change acknowledgements.
	Data map[string]any

	registry   *Registry
	session    *Session
	id         string
	name       string
	password   string
	maxUsers   int
	persistent bool

	users   map[uint16]*User
	objects map[uint16]*DataObject
	master  *User
	hooks   *RoomHooks

	observers map[uint64]func(RoomEvent)
	nextObs   uint64
	disposed  bool
}

func newRoom(s *Session, id string, opts *RoomOptions) *Room {
	r := &Room{
		registry: s.registry,
		session:  s,
		id:       id,
		name:     id,
		maxUsers: DefaultMaxUsers,
		users:    make(map[uint16]*User),
		objects:  make(map[uint16]*DataObject),
	}
	if opts != nil {
		if opts.Name != "" {
			r.name = opts.Name
		}
		if opts.MaxUsers > 0 {
			r.maxUsers = opts.MaxUsers
		}
		r.persistent = opts.Persistent
		r.password = opts.Password
		r.Data = opts.Data
	}
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	return r
}

// ID returns the room's identifier, unique within its session.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// Session returns the session the room belongs to.
func (r *Room) Session() *Session { return r.session }

// MaxUsers returns the room's capacity.
func (r *Room) MaxUsers() int { return r.maxUsers }

// UserCount returns the number of users currently in the room.
func (r *Room) UserCount() int { return len(r.users) }

// Full reports whether the room is at capacity.
func (r *Room) Full() bool { return len(r.users) >= r.maxUsers }

// Persistent reports whether the room survives empty-room sweeps.
func (r *Room) Persistent() bool { return r.persistent }

// SetPersistent changes whether the room survives empty-room sweeps.
func (r *Room) SetPersistent(p bool) { r.persistent = p }

// HasPassword reports whether room changes into this room need a password.
func (r *Room) HasPassword() bool { return r.password != "" }

// CheckPassword reports whether the given password admits a room change.
func (r *Room) CheckPassword(pw string) bool {
	return r.password == "" || r.password == pw
}

// Master returns the room's master user, nil for an empty room.
func (r *Room) Master() *User { return r.master }

// Hooks returns the room's hook set, nil when the session installs none.
func (r *Room) Hooks() *RoomHooks { return r.hooks }

// User returns the member with the given identifier.
func (r *Room) User(id uint16) (*User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// Users returns the room's members ordered by ascending user identifier.
func (r *Room) Users() []*User {
	out := make([]*User, 0, len(r.users))
	for _, id := range sortedKeys(r.users) {
		out = append(out, r.users[id])
	}
	return out
}

// Object returns the room data object with the given identifier. Personal
// objects are not room members and are not found here.
func (r *Room) Object(id uint16) (*DataObject, bool) {
	o, ok := r.objects[id]
	return o, ok
}

// Objects returns the room's data objects ordered by ascending identifier.
func (r *Room) Objects() []*DataObject {
	out := make([]*DataObject, 0, len(r.objects))
	for _, id := range sortedKeys(r.objects) {
		out = append(out, r.objects[id])
	}
	return out
}

// CreateDataObject creates an ownerless room object from the given pairs and
// optionally announces its full value set to the room.
func (r *Room) CreateDataObject(policy protocol.UpdatePolicy, pairs []protocol.KeyValue, broadcast bool) (*DataObject, error) {
	o, err := r.registry.newObject(policy, pairs)
	if err != nil {
		return nil, err
	}
	r.addObject(o)
	if broadcast {
		r.broadcast(o.encodeUpdate(nil), nil)
	}
	r.emit(RoomEvent{Type: RoomEventNewDataObject, Room: r, Object: o})
	return o, nil
}

// addObject attaches a room object. Callers emit RoomEventNewDataObject once
// the creation has been announced.
func (r *Room) addObject(o *DataObject) {
	o.room = r
	r.objects[o.id] = o
}

// InitDataObject creates a room object on behalf of a user: the creator gets
// a creation acknowledgement carrying its callback id, the rest of the room
// gets the full value set. The object belongs to the room, not the creator.
func (r *Room) InitDataObject(creator *User, policy protocol.UpdatePolicy, callbackID uint16, pairs []protocol.KeyValue) (*DataObject, error) {
	o, err := r.registry.newObject(policy, nil)
	if err != nil {
		return nil, err
	}
	r.addObject(o)
	creator.Send(protocol.EncodeDataObjectCreated(callbackID, o.id))
	for _, kv := range pairs {
		o.values[kv.Key] = kv.Value
	}
	r.broadcast(o.encodeUpdate(nil), creator)
	r.emit(RoomEvent{Type: RoomEventNewDataObject, Room: r, Object: o})
	return o, nil
}

// addUser makes u a member. The first member becomes master; announcing
// mastership is the caller's concern. Callers also emit RoomEventAddUser at
// the protocol-defined point in their sequence.
func (r *Room) addUser(u *User) {
	r.users[u.id] = u
	u.room = r
	if r.master == nil {
		r.master = u
		u.master = true
	}
}

// removeUser drops u from the membership map. Master succession is the
// caller's concern: electMaster must run while the departing user is still
// the recorded master.
func (r *Room) removeUser(u *User) {
	delete(r.users, u.id)
	if u.room == r {
		u.room = nil
	}
	if r.master == u {
		r.master = nil
	}
	u.master = false
}

// electMaster hands mastership to the member with the lowest identifier,
// skipping the current master (the one on its way out). It returns the new
// master, or nil when no candidate remains.
func (r *Room) electMaster() *User {
	var next *User
	for _, u := range r.users {
		if u == r.master {
			continue
		}
		if next == nil || u.id < next.id {
			next = u
		}
	}
	if r.master != nil {
		r.master.master = false
	}
	r.master = next
	if next != nil {
		next.master = true
	}
	return next
}

// broadcast frames payload once and enqueues it on every member except skip.
func (r *Room) broadcast(payload []byte, skip *User) {
	frame := protocol.EncodeFrame(payload)
	for _, u := range r.users {
		if u == skip {
			continue
		}
		u.sendFrame(frame)
	}
}

// Broadcast sends payload to every member. Exclude, when non-nil, is left
// out.
func (r *Room) Broadcast(payload []byte, exclude *User) {
	r.broadcast(payload, exclude)
}

// Observe registers an observer for room events. The returned cancel func
// unregisters it.
func (r *Room) Observe(fn func(RoomEvent)) (cancel func()) {
	if r.observers == nil {
		r.observers = make(map[uint64]func(RoomEvent))
	}
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	return func() { delete(r.observers, id) }
}

// Emit delivers an event to the room's observers. The protocol dispatcher
// uses it for chat and custom message events; embedding applications may
// emit their own.
func (r *Room) Emit(ev RoomEvent) {
	r.emit(ev)
}

func (r *Room) emit(ev RoomEvent) {
	for _, fn := range r.observers {
		fn(ev)
	}
}

// dispose destroys the room and its objects. Members must already be gone.
func (r *Room) dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	for _, id := range sortedKeys(r.objects) {
		r.objects[id].Dispose(false)
	}
	if r.hooks != nil && r.hooks.Dispose != nil {
		r.hooks.Dispose(r)
	}
	r.observers = nil
	r.objects = nil
	r.users = nil
	r.master = nil
}
