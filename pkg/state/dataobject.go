package state

import (
	"github.com/hallway-dev/hallway/pkg/protocol"
)

// DataObject is a shared key/value record. A personal object belongs to a
// user and rides along when the user changes rooms; a room object is owned
// by the room itself and lives until deleted or the room is disposed.
type DataObject struct {
	registry *Registry
	id       uint16
	room     *Room
	owner    *User
	policy   protocol.UpdatePolicy

	values map[uint16][]byte
	dirty  map[uint16]struct{}

	observers map[uint64]func(DataObjectEvent)
	nextObs   uint64
	disposed  bool
}

func newDataObject(g *Registry, id uint16, policy protocol.UpdatePolicy, pairs []protocol.KeyValue) *DataObject {
	o := &DataObject{
		registry: g,
		id:       id,
		policy:   policy,
		values:   make(map[uint16][]byte, len(pairs)),
	}
	for _, kv := range pairs {
		o.values[kv.Key] = kv.Value
	}
	return o
}

// ID returns the object's identifier.
func (o *DataObject) ID() uint16 { return o.id }

// Room returns the room the object lives in. It is nil for personal objects,
// which follow their owner instead of belonging to a room.
func (o *DataObject) Room() *Room { return o.room }

// Owner returns the user the object belongs to, or nil for room objects.
func (o *DataObject) Owner() *User { return o.owner }

// Policy returns the object's update policy.
func (o *DataObject) Policy() protocol.UpdatePolicy { return o.policy }

// Disposed reports whether the object has been destroyed.
func (o *DataObject) Disposed() bool { return o.disposed }

// Value returns the value stored under key.
func (o *DataObject) Value(key uint16) ([]byte, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the stored keys in ascending order.
func (o *DataObject) Keys() []uint16 {
	return sortedKeys(o.values)
}

// SetValue stores a value and marks the key dirty for the next partial
// broadcast.
func (o *DataObject) SetValue(key uint16, value []byte) {
	if o.disposed {
		return
	}
	o.values[key] = value
	o.markDirty(key)
}

// Apply merges decoded pairs into the object, marks them dirty, and returns
// the touched keys.
func (o *DataObject) Apply(pairs []protocol.KeyValue) []uint16 {
	keys := make([]uint16, 0, len(pairs))
	for _, kv := range pairs {
		o.values[kv.Key] = kv.Value
		o.markDirty(kv.Key)
		keys = append(keys, kv.Key)
	}
	return keys
}

func (o *DataObject) markDirty(key uint16) {
	if o.dirty == nil {
		o.dirty = make(map[uint16]struct{})
	}
	o.dirty[key] = struct{}{}
}

// takeDirty returns the dirty key set in ascending order and clears it.
func (o *DataObject) takeDirty() []uint16 {
	if len(o.dirty) == 0 {
		return nil
	}
	keys := sortedKeys(o.dirty)
	o.dirty = nil
	return keys
}

// encodeUpdate builds an update payload carrying the given keys, or the full
// value set when keys is nil.
func (o *DataObject) encodeUpdate(keys []uint16) []byte {
	return protocol.EncodeDataObjectUpdate(o.policy, o.id, o.values, keys)
}

// ApplyFrom merges pairs on behalf of a user, honoring the update policy: a
// private object only accepts writes from its owner, and a private ownerless
// object accepts none. Rejected updates report false and change nothing.
// Accepted updates are optionally broadcast to the writer's room, excluding
// the writer.
func (o *DataObject) ApplyFrom(u *User, pairs []protocol.KeyValue, broadcast bool) bool {
	if o.disposed {
		return false
	}
	if o.policy == protocol.PolicyPrivate && o.owner != u {
		return false
	}
	keys := o.Apply(pairs)
	if broadcast && u.room != nil {
		u.room.broadcast(o.encodeUpdate(keys), u)
		for _, k := range keys {
			delete(o.dirty, k)
		}
	}
	o.emit(DataObjectEvent{Type: DataObjectUpdated, Object: o, Keys: keys})
	return true
}

// broadcastRoom returns the room whose members should see this object's
// updates: its own room, or the owner's current room for personal objects.
func (o *DataObject) broadcastRoom() *Room {
	if o.room != nil {
		return o.room
	}
	if o.owner != nil {
		return o.owner.room
	}
	return nil
}

// BroadcastValues sends an update carrying the given keys (all keys when nil)
// to the object's room, excluding the owner. Dirty state for the sent keys is
// cleared.
func (o *DataObject) BroadcastValues(keys []uint16) {
	if o.disposed {
		return
	}
	room := o.broadcastRoom()
	if room == nil {
		return
	}
	room.broadcast(o.encodeUpdate(keys), o.owner)
	if keys == nil {
		o.dirty = nil
	} else {
		for _, k := range keys {
			delete(o.dirty, k)
		}
	}
	o.emit(DataObjectEvent{Type: DataObjectUpdated, Object: o, Keys: keys})
}

// BroadcastAllValues sends every value the object holds to its room,
// excluding the owner.
func (o *DataObject) BroadcastAllValues() {
	o.BroadcastValues(nil)
}

// BroadcastDirtyValues sends only the keys written since the last broadcast,
// excluding the owner. It is a no-op when nothing is dirty.
func (o *DataObject) BroadcastDirtyValues() {
	if o.disposed {
		return
	}
	keys := o.takeDirty()
	if len(keys) == 0 {
		return
	}
	room := o.broadcastRoom()
	if room == nil {
		return
	}
	room.broadcast(o.encodeUpdate(keys), o.owner)
	o.emit(DataObjectEvent{Type: DataObjectUpdated, Object: o, Keys: keys})
}

// Dispose destroys the object, optionally announcing the deletion to its
// room. Personal objects are disposed automatically with their owner; room
// objects when their room goes away or a delete request names them.
func (o *DataObject) Dispose(broadcast bool) {
	if o.disposed {
		return
	}
	o.disposed = true

	room := o.broadcastRoom()
	if broadcast && room != nil {
		room.broadcast(protocol.EncodeDataObjectDelete(o.id), nil)
	}
	o.emit(DataObjectEvent{Type: DataObjectDisposed, Object: o})
	if o.room != nil {
		delete(o.room.objects, o.id)
		o.room.emit(RoomEvent{Type: RoomEventDataObjectDisposed, Room: o.room, Object: o})
	}
	o.registry.releaseObject(o)
	o.observers = nil
	o.values = nil
	o.owner = nil
	o.room = nil
}

// Observe registers an observer for updates and disposal. The returned
// cancel func unregisters it.
func (o *DataObject) Observe(fn func(DataObjectEvent)) (cancel func()) {
	if o.observers == nil {
		o.observers = make(map[uint64]func(DataObjectEvent))
	}
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	return func() { delete(o.observers, id) }
}

func (o *DataObject) emit(ev DataObjectEvent) {
	for _, fn := range o.observers {
		fn(ev)
	}
}
