package state

// RoomEventType identifies what happened in a room.
type RoomEventType int

const (
	RoomEventAddUser RoomEventType = iota
	RoomEventRemoveUser
	RoomEventNewDataObject
	RoomEventDataObjectDisposed
	RoomEventChatMessage
	RoomEventCustomMessage
)

// RoomEvent is delivered to room observers after the change it describes has
// been applied and broadcast. Observers run under the registry lock.
type RoomEvent struct {
	Type    RoomEventType
	Room    *Room
	User    *User       // actor: joining/leaving user, message sender
	Target  *User       // chat/custom recipient, nil for broadcasts
	Object  *DataObject // for data-object events
	Text    string      // chat text
	Payload []byte      // custom payload
}

// DataObjectEventType identifies a change to a data object.
type DataObjectEventType int

const (
	DataObjectUpdated DataObjectEventType = iota
	DataObjectDisposed
)

// DataObjectEvent is delivered to data-object observers. Keys lists the keys
// touched by an update; it is nil for disposal.
type DataObjectEvent struct {
	Type   DataObjectEventType
	Object *DataObject
	Keys   []uint16
}
