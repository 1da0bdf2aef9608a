package protocol

// Tag identifies the message type carried in a frame payload's first byte.
type Tag uint8

const (
	TagJoin              Tag = 1  // client join request / server join acknowledgment
	TagJoinError         Tag = 2  // join precondition failure
	TagChangeRoom        Tag = 3  // client room change request / server acknowledgment
	TagChangeRoomError   Tag = 4  // room change precondition failure
	TagInitDataObject    Tag = 5  // client-initiated data object creation
	TagDataObjectUpdate  Tag = 6  // data object value update (both directions)
	TagDataObjectDelete  Tag = 7  // data object deletion (both directions)
	TagDataObjectCreated Tag = 8  // creation acknowledgment carrying the assigned id
	TagDataObjectsSent   Tag = 9  // marker: full object state has been delivered
	TagGetSessionList    Tag = 10 // session list query / reply
	TagGetRoomList       Tag = 11 // room list query / reply
	TagGetUserList       Tag = 12 // user list query / reply
	TagChatMessage       Tag = 13 // chat text, addressed or room-wide
	TagCustomMessage     Tag = 14 // opaque application payload, room-wide
	TagPing              Tag = 15 // liveness probe / echo
	TagNewUser           Tag = 16 // presence: a user entered the room
	TagUserLeft          Tag = 17 // presence: a user left the room
	TagMaster            Tag = 18 // the receiving user is now the room master
)

// String returns the tag name for logging and metrics labels.
func (t Tag) String() string {
	switch t {
	case TagJoin:
		return "join"
	case TagJoinError:
		return "join_error"
	case TagChangeRoom:
		return "change_room"
	case TagChangeRoomError:
		return "change_room_error"
	case TagInitDataObject:
		return "init_data_object"
	case TagDataObjectUpdate:
		return "data_object_update"
	case TagDataObjectDelete:
		return "data_object_delete"
	case TagDataObjectCreated:
		return "data_object_created"
	case TagDataObjectsSent:
		return "data_objects_sent"
	case TagGetSessionList:
		return "get_session_list"
	case TagGetRoomList:
		return "get_room_list"
	case TagGetUserList:
		return "get_user_list"
	case TagChatMessage:
		return "chat_message"
	case TagCustomMessage:
		return "custom_message"
	case TagPing:
		return "ping"
	case TagNewUser:
		return "new_user"
	case TagUserLeft:
		return "user_left"
	case TagMaster:
		return "master"
	default:
		return "unknown"
	}
}

// ErrorCode is the reason carried by JoinError and ChangeRoomError replies.
type ErrorCode uint8

const (
	ErrCodeSessionNotFound ErrorCode = 1
	ErrCodeRoomNotFound    ErrorCode = 2
	ErrCodeServerFull      ErrorCode = 3
	ErrCodeRoomFull        ErrorCode = 4
	ErrCodeWrongPassword   ErrorCode = 5
	ErrCodeSameRoom        ErrorCode = 6
	ErrCodeRejected        ErrorCode = 7
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeSessionNotFound:
		return "session_not_found"
	case ErrCodeRoomNotFound:
		return "room_not_found"
	case ErrCodeServerFull:
		return "server_full"
	case ErrCodeRoomFull:
		return "room_full"
	case ErrCodeWrongPassword:
		return "wrong_password"
	case ErrCodeSameRoom:
		return "same_room"
	case ErrCodeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// UpdatePolicy controls who may mutate a data object.
type UpdatePolicy uint8

const (
	// PolicyPrivate restricts mutation to the owning user. An ownerless
	// private object can never be mutated by a client.
	PolicyPrivate UpdatePolicy = 0

	// PolicyPublic lets any room member mutate the object.
	PolicyPublic UpdatePolicy = 1
)

// String returns the policy name.
func (p UpdatePolicy) String() string {
	switch p {
	case PolicyPrivate:
		return "private"
	case PolicyPublic:
		return "public"
	default:
		return "unknown"
	}
}

// PolicyProbeByte is the first byte of a legacy cross-domain policy request.
// A connection that has not yet delivered a real frame and starts with this
// byte is answered with the configured policy document instead of being
// parsed as protocol traffic.
const PolicyProbeByte = 0x3C // '<'
