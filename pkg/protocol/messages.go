package protocol

// Inbound message decoding. Each Decode* helper takes a complete frame
// payload (tag byte included) and fails with io.ErrUnexpectedEOF on
// truncation. The tag byte itself has already been inspected by the
// dispatcher and is skipped here.

// JoinRequest asks to enter a room within a session, carrying the display
// name and the initial values of the joiner's personal data object.
type JoinRequest struct {
	SessionID string
	RoomID    string
	Name      string
	Values    []KeyValue
}

// DecodeJoinRequest parses a TagJoin payload.
func DecodeJoinRequest(payload []byte) (*JoinRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	req := &JoinRequest{}
	var err error
	if req.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if req.RoomID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if req.Name, err = d.ReadName(); err != nil {
		return nil, err
	}
	// Client-proposed object id, always ignored: the server assigns ids.
	if _, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if req.Values, err = d.ReadValues(); err != nil {
		return nil, err
	}
	return req, nil
}

// ChangeRoomRequest asks to move the joined user into another room.
type ChangeRoomRequest struct {
	RoomID   string
	Password string
	Values   []KeyValue
}

// DecodeChangeRoomRequest parses a TagChangeRoom payload.
func DecodeChangeRoomRequest(payload []byte) (*ChangeRoomRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	req := &ChangeRoomRequest{}
	var err error
	if req.RoomID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if req.Password, err = d.ReadString(); err != nil {
		return nil, err
	}
	if _, err = d.ReadUint16(); err != nil { // ignored object id
		return nil, err
	}
	if req.Values, err = d.ReadValues(); err != nil {
		return nil, err
	}
	return req, nil
}

// InitDataObjectRequest creates a non-personal data object in the caller's
// room. The reply echoes CallbackID together with the assigned object id.
type InitDataObjectRequest struct {
	Policy     UpdatePolicy
	CallbackID uint16
	Values     []KeyValue
}

// DecodeInitDataObjectRequest parses a TagInitDataObject payload.
func DecodeInitDataObjectRequest(payload []byte) (*InitDataObjectRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	policy, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	req := &InitDataObjectRequest{Policy: UpdatePolicy(policy)}
	if req.CallbackID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if _, err = d.ReadUint16(); err != nil { // ignored object id
		return nil, err
	}
	if req.Values, err = d.ReadValues(); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateDataObjectRequest merges key/value pairs into an existing object.
type UpdateDataObjectRequest struct {
	Broadcast bool
	ObjectID  uint16
	Values    []KeyValue
}

// DecodeUpdateDataObjectRequest parses a TagDataObjectUpdate payload.
func DecodeUpdateDataObjectRequest(payload []byte) (*UpdateDataObjectRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	broadcast, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	req := &UpdateDataObjectRequest{Broadcast: broadcast != 0}
	if req.ObjectID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if req.Values, err = d.ReadValues(); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteDataObjectRequest disposes an object, optionally announcing it.
type DeleteDataObjectRequest struct {
	ObjectID  uint16
	Broadcast bool
}

// DecodeDeleteDataObjectRequest parses a TagDataObjectDelete payload.
func DecodeDeleteDataObjectRequest(payload []byte) (*DeleteDataObjectRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	req := &DeleteDataObjectRequest{}
	var err error
	if req.ObjectID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	broadcast, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	req.Broadcast = broadcast != 0
	return req, nil
}

// ListRequest is a read-only query correlated by an opaque callback id. The
// session and room fields narrow room and user list queries respectively.
type ListRequest struct {
	CallbackID uint16
	SessionID  string
	RoomID     string
}

// DecodeListRequest parses TagGetSessionList, TagGetRoomList, and
// TagGetUserList payloads. Room list queries carry a session id; user list
// queries carry a session and a room id.
func DecodeListRequest(payload []byte) (*ListRequest, error) {
	d := NewDecoder(payload)
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	req := &ListRequest{}
	if req.CallbackID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if Tag(tag) == TagGetSessionList {
		return req, nil
	}
	if req.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if Tag(tag) == TagGetRoomList {
		return req, nil
	}
	if req.RoomID, err = d.ReadString(); err != nil {
		return nil, err
	}
	return req, nil
}

// ChatRequest addresses one user (TargetID != 0) or the whole room.
type ChatRequest struct {
	TargetID uint16
	Text     string
}

// DecodeChatRequest parses a TagChatMessage payload. The text runs to the
// end of the payload with no length prefix.
func DecodeChatRequest(payload []byte) (*ChatRequest, error) {
	d := NewDecoder(payload)
	if _, err := d.ReadByte(); err != nil {
		return nil, err
	}
	req := &ChatRequest{}
	var err error
	if req.TargetID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	req.Text = string(d.ReadRest())
	return req, nil
}

// DecodeCustomPayload returns the opaque application bytes of a
// TagCustomMessage payload.
func DecodeCustomPayload(payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, ErrEmptyPayload
	}
	b := make([]byte, len(payload)-1)
	copy(b, payload[1:])
	return b, nil
}

// Outbound message encoding. Each Encode* helper returns a complete frame
// payload (tag byte included, length prefix not).

// EncodeJoinOK builds the join acknowledgment sent to the joiner: its
// assigned user id, session and room ids, the room's free-form data as JSON,
// and the personal data object's id and values.
func EncodeJoinOK(userID uint16, sessionID, roomID string, roomData []byte, objectID uint16, name string, values map[uint16][]byte) []byte {
	e := NewEncoder()
	e.WriteByte(byte(TagJoin))
	e.WriteUint16(userID)
	e.WriteString(sessionID)
	e.WriteString(roomID)
	e.WriteUint16(uint16(len(roomData)))
	e.WriteBytes(roomData)
	e.WriteUint16(objectID)
	e.WriteString(name)
	e.WriteValues(values, nil)
	return e.Bytes()
}

// EncodeJoinError builds a join failure reply.
func EncodeJoinError(code ErrorCode) []byte {
	return []byte{byte(TagJoinError), byte(code)}
}

// EncodeChangeRoomOK acknowledges a room change; the new room id runs to the
// end of the payload.
func EncodeChangeRoomOK(roomID string) []byte {
	e := NewEncoderWithCap(1 + len(roomID))
	e.WriteByte(byte(TagChangeRoom))
	e.WriteBytes([]byte(roomID))
	return e.Bytes()
}

// EncodeChangeRoomError builds a room change failure reply.
func EncodeChangeRoomError(code ErrorCode) []byte {
	return []byte{byte(TagChangeRoomError), byte(code)}
}

// EncodeDataObjectUpdate builds an object state broadcast. A nil or empty
// key filter carries every value in ascending key order.
func EncodeDataObjectUpdate(policy UpdatePolicy, objectID uint16, values map[uint16][]byte, keys []uint16) []byte {
	e := NewEncoder()
	e.WriteByte(byte(TagDataObjectUpdate))
	e.WriteByte(byte(policy))
	e.WriteUint16(objectID)
	e.WriteValues(values, keys)
	return e.Bytes()
}

// EncodeDataObjectDelete announces an object disposal.
func EncodeDataObjectDelete(objectID uint16) []byte {
	return []byte{byte(TagDataObjectDelete), byte(objectID >> 8), byte(objectID)}
}

// EncodeDataObjectCreated acknowledges InitDataObject with the assigned id.
func EncodeDataObjectCreated(callbackID, objectID uint16) []byte {
	return []byte{byte(TagDataObjectCreated),
		byte(callbackID >> 8), byte(callbackID),
		byte(objectID >> 8), byte(objectID)}
}

// EncodeDataObjectsSent builds the marker closing a full-state delivery.
func EncodeDataObjectsSent() []byte {
	return []byte{byte(TagDataObjectsSent)}
}

// EncodeListReply echoes a query's callback id followed by the JSON document.
func EncodeListReply(tag Tag, callbackID uint16, list []byte) []byte {
	e := NewEncoderWithCap(3 + len(list))
	e.WriteByte(byte(tag))
	e.WriteUint16(callbackID)
	e.WriteBytes(list)
	return e.Bytes()
}

// EncodeChatMessage builds a chat delivery. targetID is zero for room-wide
// messages and the addressee's id for direct ones.
func EncodeChatMessage(targetID, senderID uint16, text string) []byte {
	e := NewEncoderWithCap(5 + len(text))
	e.WriteByte(byte(TagChatMessage))
	e.WriteUint16(targetID)
	e.WriteUint16(senderID)
	e.WriteBytes([]byte(text))
	return e.Bytes()
}

// EncodeSystemMessage builds a server-originated chat delivery. It carries a
// zero target and no sender field; clients tell it apart from user chat by
// its shorter layout.
func EncodeSystemMessage(text string) []byte {
	e := NewEncoderWithCap(3 + len(text))
	e.WriteByte(byte(TagChatMessage))
	e.WriteUint16(0)
	e.WriteBytes([]byte(text))
	return e.Bytes()
}

// EncodeCustomMessage wraps an opaque application payload.
func EncodeCustomMessage(payload []byte) []byte {
	e := NewEncoderWithCap(1 + len(payload))
	e.WriteByte(byte(TagCustomMessage))
	e.WriteBytes(payload)
	return e.Bytes()
}

// EncodePing builds a ping echo.
func EncodePing() []byte {
	return []byte{byte(TagPing)}
}

// EncodeNewUser announces a user's presence, carrying its personal data
// object inline so receivers need no follow-up query.
func EncodeNewUser(userID uint16, roomID, sessionID, name string, objectID uint16, values map[uint16][]byte) []byte {
	e := NewEncoder()
	e.WriteByte(byte(TagNewUser))
	e.WriteUint16(userID)
	e.WriteString(roomID)
	e.WriteString(sessionID)
	e.WriteName(name)
	e.WriteUint16(objectID)
	e.WriteValues(values, nil)
	return e.Bytes()
}

// EncodeUserLeft announces a departure.
func EncodeUserLeft(userID uint16, sessionID, roomID string) []byte {
	e := NewEncoder()
	e.WriteByte(byte(TagUserLeft))
	e.WriteUint16(userID)
	e.WriteString(sessionID)
	e.WriteString(roomID)
	return e.Bytes()
}

// EncodeMaster tells the receiving user it is now the room master.
func EncodeMaster() []byte {
	return []byte{byte(TagMaster)}
}
