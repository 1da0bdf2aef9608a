package server

import (
	"fmt"

	"github.com/hallway-dev/hallway/pkg/protocol"
	"github.com/hallway-dev/hallway/pkg/state"
)

// All handlers run with the registry lock held.

func (e *Endpoint) handleJoin(c *conn, payload []byte) error {
	if c.user != nil {
		return ErrAlreadyJoined
	}
	req, err := protocol.DecodeJoinRequest(payload)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}

	u, code := e.registry.CreateUser(req.SessionID, req.RoomID, req.Name, c, req.Values)
	if code != 0 {
		c.sendPayload(protocol.EncodeJoinError(code))
		return nil
	}

	if h := u.Room().Hooks(); h != nil && h.Join != nil {
		var d state.Decision
		h.Join(u, &d)
		if !d.Allowed() {
			c.sendPayload(protocol.EncodeJoinError(protocol.ErrCodeRejected))
			e.registry.RejectUser(u)
			return nil
		}
	}

	c.user = u
	e.registry.AdmitUser(u)
	return nil
}

func (e *Endpoint) handleChangeRoom(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	req, err := protocol.DecodeChangeRoomRequest(payload)
	if err != nil {
		return fmt.Errorf("change room: %w", err)
	}

	oldRoom := u.Room()
	if req.RoomID == oldRoom.ID() {
		u.Send(protocol.EncodeChangeRoomError(protocol.ErrCodeSameRoom))
		return nil
	}

	// the request's values land on the personal object before the move is
	// validated, so they stick even when the change fails
	u.DataObject().Apply(req.Values)

	newRoom, ok := u.Session().ResolveRoom(req.RoomID)
	if !ok {
		u.Send(protocol.EncodeChangeRoomError(protocol.ErrCodeRoomNotFound))
		return nil
	}
	if newRoom.Full() {
		u.Send(protocol.EncodeChangeRoomError(protocol.ErrCodeRoomFull))
		return nil
	}
	if !newRoom.CheckPassword(req.Password) {
		u.Send(protocol.EncodeChangeRoomError(protocol.ErrCodeWrongPassword))
		return nil
	}

	if h := oldRoom.Hooks(); h != nil && h.ChangeRoom != nil {
		var d state.Decision
		h.ChangeRoom(u, oldRoom, newRoom, &d)
		if !d.Allowed() {
			u.Send(protocol.EncodeChangeRoomError(protocol.ErrCodeRejected))
			return nil
		}
	}

	e.registry.MoveUser(u, newRoom)
	return nil
}

func (e *Endpoint) handleInitDataObject(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	req, err := protocol.DecodeInitDataObjectRequest(payload)
	if err != nil {
		return fmt.Errorf("init data object: %w", err)
	}
	if _, err := u.Room().InitDataObject(u, req.Policy, req.CallbackID, req.Values); err != nil {
		return fmt.Errorf("init data object: %w", err)
	}
	return nil
}

func (e *Endpoint) handleUpdateDataObject(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	req, err := protocol.DecodeUpdateDataObjectRequest(payload)
	if err != nil {
		return fmt.Errorf("update data object: %w", err)
	}
	o, ok := e.registry.Object(req.ObjectID)
	if !ok {
		return nil
	}
	// policy violations are dropped without a reply
	o.ApplyFrom(u, req.Values, req.Broadcast)
	return nil
}

func (e *Endpoint) handleDeleteDataObject(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	req, err := protocol.DecodeDeleteDataObjectRequest(payload)
	if err != nil {
		return fmt.Errorf("delete data object: %w", err)
	}
	o, ok := e.registry.Object(req.ObjectID)
	if !ok {
		return nil
	}
	o.Dispose(req.Broadcast)
	return nil
}

// handleList answers the three list requests. They are the only messages,
// besides join, that an unauthenticated connection may send.
func (e *Endpoint) handleList(c *conn, tag protocol.Tag, payload []byte) error {
	req, err := protocol.DecodeListRequest(payload)
	if err != nil {
		return fmt.Errorf("list request: %w", err)
	}

	var list []byte
	switch tag {
	case protocol.TagGetSessionList:
		list = e.registry.SessionListJSON()
	case protocol.TagGetRoomList:
		list = e.registry.RoomListJSON(req.SessionID)
	case protocol.TagGetUserList:
		list = e.registry.UserListJSON(req.SessionID, req.RoomID)
	}
	c.sendPayload(protocol.EncodeListReply(tag, req.CallbackID, list))
	return nil
}

func (e *Endpoint) handleChat(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	req, err := protocol.DecodeChatRequest(payload)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	room := u.Room()
	if room == nil {
		return nil
	}

	var target *state.User
	if req.TargetID != 0 {
		var ok bool
		if target, ok = room.User(req.TargetID); !ok {
			return nil
		}
	}

	text := req.Text
	if h := room.Hooks(); h != nil && h.Chat != nil {
		var d state.ChatDecision
		h.Chat(u, target, text, &d)
		if !d.Allowed() {
			return nil
		}
		text = d.Text(text)
	}

	room.Emit(state.RoomEvent{
		Type: state.RoomEventChatMessage, Room: room, User: u, Target: target, Text: text,
	})
	if target == nil {
		// room chat reaches everyone, the sender included
		room.Broadcast(protocol.EncodeChatMessage(0, u.ID(), text), nil)
	} else {
		target.Send(protocol.EncodeChatMessage(target.ID(), u.ID(), text))
	}
	return nil
}

func (e *Endpoint) handleCustom(c *conn, payload []byte) error {
	u := c.user
	if u == nil {
		return ErrNotJoined
	}
	body, err := protocol.DecodeCustomPayload(payload)
	if err != nil {
		return fmt.Errorf("custom: %w", err)
	}
	room := u.Room()
	if room == nil {
		return nil
	}

	room.Emit(state.RoomEvent{
		Type: state.RoomEventCustomMessage, Room: room, User: u, Payload: body,
	})

	if h := room.Hooks(); h != nil && h.Custom != nil {
		var d state.CustomDecision
		h.Custom(u, body, &d)
		if !d.Allowed() {
			return nil
		}
		body = d.Payload(body)
	}

	// custom messages reach everyone, the sender included
	room.Broadcast(protocol.EncodeCustomMessage(body), nil)
	return nil
}

func (e *Endpoint) handlePing(c *conn) error {
	if c.user == nil {
		return ErrNotJoined
	}
	c.user.Send(protocol.EncodePing())
	return nil
}
