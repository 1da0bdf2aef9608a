package state

import (
	"encoding/json"
	"strconv"
)

// RoomInfo is the JSON shape of a room in list replies.
type RoomInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	MaxUsers    int            `json:"maxUsers"`
	Persistent  bool           `json:"persistent"`
	HasPassword bool           `json:"hasPassword"`
	UserCount   int            `json:"userCount"`
	Data        map[string]any `json:"data"`
}

// SessionInfo is the JSON shape of a session in list replies.
type SessionInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	UserCount int            `json:"userCount"`
	Data      map[string]any `json:"data"`
	Rooms     []RoomInfo     `json:"rooms"`
}

// ObjectInfo is the JSON shape of a user's personal data object. Values are
// keyed by decimal key and base64-encoded.
type ObjectInfo struct {
	ID     uint16            `json:"id"`
	Values map[string][]byte `json:"values"`
}

// UserInfo is the JSON shape of a user in list replies.
type UserInfo struct {
	ID         uint16     `json:"id"`
	Name       string     `json:"name"`
	Room       string     `json:"room"`
	DataObject ObjectInfo `json:"dataObject"`
}

func roomInfo(r *Room) RoomInfo {
	return RoomInfo{
		ID:          r.id,
		Name:        r.name,
		MaxUsers:    r.maxUsers,
		Persistent:  r.persistent,
		HasPassword: r.password != "",
		UserCount:   len(r.users),
		Data:        r.Data,
	}
}

func userInfo(u *User) UserInfo {
	info := UserInfo{ID: u.id, Name: u.name}
	if u.room != nil {
		info.Room = u.room.id
	}
	if u.object != nil {
		info.DataObject = ObjectInfo{
			ID:     u.object.id,
			Values: make(map[string][]byte, len(u.object.values)),
		}
		for k, v := range u.object.values {
			info.DataObject.Values[strconv.Itoa(int(k))] = v
		}
	}
	return info
}

// SessionListJSON returns every session with its rooms as a JSON array.
func (g *Registry) SessionListJSON() []byte {
	list := make([]SessionInfo, 0, len(g.sessions))
	for _, id := range sortedKeys(g.sessions) {
		s := g.sessions[id]
		info := SessionInfo{
			ID:        s.id,
			Name:      s.name,
			UserCount: len(s.users),
			Data:      s.Data,
			Rooms:     make([]RoomInfo, 0, len(s.rooms)),
		}
		for _, rid := range sortedKeys(s.rooms) {
			info.Rooms = append(info.Rooms, roomInfo(s.rooms[rid]))
		}
		list = append(list, info)
	}
	return marshalList(list)
}

// RoomListJSON returns a session's rooms as a JSON array, or "[]" for an
// unknown session.
func (g *Registry) RoomListJSON(sessionID string) []byte {
	s, ok := g.sessions[sessionID]
	if !ok {
		g.logger.Warn("room list for unknown session", "session", sessionID)
		return []byte("[]")
	}
	list := make([]RoomInfo, 0, len(s.rooms))
	for _, rid := range sortedKeys(s.rooms) {
		list = append(list, roomInfo(s.rooms[rid]))
	}
	return marshalList(list)
}

// UserListJSON returns a room's members as a JSON array, or "[]" for an
// unknown session or room.
func (g *Registry) UserListJSON(sessionID, roomID string) []byte {
	s, ok := g.sessions[sessionID]
	if !ok {
		g.logger.Warn("user list for unknown session", "session", sessionID)
		return []byte("[]")
	}
	r, ok := s.rooms[roomID]
	if !ok {
		g.logger.Warn("user list for unknown room", "session", sessionID, "room", roomID)
		return []byte("[]")
	}
	list := make([]UserInfo, 0, len(r.users))
	for _, uid := range sortedKeys(r.users) {
		list = append(list, userInfo(r.users[uid]))
	}
	return marshalList(list)
}

func marshalList(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("[]")
	}
	return data
}
