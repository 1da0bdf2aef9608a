package state

import (
	"github.com/hallway-dev/hallway/pkg/protocol"
)

// Routing selects the audience of a system message.
type Routing int

const (
	// RouteUser delivers to a single user by identifier.
	RouteUser Routing = iota
	// RouteRoom delivers to every user in one room.
	RouteRoom
	// RouteSession delivers to every user in every room of a session.
	RouteSession
	// RouteServer delivers to every connected user.
	RouteServer
)

// SystemMessage is a server-originated chat message. The zero UserID,
// SessionID, and RoomID fields are ignored for routings that do not use
// them.
type SystemMessage struct {
	Routing   Routing
	UserID    uint16
	SessionID string
	RoomID    string
	Text      string
}

// SendSystemMessage delivers a system message to its audience. Unknown
// targets are silently skipped.
func (g *Registry) SendSystemMessage(m SystemMessage) {
	payload := protocol.EncodeSystemMessage(m.Text)

	switch m.Routing {
	case RouteUser:
		if u, ok := g.users[m.UserID]; ok {
			u.Send(payload)
		}
	case RouteRoom:
		s, ok := g.sessions[m.SessionID]
		if !ok {
			return
		}
		if r, ok := s.rooms[m.RoomID]; ok {
			r.broadcast(payload, nil)
		}
	case RouteSession:
		if s, ok := g.sessions[m.SessionID]; ok {
			for _, r := range s.rooms {
				r.broadcast(payload, nil)
			}
		}
	case RouteServer:
		for _, s := range g.sessions {
			for _, r := range s.rooms {
				r.broadcast(payload, nil)
			}
		}
	}
}
