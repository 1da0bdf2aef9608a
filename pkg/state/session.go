package state

import (
	"strconv"
)

// SessionOptions configures a session at creation time.
type SessionOptions struct {
	// Name is a human-readable label; it defaults to the session identifier.
	Name string

	// AutoRoomCreate makes join and change-room requests create missing
	// rooms on demand instead of failing with a room-not-found error.
	AutoRoomCreate bool

	// HookFactory, when set, is called for every room created in this
	// session and may return hooks to install on it. It runs under the
	// registry lock and may configure the room (persistence, data) before
	// any user enters it.
	HookFactory func(r *Room) *RoomHooks

	// Data is free-form server-side storage for embedding applications.
	Data map[string]any
}

// Session is an isolated namespace of rooms. Clients name a session in their
// join request and can never see or reach entities outside it.
type Session struct {
	// Data is free-form server-side storage for embedding applications.
	Data map[string]any

	registry       *Registry
	id             string
	name           string
	autoRoomCreate bool
	hookFactory    func(*Room) *RoomHooks

	rooms      map[string]*Room
	users      map[uint16]*User
	nextRoomID int
	disposed   bool
}

func newSession(g *Registry, id string, opts *SessionOptions) *Session {
	s := &Session{
		registry:   g,
		id:         id,
		name:       id,
		rooms:      make(map[string]*Room),
		users:      make(map[uint16]*User),
		nextRoomID: 1,
	}
	if opts != nil {
		if opts.Name != "" {
			s.name = opts.Name
		}
		s.autoRoomCreate = opts.AutoRoomCreate
		s.hookFactory = opts.HookFactory
		s.Data = opts.Data
	}
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Name returns the session's display name.
func (s *Session) Name() string { return s.name }

// AutoRoomCreate reports whether missing rooms are created on demand.
func (s *Session) AutoRoomCreate() bool { return s.autoRoomCreate }

// UserCount returns the number of users across all of the session's rooms.
func (s *Session) UserCount() int { return len(s.users) }

// Room returns the room with the given identifier, without creating it.
func (s *Session) Room(id string) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// Rooms returns the session's rooms ordered by identifier.
func (s *Session) Rooms() []*Room {
	out := make([]*Room, 0, len(s.rooms))
	for _, id := range sortedKeys(s.rooms) {
		out = append(out, s.rooms[id])
	}
	return out
}

// CreateRoom creates a room. An empty id allocates the next numeric room
// identifier. Creating an id that already exists returns the existing room.
func (s *Session) CreateRoom(id string, opts *RoomOptions) *Room {
	if id == "" {
		for {
			id = strconv.Itoa(s.nextRoomID)
			s.nextRoomID++
			if _, taken := s.rooms[id]; !taken {
				break
			}
		}
	} else if r, ok := s.rooms[id]; ok {
		return r
	}
	r := newRoom(s, id, opts)
	s.rooms[id] = r
	if s.hookFactory != nil {
		r.hooks = s.hookFactory(r)
	}
	s.registry.logger.Info("room created",
		"session", s.id, "room", id, "maxUsers", r.maxUsers, "persistent", r.persistent)
	return r
}

// ResolveRoom looks a room up for a join or change-room request, creating it
// when the session auto-creates rooms.
func (s *Session) ResolveRoom(id string) (*Room, bool) {
	if r, ok := s.rooms[id]; ok {
		return r, true
	}
	if !s.autoRoomCreate || id == "" {
		return nil, false
	}
	return s.CreateRoom(id, nil), true
}

// RemoveRoom disposes a room and drops it from the session. Its members are
// disconnected first.
func (s *Session) RemoveRoom(id string) bool {
	r, ok := s.rooms[id]
	if !ok {
		return false
	}
	for _, uid := range sortedKeys(r.users) {
		if u, ok := r.users[uid]; ok {
			s.registry.DisconnectUser(u)
		}
	}
	delete(s.rooms, id)
	r.dispose()
	s.registry.logger.Info("room removed", "session", s.id, "room", id)
	return true
}

func (s *Session) addUser(u *User) {
	s.users[u.id] = u
}

func (s *Session) removeUser(u *User) {
	delete(s.users, u.id)
}

// dispose tears the session down: every user is disconnected and every room
// removed.
func (s *Session) dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, id := range sortedKeys(s.rooms) {
		s.RemoveRoom(id)
	}
}
