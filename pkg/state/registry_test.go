package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hallway-dev/hallway/pkg/protocol"
)

func TestCreateUserErrorOrder(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	s.CreateRoom("tiny", &RoomOptions{MaxUsers: 1})
	join(t, g, &fakeConn{}, "tiny", "first")

	tests := []struct {
		name      string
		sessionID string
		roomID    string
		prep      func()
		want      protocol.ErrorCode
	}{
		{"unknown session", "nope", "main", nil, protocol.ErrCodeSessionNotFound},
		{"unknown room", "lobby", "nope", nil, protocol.ErrCodeRoomNotFound},
		{"room full", "lobby", "tiny", nil, protocol.ErrCodeRoomFull},
		{"server full", "lobby", "main", func() { g.SetMaxUsers(1, false) }, protocol.ErrCodeServerFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			_, code := g.CreateUser(tt.sessionID, tt.roomID, "u", &fakeConn{}, nil)
			if code != tt.want {
				t.Errorf("CreateUser() code = %v, want %v", code, tt.want)
			}
		})
	}
}

func TestJoinSequence(t *testing.T) {
	g := newTestRegistry(t)

	first := &fakeConn{}
	join(t, g, first, "main", "alice")

	// the first user is master and hears about it before the join ack
	want := []protocol.Tag{
		protocol.TagMaster,
		protocol.TagJoin,
		protocol.TagDataObjectsSent,
	}
	if got := first.tags(t); !tagsEqual(got, want) {
		t.Fatalf("first join tags = %v, want %v", got, want)
	}

	first.reset()
	second := &fakeConn{}
	join(t, g, second, "main", "bob")

	// a later joiner gets the ack, the roster, then the end marker
	want = []protocol.Tag{
		protocol.TagJoin,
		protocol.TagNewUser,
		protocol.TagDataObjectsSent,
	}
	if got := second.tags(t); !tagsEqual(got, want) {
		t.Errorf("second join tags = %v, want %v", got, want)
	}

	// the room hears one new-user broadcast
	want = []protocol.Tag{protocol.TagNewUser}
	if got := first.tags(t); !tagsEqual(got, want) {
		t.Errorf("broadcast tags = %v, want %v", got, want)
	}
}

func TestJoinRosterIncludesRoomObjects(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	room, _ := s.Room("main")
	if _, err := room.CreateDataObject(protocol.PolicyPublic, []protocol.KeyValue{{Key: 1, Value: []byte{0xAA}}}, false); err != nil {
		t.Fatalf("CreateDataObject: %v", err)
	}

	conn := &fakeConn{}
	join(t, g, conn, "main", "alice")

	want := []protocol.Tag{
		protocol.TagMaster,
		protocol.TagJoin,
		protocol.TagDataObjectUpdate,
		protocol.TagDataObjectsSent,
	}
	if got := conn.tags(t); !tagsEqual(got, want) {
		t.Errorf("join tags = %v, want %v", got, want)
	}
}

func TestPersonalObjectStaysOutOfRoom(t *testing.T) {
	g := newTestRegistry(t)
	u := join(t, g, &fakeConn{}, "main", "alice")

	if u.DataObject() == nil {
		t.Fatal("user has no personal object")
	}
	if u.DataObject().Room() != nil {
		t.Error("personal object is attached to a room")
	}
	if _, ok := u.Room().Object(u.DataObject().ID()); ok {
		t.Error("personal object listed among room objects")
	}
	if u.DataObject().Owner() != u {
		t.Error("personal object owner mismatch")
	}
}

func TestDisconnectElectsLowestID(t *testing.T) {
	g := newTestRegistry(t)
	a := join(t, g, &fakeConn{}, "main", "a")
	b := join(t, g, &fakeConn{}, "main", "b")
	c := join(t, g, &fakeConn{}, "main", "c")
	room := a.Room()

	if room.Master() != a {
		t.Fatalf("master = %v, want first joiner", room.Master())
	}
	g.DisconnectUser(a)

	master := room.Master()
	if master == nil {
		t.Fatal("no master after disconnect")
	}
	if master != b {
		t.Errorf("master id = %d, want %d (lowest)", master.ID(), b.ID())
	}
	if !master.IsMaster() {
		t.Error("IsMaster() false on elected master")
	}

	g.DisconnectUser(b)
	g.DisconnectUser(c)
	if room.Master() != nil {
		t.Error("master on empty room not nil")
	}
}

func TestDisconnectAnnouncesSuccessor(t *testing.T) {
	g := newTestRegistry(t)
	a := join(t, g, &fakeConn{}, "main", "a")
	bc := &fakeConn{}
	join(t, g, bc, "main", "b")

	bc.reset()
	g.DisconnectUser(a)

	want := []protocol.Tag{protocol.TagMaster, protocol.TagUserLeft}
	if got := bc.tags(t); !tagsEqual(got, want) {
		t.Errorf("successor tags = %v, want %v", got, want)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	g := newTestRegistry(t)
	u := join(t, g, &fakeConn{}, "main", "a")
	g.DisconnectUser(u)
	g.DisconnectUser(u) // must not panic or double-release

	if _, ok := g.User(u.ID()); ok {
		t.Error("user still registered after disconnect")
	}
}

func TestDisconnectRecyclesIDs(t *testing.T) {
	g := newTestRegistry(t)
	u := join(t, g, &fakeConn{}, "main", "a")
	uid, oid := u.ID(), u.DataObject().ID()
	g.DisconnectUser(u)

	next := join(t, g, &fakeConn{}, "main", "b")
	if next.ID() != uid {
		t.Errorf("user id = %d, want recycled %d", next.ID(), uid)
	}
	if next.DataObject().ID() != oid {
		t.Errorf("object id = %d, want recycled %d", next.DataObject().ID(), oid)
	}
}

func TestMoveUserSequence(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	s.CreateRoom("other", nil)
	other, _ := s.Room("other")

	mover := &fakeConn{}
	u := join(t, g, mover, "main", "alice")
	witness := &fakeConn{}
	w := join(t, g, witness, "main", "bob")

	mover.reset()
	witness.reset()
	g.MoveUser(u, other)

	// mover was master of the old room and becomes master of the empty one
	want := []protocol.Tag{
		protocol.TagUserLeft,   // bob leaving mover's view of the old room
		protocol.TagChangeRoom, // ack
		protocol.TagMaster,
		protocol.TagDataObjectsSent,
	}
	if got := mover.tags(t); !tagsEqual(got, want) {
		t.Errorf("mover tags = %v, want %v", got, want)
	}

	// the witness hears the departure, then the master handoff
	want = []protocol.Tag{protocol.TagUserLeft, protocol.TagMaster}
	if got := witness.tags(t); !tagsEqual(got, want) {
		t.Errorf("witness tags = %v, want %v", got, want)
	}

	if u.Room() != other {
		t.Error("user not in destination room")
	}
	if w.Room().Master() != w {
		t.Error("old room master not handed off")
	}
}

func TestSweepEmptyRooms(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	s.CreateRoom("keep", &RoomOptions{Persistent: true})
	s.CreateRoom("drop", nil)
	occupied := s.CreateRoom("occupied", nil)
	u, code := g.CreateUser("lobby", occupied.ID(), "a", &fakeConn{}, nil)
	if code != 0 {
		t.Fatalf("CreateUser: %v", code)
	}
	g.AdmitUser(u)

	if removed := g.SweepEmptyRooms(); removed != 2 {
		t.Errorf("SweepEmptyRooms() = %d, want 2", removed)
	}
	if _, ok := s.Room("keep"); !ok {
		t.Error("persistent room swept")
	}
	if _, ok := s.Room("occupied"); !ok {
		t.Error("occupied room swept")
	}
	if _, ok := s.Room("drop"); ok {
		t.Error("empty room survived sweep")
	}
	if _, ok := s.Room("main"); ok {
		t.Error("empty default room survived sweep")
	}
}

func TestStaleConnections(t *testing.T) {
	g := newTestRegistry(t)
	fresh := &fakeConn{}
	stale := &fakeConn{}
	join(t, g, fresh, "main", "fresh")
	u := join(t, g, stale, "main", "stale")
	u.lastSeen = time.Now().Add(-time.Minute)

	conns := g.StaleConnections(10 * time.Second)
	if len(conns) != 1 || conns[0] != stale {
		t.Fatalf("StaleConnections() = %v, want the stale conn only", conns)
	}
}

func TestAutoRoomCreate(t *testing.T) {
	g := NewRegistry(10, testLogger())
	if _, err := g.CreateSession("auto", &SessionOptions{AutoRoomCreate: true}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	u, code := g.CreateUser("auto", "fresh", "a", &fakeConn{}, nil)
	if code != 0 {
		t.Fatalf("CreateUser into missing room failed: %v", code)
	}
	if u.Room() == nil || u.Room().ID() != "fresh" {
		t.Errorf("user room = %v, want auto-created \"fresh\"", u.Room())
	}

	s, _ := g.Session("auto")
	if _, ok := s.Room("fresh"); !ok {
		t.Error("auto-created room not registered")
	}
}

func TestHookFactoryRunsOnEveryRoom(t *testing.T) {
	g := NewRegistry(10, testLogger())
	var created []string
	_, err := g.CreateSession("s", &SessionOptions{
		AutoRoomCreate: true,
		HookFactory: func(r *Room) *RoomHooks {
			created = append(created, r.ID())
			r.SetPersistent(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s, _ := g.Session("s")
	s.CreateRoom("a", nil)
	if _, code := g.CreateUser("s", "b", "u", &fakeConn{}, nil); code != 0 {
		t.Fatalf("CreateUser: %v", code)
	}

	if len(created) != 2 || created[0] != "a" || created[1] != "b" {
		t.Errorf("factory saw rooms %v, want [a b]", created)
	}
	room, _ := s.Room("b")
	if !room.Persistent() {
		t.Error("factory's persistence change lost")
	}
}

func TestSystemMessageRouting(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	s.CreateRoom("side", nil)
	if _, err := g.CreateSession("other", nil); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	os, _ := g.Session("other")
	os.CreateRoom("main", nil)

	mainConn := &fakeConn{}
	sideConn := &fakeConn{}
	otherConn := &fakeConn{}
	mainUser := join(t, g, mainConn, "main", "m")
	u, code := g.CreateUser("lobby", "side", "s", sideConn, nil)
	if code != 0 {
		t.Fatalf("CreateUser: %v", code)
	}
	g.AdmitUser(u)
	ou, code := g.CreateUser("other", "main", "o", otherConn, nil)
	if code != 0 {
		t.Fatalf("CreateUser: %v", code)
	}
	g.AdmitUser(ou)

	tests := []struct {
		name string
		msg  SystemMessage
		want map[*fakeConn]int
	}{
		{
			"user",
			SystemMessage{Routing: RouteUser, UserID: mainUser.ID(), Text: "hi"},
			map[*fakeConn]int{mainConn: 1, sideConn: 0, otherConn: 0},
		},
		{
			"room",
			SystemMessage{Routing: RouteRoom, SessionID: "lobby", RoomID: "side", Text: "hi"},
			map[*fakeConn]int{mainConn: 0, sideConn: 1, otherConn: 0},
		},
		{
			"session",
			SystemMessage{Routing: RouteSession, SessionID: "lobby", Text: "hi"},
			map[*fakeConn]int{mainConn: 1, sideConn: 1, otherConn: 0},
		},
		{
			"server",
			SystemMessage{Routing: RouteServer, Text: "hi"},
			map[*fakeConn]int{mainConn: 1, sideConn: 1, otherConn: 1},
		},
		{
			"unknown user",
			SystemMessage{Routing: RouteUser, UserID: 9999, Text: "hi"},
			map[*fakeConn]int{mainConn: 0, sideConn: 0, otherConn: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mainConn.reset()
			sideConn.reset()
			otherConn.reset()
			g.SendSystemMessage(tt.msg)
			for conn, want := range tt.want {
				if got := len(conn.frames); got != want {
					t.Errorf("conn %s got %d frames, want %d", conn.RemoteAddr(), got, want)
				}
			}
		})
	}
}

func TestListJSON(t *testing.T) {
	g := newTestRegistry(t)
	s, _ := g.Session("lobby")
	s.CreateRoom("locked", &RoomOptions{Password: "pw", MaxUsers: 4})
	u := join(t, g, &fakeConn{}, "main", "alice")
	u.DataObject().SetValue(7, []byte{1, 2})

	var sessions []SessionInfo
	if err := json.Unmarshal(g.SessionListJSON(), &sessions); err != nil {
		t.Fatalf("SessionListJSON: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "lobby" || sessions[0].UserCount != 1 {
		t.Errorf("session list = %+v", sessions)
	}

	var rooms []RoomInfo
	if err := json.Unmarshal(g.RoomListJSON("lobby"), &rooms); err != nil {
		t.Fatalf("RoomListJSON: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("room list has %d entries, want 2", len(rooms))
	}
	if !rooms[0].HasPassword || rooms[0].ID != "locked" {
		t.Errorf("room list[0] = %+v, want locked room with password", rooms[0])
	}

	var users []UserInfo
	if err := json.Unmarshal(g.UserListJSON("lobby", "main"), &users); err != nil {
		t.Fatalf("UserListJSON: %v", err)
	}
	if len(users) != 1 || users[0].Name != "alice" || users[0].Room != "main" {
		t.Errorf("user list = %+v", users)
	}
	if len(users[0].DataObject.Values) != 1 {
		t.Errorf("user object values = %+v, want one key", users[0].DataObject.Values)
	}

	if got := string(g.RoomListJSON("nope")); got != "[]" {
		t.Errorf("RoomListJSON(unknown) = %q, want []", got)
	}
	if got := string(g.UserListJSON("lobby", "nope")); got != "[]" {
		t.Errorf("UserListJSON(unknown room) = %q, want []", got)
	}
}

func TestDisposeSessionDisconnectsUsers(t *testing.T) {
	g := newTestRegistry(t)
	conn := &fakeConn{}
	u := join(t, g, conn, "main", "a")

	if !g.DisposeSession("lobby") {
		t.Fatal("DisposeSession returned false")
	}
	if !u.Disposed() {
		t.Error("user survived session disposal")
	}
	if _, ok := g.Session("lobby"); ok {
		t.Error("session still registered")
	}
	sessions, rooms, users, objects := g.Counts()
	if sessions != 0 || rooms != 0 || users != 0 || objects != 0 {
		t.Errorf("Counts() = %d, %d, %d, %d, want all zero", sessions, rooms, users, objects)
	}
}
