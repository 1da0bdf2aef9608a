package state

import (
	"io"
	"log/slog"
	"testing"

	"github.com/hallway-dev/hallway/pkg/protocol"
)

// fakeConn records outbound frames for inspection.
type fakeConn struct {
	frames   [][]byte
	disposed bool
}

func (c *fakeConn) Send(frame []byte)  { c.frames = append(c.frames, frame) }
func (c *fakeConn) Dispose()           { c.disposed = true }
func (c *fakeConn) RemoteAddr() string { return "fake" }

// tags returns the message tag of every recorded frame in order.
func (c *fakeConn) tags(t *testing.T) []protocol.Tag {
	t.Helper()
	out := make([]protocol.Tag, 0, len(c.frames))
	for i, f := range c.frames {
		if len(f) < 5 {
			t.Fatalf("frame %d too short: %d bytes", i, len(f))
		}
		out = append(out, protocol.Tag(f[4]))
	}
	return out
}

func (c *fakeConn) reset() { c.frames = nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	g := NewRegistry(100, testLogger())
	if _, err := g.CreateSession("lobby", &SessionOptions{Name: "Lobby"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s, _ := g.Session("lobby")
	s.CreateRoom("main", &RoomOptions{MaxUsers: 10})
	return g
}

// join runs the full admission flow for a test user.
func join(t *testing.T, g *Registry, conn Conn, room, name string) *User {
	t.Helper()
	u, code := g.CreateUser("lobby", room, name, conn, nil)
	if code != 0 {
		t.Fatalf("CreateUser(%q, %q) failed with code %v", room, name, code)
	}
	g.AdmitUser(u)
	return u
}

func tagsEqual(a, b []protocol.Tag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
