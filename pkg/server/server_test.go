package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hallway-dev/hallway/pkg/protocol"
	"github.com/hallway-dev/hallway/pkg/state"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	reg := state.NewRegistry(100, testLogger())
	reg.Lock()
	sess, err := reg.CreateSession("lobby", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	sess.CreateRoom("main", &state.RoomOptions{Persistent: true})
	reg.Unlock()

	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.TCPAddr = "127.0.0.1:0"

	srv, err := New(cfg, reg, testLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return srv
}

func TestServerWebSocketJoin(t *testing.T) {
	srv := startTestServer(t)

	url := "ws://" + srv.HTTPAddr() + srv.cfg.WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer ws.Close()

	frame := protocol.EncodeFrame(joinPayload("lobby", "main", "alice", nil))
	if err := ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("write join: %v", err)
	}

	want := []protocol.Tag{protocol.TagMaster, protocol.TagJoin, protocol.TagDataObjectsSent}
	for _, tag := range want {
		_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(msg) < protocol.FrameHeaderSize+1 {
			t.Fatalf("short frame: %d bytes", len(msg))
		}
		if got := protocol.Tag(msg[protocol.FrameHeaderSize]); got != tag {
			t.Fatalf("tag = %v, want %v", got, tag)
		}
	}
}

func TestServerTCPPolicyProbe(t *testing.T) {
	srv := startTestServer(t)

	nc, err := net.Dial("tcp", srv.TCPAddr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	if _, err := nc.Write([]byte("<policy-file-request/>\x00")); err != nil {
		t.Fatalf("write probe: %v", err)
	}
	_ = nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := bufio.NewReader(nc).ReadString(0)
	if err != nil {
		t.Fatalf("read policy: %v", err)
	}
	if !strings.Contains(reply, "cross-domain-policy") {
		t.Errorf("reply = %q, want the policy document", reply)
	}
}

func TestServerTCPJoin(t *testing.T) {
	srv := startTestServer(t)

	nc, err := net.Dial("tcp", srv.TCPAddr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	frame := protocol.EncodeFrame(joinPayload("lobby", "main", "bob", nil))
	if _, err := nc.Write(frame); err != nil {
		t.Fatalf("write join: %v", err)
	}

	_ = nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	header := make([]byte, protocol.FrameHeaderSize+1)
	if _, err := io.ReadFull(nc, header); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := protocol.Tag(header[protocol.FrameHeaderSize]); got != protocol.TagMaster {
		t.Errorf("first tag = %v, want %v", got, protocol.TagMaster)
	}
}

func TestServerHTTPEndpoints(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.HTTPAddr()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
		if path == "/metrics" && !strings.Contains(string(body), "hallway_users") {
			t.Errorf("metrics output missing gauges: %.200s", body)
		}
	}
}

func TestBootstrapSessions(t *testing.T) {
	reg := state.NewRegistry(10, testLogger())
	sessions := []SessionConfig{{
		ID:             "lobby",
		Name:           "Lobby",
		AutoRoomCreate: true,
		Rooms: []RoomConfig{
			{ID: "main", MaxUsers: 5, Persistent: true},
			{ID: "vip", Password: "secret"},
		},
	}}

	if err := BootstrapSessions(reg, sessions); err != nil {
		t.Fatalf("BootstrapSessions: %v", err)
	}

	reg.Lock()
	s, ok := reg.Session("lobby")
	if !ok {
		reg.Unlock()
		t.Fatal("session not created")
	}
	if s.Name() != "Lobby" || !s.AutoRoomCreate() {
		t.Errorf("session = %q auto=%v", s.Name(), s.AutoRoomCreate())
	}
	rooms := s.Rooms()
	if len(rooms) != 2 {
		reg.Unlock()
		t.Fatalf("rooms = %d, want 2", len(rooms))
	}
	main, _ := s.Room("main")
	if main.MaxUsers() != 5 || !main.Persistent() {
		t.Errorf("main = max %d persistent %v", main.MaxUsers(), main.Persistent())
	}
	vip, _ := s.Room("vip")
	if !vip.HasPassword() || !vip.CheckPassword("secret") {
		t.Error("vip password not applied")
	}
	reg.Unlock()

	// a clashing session id surfaces as an error; BootstrapSessions takes
	// the registry lock itself
	if err := BootstrapSessions(reg, sessions); err == nil {
		t.Error("duplicate bootstrap accepted")
	}
}

func TestServerShutdownIsIdempotent(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
