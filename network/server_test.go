package network

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"battlerooms/command"
	"battlerooms/game"
	"battlerooms/protocol"
	"battlerooms/room"
	"battlerooms/world"
)

type stack struct {
	srv   *httptest.Server
	m     *room.Manager
	world *world.Memory
	hub   *Hub
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := world.NewMemory("world")
	hub := NewHub(log)
	m := room.NewManager(room.Options{Logger: log}, room.Deps{World: w, Notifier: hub})
	loop := room.NewLoop(m)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	cmds := command.New(m, "", log)
	s := NewServer(m, loop, cmds, w, hub, Options{Logger: log})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		_ = m.Shutdown(context.Background())
	})

	p := func(x, y, z int) game.Point { return game.Point{World: "world", X: x, Y: y, Z: z} }
	if err := m.CreateDraft("setup", "1v1", "Arena1", "world"); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	for c, pt := range map[room.Corner]game.Point{room.Pos1: p(0, 60, 0), room.Pos2: p(10, 70, 10), room.Gate1: p(5, 61, 0), room.Gate2: p(6, 63, 0)} {
		if _, err := m.SetPoint("setup", c, pt); err != nil {
			t.Fatalf("set %s: %v", c, err)
		}
	}
	if _, err := m.Commit(ctx, "setup"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return &stack{srv: ts, m: m, world: w, hub: hub}
}

func (s *stack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *stack) join(t *testing.T, name string) (*websocket.Conn, string) {
	t.Helper()
	conn := s.dial(t)
	send(t, conn, protocol.MsgHello, protocol.Hello{V: protocol.Version, Name: name})
	env := expect(t, conn, protocol.MsgWelcome, nil)
	w, err := protocol.DecodePayload[protocol.Welcome](env)
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if w.ActorID == "" || w.Name != name {
		t.Fatalf("welcome = %+v", w)
	}
	return conn, w.ActorID
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, err := protocol.Encode(typ, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// expect reads until a message of type typ that satisfies match arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.T == typ && (match == nil || match(env.P)) {
			return env
		}
	}
}

func noticeText(want string) func(json.RawMessage) bool {
	return func(p json.RawMessage) bool {
		var n protocol.Notice
		return json.Unmarshal(p, &n) == nil && n.Text == want
	}
}

func errorCode(want string) func(json.RawMessage) bool {
	return func(p json.RawMessage) bool {
		var e protocol.Error
		return json.Unmarshal(p, &e) == nil && e.Code == want
	}
}

func TestDuelOverWebsocket(t *testing.T) {
	s := newStack(t)
	alice, _ := s.join(t, "alice")
	bob, _ := s.join(t, "bob")

	send(t, alice, protocol.MsgMove, protocol.Move{World: "world", X: 20.5, Y: 65, Z: 5.5})
	send(t, alice, protocol.MsgMove, protocol.Move{World: "world", X: 2.5, Y: 62, Z: 5.5})
	send(t, alice, protocol.MsgMove, protocol.Move{World: "world", X: 2.9, Y: 62.4, Z: 5.1})
	expect(t, alice, protocol.MsgNotice, noticeText("You have entered the Arena1 room (1v1)"))

	send(t, bob, protocol.MsgMove, protocol.Move{World: "world", X: 3.5, Y: 62, Z: 5.5})
	expect(t, bob, protocol.MsgNotice, noticeText("You have entered the Arena1 room (1v1)"))
	expect(t, bob, protocol.MsgNotice, noticeText(room.DefaultMessages().BattleBegun))
	expect(t, alice, protocol.MsgNotice, noticeText(room.DefaultMessages().BattleBegun))

	send(t, alice, protocol.MsgCommand, protocol.Command{Args: []string{"list"}})
	expect(t, alice, protocol.MsgError, errorCode("COMMANDS_DISABLED"))

	send(t, bob, protocol.MsgBlock, protocol.Block{Action: protocol.BlockBreak, World: "world", X: 5, Y: 62, Z: 0})
	expect(t, bob, protocol.MsgError, errorCode("PROTECTED_BLOCK"))

	send(t, bob, protocol.MsgDeath, protocol.Death{})
	expect(t, alice, protocol.MsgNotice, noticeText("alice has won the battle in Arena1!"))

	resp, err := http.Get(s.srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("get rooms: %v", err)
	}
	defer resp.Body.Close()
	var rooms []struct {
		Name  string `json:"name"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Arena1" || rooms[0].State != "COOLDOWN" {
		t.Fatalf("rooms = %+v, want Arena1 in COOLDOWN", rooms)
	}
}

func TestCommandsAndBlocks(t *testing.T) {
	s := newStack(t)
	conn, _ := s.join(t, "builder")

	send(t, conn, protocol.MsgCommand, protocol.Command{Args: []string{"create", "2v2", "Squad"}})
	expect(t, conn, protocol.MsgError, errorCode("BAD_REQUEST"))

	send(t, conn, protocol.MsgMove, protocol.Move{World: "world", X: 50, Y: 60, Z: 50})
	send(t, conn, protocol.MsgCommand, protocol.Command{Args: []string{"create", "2v2", "Squad"}})
	expect(t, conn, protocol.MsgNotice, noticeText("Started creating room: Squad (2v2)"))

	send(t, conn, protocol.MsgCommand, protocol.Command{Args: []string{"cre"}, Complete: true})
	env := expect(t, conn, protocol.MsgComplete, nil)
	c, err := protocol.DecodePayload[protocol.Completions](env)
	if err != nil || len(c.Options) != 1 || c.Options[0] != "create" {
		t.Fatalf("completions = %+v, %v", c, err)
	}

	send(t, conn, protocol.MsgBlock, protocol.Block{Action: protocol.BlockPlace, X: 30, Y: 64, Z: 30, Material: "stone"})
	send(t, conn, protocol.MsgBlock, protocol.Block{Action: protocol.BlockPlace, X: 0, Y: 65, Z: 5, Material: "stone"})
	expect(t, conn, protocol.MsgError, errorCode("PROTECTED_BLOCK"))
	got, err := s.world.ReadCell(context.Background(), game.Point{World: "world", X: 30, Y: 64, Z: 30})
	if err != nil || got != "stone" {
		t.Fatalf("placed cell = %q, %v; want stone", got, err)
	}

	send(t, conn, "teleport", protocol.Notice{Text: "x"})
	expect(t, conn, protocol.MsgError, errorCode("BAD_REQUEST"))
}

func TestHandshakeRequiresHello(t *testing.T) {
	s := newStack(t)
	conn := s.dial(t)
	send(t, conn, protocol.MsgMove, protocol.Move{World: "world"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	s := newStack(t)
	conn, id := s.join(t, "alice")
	if s.hub.DisplayName(id) != "alice" {
		t.Fatalf("DisplayName = %q, want alice", s.hub.DisplayName(id))
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.DisplayName(id) != id {
		t.Fatal("display name kept after disconnect")
	}
}
