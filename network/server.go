// Package network is the websocket transport between clients and the room
// manager.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"battlerooms/command"
	apperrors "battlerooms/errors"
	"battlerooms/game"
	"battlerooms/protocol"
	"battlerooms/room"
)

const (
	readLimit      = 1 << 20 // 1MB
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = 25 * time.Second
	helloTimeout   = 10 * time.Second
	requestTimeout = 5 * time.Second
)

// Server upgrades HTTP requests to websocket sessions and turns client
// messages into room events and commands.
type Server struct {
	manager      *room.Manager
	loop         *room.Loop
	commands     *command.Dispatcher
	world        room.World
	hub          *Hub
	defaultWorld string
	log          *slog.Logger
	upgrader     websocket.Upgrader
}

type Options struct {
	// DefaultWorld is used when a hello names no world.
	DefaultWorld string
	// CheckOrigin overrides the upgrader's origin check. Nil allows all.
	CheckOrigin func(*http.Request) bool
	Logger      *slog.Logger
}

func NewServer(m *room.Manager, loop *room.Loop, cmds *command.Dispatcher, w room.World, hub *Hub, opts Options) *Server {
	if opts.DefaultWorld == "" {
		opts.DefaultWorld = game.DefaultWorld
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		manager:      m,
		loop:         loop,
		commands:     cmds,
		world:        w,
		hub:          hub,
		defaultWorld: opts.DefaultWorld,
		log:          opts.Logger,
		upgrader:     websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}
}

// Handler serves the websocket endpoint at /ws and a room listing at /rooms.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("GET /rooms", s.serveRooms)
	return mux
}

func (s *Server) serveRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.manager.List()); err != nil {
		s.log.Error("encode room list", slog.Any("error", err))
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(readLimit)
	hello, err := readHello(conn)
	if err != nil {
		s.log.Info("handshake failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	sess := &session{
		srv:   s,
		conn:  conn,
		world: hello.World,
		c: &client{
			id:   uuid.NewString(),
			name: hello.Name,
			send: make(chan []byte, sendBuffer),
		},
	}
	if sess.world == "" {
		sess.world = s.defaultWorld
	}
	if sess.c.name == "" {
		sess.c.name = sess.c.id
	}
	s.hub.register(sess.c)
	s.hub.sendEnvelope(sess.c.id, protocol.MsgWelcome, protocol.Welcome{ActorID: sess.c.id, Name: sess.c.name})
	s.log.Info("actor connected", slog.String("actor", sess.c.id), slog.String("name", sess.c.name))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop()
	}()

	sess.readLoop(r.Context())

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	s.loop.Post(ctx, room.Disconnect{Actor: sess.c.id})
	s.hub.unregister(sess.c.id)
	<-writerDone
	s.log.Info("actor disconnected", slog.String("actor", sess.c.id))
}

func readHello(conn *websocket.Conn) (protocol.Hello, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.Hello{}, err
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		return protocol.Hello{}, err
	}
	if env.T != protocol.MsgHello {
		return protocol.Hello{}, errors.New("first message must be hello")
	}
	return protocol.DecodePayload[protocol.Hello](env)
}

// reportError sends err to the actor that caused it.
func (s *Server) reportError(actor string, err error) {
	msg := err.Error()
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		s.log.Error("request failed", slog.String("actor", actor), slog.Any("error", err))
	}
	s.hub.sendEnvelope(actor, protocol.MsgError, protocol.Error{Code: string(code), Message: msg})
}
