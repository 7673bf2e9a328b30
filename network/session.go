package network

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"battlerooms/command"
	apperrors "battlerooms/errors"
	"battlerooms/game"
	"battlerooms/protocol"
	"battlerooms/room"
)

// session is the read side of one connection. Only readLoop touches its
// fields after setup.
type session struct {
	srv   *Server
	conn  *websocket.Conn
	c     *client
	world string
	// last is the most recent cell reported; its world is empty before the
	// first move.
	last game.Point
}

func (s *session) readLoop(ctx context.Context) {
	conn := s.conn
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.srv.log.Info("read", slog.String("actor", s.c.id), slog.Any("error", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		s.handle(ctx, msg)
	}
}

func (s *session) handle(ctx context.Context, msg []byte) {
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		s.srv.reportError(s.c.id, apperrors.Wrap(apperrors.CodeBadRequest, "Malformed message.", err))
		return
	}
	switch env.T {
	case protocol.MsgMove:
		mv, err := protocol.DecodePayload[protocol.Move](env)
		if err != nil {
			s.badPayload(err)
			return
		}
		s.move(ctx, mv)
	case protocol.MsgDeath:
		s.srv.loop.Post(ctx, room.Eliminate{Actor: s.c.id})
	case protocol.MsgCommand:
		cmd, err := protocol.DecodePayload[protocol.Command](env)
		if err != nil {
			s.badPayload(err)
			return
		}
		s.command(ctx, cmd)
	case protocol.MsgBlock:
		b, err := protocol.DecodePayload[protocol.Block](env)
		if err != nil {
			s.badPayload(err)
			return
		}
		s.block(ctx, b)
	default:
		s.srv.reportError(s.c.id, apperrors.New(apperrors.CodeBadRequest, "Unknown message type "+env.T+"."))
	}
}

func (s *session) badPayload(err error) {
	s.srv.reportError(s.c.id, apperrors.Wrap(apperrors.CodeBadRequest, "Malformed payload.", err))
}

// move forwards a sample only when it lands in a new cell.
func (s *session) move(ctx context.Context, mv protocol.Move) {
	if mv.World != "" {
		s.world = mv.World
	}
	cell := game.CellOf(s.world, mv.X, mv.Y, mv.Z)
	if cell == s.last {
		return
	}
	from := s.last
	s.last = cell
	s.srv.loop.Post(ctx, room.Move{Actor: s.c.id, From: from, To: cell})
}

func (s *session) command(ctx context.Context, cmd protocol.Command) {
	if cmd.Complete {
		var options []string
		if s.srv.loop.Do(ctx, func(*room.Manager) { options = s.srv.commands.Complete(cmd.Args) }) {
			s.srv.hub.sendEnvelope(s.c.id, protocol.MsgComplete, protocol.Completions{Options: options})
		}
		return
	}

	var (
		lines []string
		err   error
	)
	caller := command.Caller{Actor: s.c.id, Position: s.last}
	if !s.srv.loop.Do(ctx, func(*room.Manager) { lines, err = s.srv.commands.Run(ctx, caller, cmd.Args) }) {
		return
	}
	if err != nil {
		s.srv.reportError(s.c.id, err)
		return
	}
	for _, l := range lines {
		s.srv.hub.Send(s.c.id, l)
	}
}

func (s *session) block(ctx context.Context, b protocol.Block) {
	world := b.World
	if world == "" {
		world = s.world
	}
	p := game.Point{World: world, X: b.X, Y: b.Y, Z: b.Z}

	var content string
	switch b.Action {
	case protocol.BlockPlace:
		if b.Material == "" {
			s.srv.reportError(s.c.id, apperrors.New(apperrors.CodeBadRequest, "Place needs a material."))
			return
		}
		content = b.Material
	case protocol.BlockBreak:
		content = game.EmptyCell
	default:
		s.srv.reportError(s.c.id, apperrors.New(apperrors.CodeBadRequest, "Unknown block action "+b.Action+"."))
		return
	}

	var err error
	ok := s.srv.loop.Do(ctx, func(m *room.Manager) {
		if m.IsProtected(p) {
			err = apperrors.ErrProtectedBlock
			return
		}
		if werr := s.srv.world.WriteCell(ctx, p, content); werr != nil {
			err = apperrors.Wrap(apperrors.CodeBadRequest, "The block could not be changed.", werr)
		}
	})
	if ok && err != nil {
		s.srv.reportError(s.c.id, err)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-s.c.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}
