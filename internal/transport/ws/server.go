package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scrapworks.ai/internal/console"
	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/protocol"
)

// Loop runs functions on the host loop goroutine.
type Loop interface {
	Submit(ctx context.Context, fn func()) error
}

// PlayerFunc looks up a connected player. It is called on the host loop.
type PlayerFunc func(id uint64) (host.Player, bool)

type Options struct {
	// Token grants admin auth level. Empty means loopback clients are admins.
	Token string
	// AllowRemote accepts non-loopback clients.
	AllowRemote bool
}

// Server is the admin console over websocket: one HELLO, then COMMAND/RESULT pairs.
type Server struct {
	loop    Loop
	router  *console.Router
	players PlayerFunc
	opts    Options
	log     *log.Logger

	sessions atomic.Int64

	upgrader websocket.Upgrader
}

func NewServer(loop Loop, router *console.Router, players PlayerFunc, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		loop:    loop,
		router:  router,
		players: players,
		opts:    opts,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		loopback := isLoopback(r.RemoteAddr)
		if !loopback && !s.opts.AllowRemote {
			http.Error(rw, "console is loopback only", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess, ok := s.handshake(ctx, conn, loopback)
		if !ok {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		s.log.Printf("console session %s opened (%s, auth %d)", sess.id, sess.caller, sess.caller.AuthLevel)
		defer s.log.Printf("console session %s closed", sess.id)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := s.handle(ctx, conn, sess, msg); err != nil {
				return
			}
		}
	}
}

type session struct {
	id     string
	caller console.Caller
}

func (s *Server) handle(ctx context.Context, conn *websocket.Conn, sess *session, msg []byte) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return writeError(conn, protocol.ErrProtoBadRequest, "bad json")
	}
	if base.Type != protocol.TypeCommand {
		return writeError(conn, protocol.ErrProtoBadRequest, "expected COMMAND")
	}
	if err := protocol.Validate(protocol.TypeCommand, msg); err != nil {
		return writeError(conn, protocol.ErrProtoBadRequest, err.Error())
	}
	var cmd protocol.CommandMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return writeError(conn, protocol.ErrProtoBadRequest, "bad command")
	}
	if cmd.ProtocolVersion != protocol.Version {
		return writeError(conn, protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	var resp console.Response
	if err := s.loop.Submit(ctx, func() {
		resp = s.router.Dispatch(sess.caller, cmd.Name, cmd.Args)
	}); err != nil {
		return writeJSON(conn, protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			ID:              cmd.ID,
			Code:            protocol.ErrInternal,
			Lines:           []string{err.Error()},
		})
	}
	return writeJSON(conn, protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              cmd.ID,
		OK:              resp.OK,
		Code:            resp.Code,
		Lines:           resp.Lines,
		Suggestion:      resp.Suggestion,
	})
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, loopback bool) (*session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, false
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, "bad HELLO")
		return nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil, false
	}

	token := ""
	if hello.Auth != nil {
		token = strings.TrimSpace(hello.Auth.Token)
	}
	auth := 0
	switch {
	case s.opts.Token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) == 1:
		auth = console.AdminAuthLevel
	case s.opts.Token != "" && token != "":
		_ = writeError(conn, protocol.ErrUnauthorized, "bad token")
		return nil, false
	case s.opts.Token == "" && loopback:
		auth = console.AdminAuthLevel
	}

	caller := console.Caller{AuthLevel: auth}
	if hello.AsPlayer != 0 {
		// Acting as a player spends that player's resources and inherits its admin flag.
		if auth < console.AdminAuthLevel {
			_ = writeError(conn, protocol.ErrUnauthorized, "as_player requires admin auth")
			return nil, false
		}
		var p host.Player
		var found bool
		if err := s.loop.Submit(ctx, func() { p, found = s.players(hello.AsPlayer) }); err != nil || !found {
			_ = writeError(conn, protocol.ErrNoPlayer, "player not connected")
			return nil, false
		}
		caller.Player = p
	}

	sess := &session{id: uuid.NewString(), caller: caller}
	if err := writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		Commands:        s.router.Commands(),
	}); err != nil {
		return nil, false
	}
	return sess, true
}

func isLoopback(remoteAddr string) bool {
	h, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		h = remoteAddr
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeError(conn *websocket.Conn, code, message string) error {
	return writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
