package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scrapworks.ai/internal/console"
	"scrapworks.ai/internal/craft"
	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/miner"
	"scrapworks.ai/internal/protocol"
	"scrapworks.ai/internal/sim/catalogs"
	"scrapworks.ai/internal/sim/hostsim"
	"scrapworks.ai/internal/sim/tuning"
)

func startServer(t *testing.T, opts Options) (*hostsim.World, *httptest.Server) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w := hostsim.New(hostsim.Config{FrameRateHz: 50}, cats.Items, nil)
	cfgPath := filepath.Join(t.TempDir(), "tuning.yaml")
	cfg := tuning.Defaults()
	if err := tuning.Save(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}
	p := miner.New(w, cfg, miner.Options{ConfigPath: cfgPath})
	svc := craft.NewService(craft.Deps{Config: p, Items: w, Perms: w.Permissions()})
	svc.RegisterPermissions()
	w.Attach(p)
	w.Connect(42, "alice", "en")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	players := func(id uint64) (host.Player, bool) {
		pl, ok := w.Player(id)
		if !ok {
			return nil, false
		}
		return pl, true
	}
	srv := NewServer(w, console.NewRouter(p, svc, nil, nil), players, opts, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		cancel()
		<-done
	})
	return w, hs
}

func dial(t *testing.T, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func hello(token string, asPlayer uint64) protocol.HelloMsg {
	h := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test", AsPlayer: asPlayer}
	if token != "" {
		h.Auth = &protocol.HelloAuth{Token: token}
	}
	return h
}

func command(id, name string) protocol.CommandMsg {
	return protocol.CommandMsg{Type: protocol.TypeCommand, ProtocolVersion: protocol.Version, ID: id, Name: name}
}

func TestServer_HandshakeAndAdminCommand(t *testing.T) {
	_, hs := startServer(t, Options{Token: "s3cret"})
	conn := dial(t, hs)

	send(t, conn, hello("s3cret", 0))
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" {
		t.Fatalf("welcome=%+v", welcome)
	}
	if !strings.Contains(strings.Join(welcome.Commands, ","), "fsg.scan") {
		t.Fatalf("commands=%v", welcome.Commands)
	}

	send(t, conn, command("c1", "fsg.scan"))
	var res protocol.ResultMsg
	recv(t, conn, &res)
	if res.ID != "c1" || !res.OK || len(res.Lines) != 1 || res.Lines[0] != "Target fridges present: 0" {
		t.Fatalf("result=%+v", res)
	}

	send(t, conn, command("c2", "fsg.scna"))
	recv(t, conn, &res)
	if res.ID != "c2" || res.OK || res.Code != protocol.ErrUnknownCommand || res.Suggestion != "fsg.scan" {
		t.Fatalf("result=%+v", res)
	}
}

func TestServer_BadTokenRejected(t *testing.T) {
	_, hs := startServer(t, Options{Token: "s3cret"})
	conn := dial(t, hs)

	send(t, conn, hello("wrong", 0))
	var e protocol.ErrorMsg
	recv(t, conn, &e)
	if e.Type != protocol.TypeError || e.Code != protocol.ErrUnauthorized {
		t.Fatalf("err=%+v", e)
	}
}

func TestServer_NoTokenIsNotAdmin(t *testing.T) {
	_, hs := startServer(t, Options{Token: "s3cret"})
	conn := dial(t, hs)

	send(t, conn, hello("", 0))
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)

	send(t, conn, command("c1", "miner_wipe"))
	var res protocol.ResultMsg
	recv(t, conn, &res)
	if res.OK || res.Code != protocol.ErrNoPermission {
		t.Fatalf("result=%+v", res)
	}
}

func TestServer_AsPlayerCraft(t *testing.T) {
	_, hs := startServer(t, Options{})
	conn := dial(t, hs)

	send(t, conn, hello("", 42))
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)

	send(t, conn, command("c1", "miner.craft"))
	var res protocol.ResultMsg
	recv(t, conn, &res)
	if res.OK || res.Code != protocol.ErrNoResource || len(res.Lines) < 2 {
		t.Fatalf("result=%+v", res)
	}
}

func TestServer_AsPlayerRequiresAdminAuth(t *testing.T) {
	w, hs := startServer(t, Options{Token: "s3cret"})
	if err := w.Submit(context.Background(), func() {
		pl, _ := w.Player(42)
		pl.SetAdmin(true)
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	conn := dial(t, hs)
	send(t, conn, hello("", 42))
	var e protocol.ErrorMsg
	recv(t, conn, &e)
	if e.Type != protocol.TypeError || e.Code != protocol.ErrUnauthorized {
		t.Fatalf("unauthenticated as_player accepted: %+v", e)
	}

	conn = dial(t, hs)
	send(t, conn, hello("s3cret", 42))
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("welcome=%+v", welcome)
	}
	send(t, conn, command("c1", "miner_wipe"))
	var res protocol.ResultMsg
	recv(t, conn, &res)
	if !res.OK {
		t.Fatalf("admin player with token: %+v", res)
	}
}

func TestServer_UnknownPlayerRejected(t *testing.T) {
	_, hs := startServer(t, Options{})
	conn := dial(t, hs)

	send(t, conn, hello("", 7))
	var e protocol.ErrorMsg
	recv(t, conn, &e)
	if e.Code != protocol.ErrNoPlayer {
		t.Fatalf("err=%+v", e)
	}
}

func TestServer_MalformedCommand(t *testing.T) {
	_, hs := startServer(t, Options{})
	conn := dial(t, hs)

	send(t, conn, hello("", 0))
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)

	send(t, conn, map[string]any{"type": protocol.TypeCommand, "protocol_version": protocol.Version})
	var e protocol.ErrorMsg
	recv(t, conn, &e)
	if e.Type != protocol.TypeError || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("err=%+v", e)
	}
}

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopback(in); got != want {
			t.Fatalf("%s: got %v", in, got)
		}
	}
}
