package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"scrapworks.ai/internal/protocol"
)

// consoleCmd runs one command given on the command line, or reads commands from
// stdin one per line.
func consoleCmd(args []string) {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	url := fs.String("url", "ws://127.0.0.1:8080/console", "console ws url")
	token := fs.String("token", os.Getenv("SW_CONSOLE_TOKEN"), "console token")
	asPlayer := fs.Uint64("as_player", 0, "run commands as this connected player")
	_ = fs.Parse(args)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "admin",
		AsPlayer:        *asPlayer,
	}
	if t := strings.TrimSpace(*token); t != "" {
		hello.Auth = &protocol.HelloAuth{Token: t}
	}
	if err := conn.WriteJSON(hello); err != nil {
		fmt.Fprintln(os.Stderr, "send HELLO:", err)
		os.Exit(1)
	}
	msg, err := readReply(conn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		var e protocol.ErrorMsg
		if json.Unmarshal(msg, &e) == nil && e.Type == protocol.TypeError {
			fmt.Fprintf(os.Stderr, "%s: %s\n", e.Code, e.Message)
		} else {
			fmt.Fprintf(os.Stderr, "unexpected reply: %s\n", msg)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		if !runCommand(conn, 1, fs.Args()) {
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "session %s; commands: %s\n", welcome.SessionID, strings.Join(welcome.Commands, ", "))
	sc := bufio.NewScanner(os.Stdin)
	seq := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		seq++
		runCommand(conn, seq, fields)
	}
}

func runCommand(conn *websocket.Conn, seq int, fields []string) bool {
	cmd := protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		ID:              "c" + strconv.Itoa(seq),
		Name:            fields[0],
		Args:            fields[1:],
	}
	if err := conn.WriteJSON(cmd); err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		return false
	}
	msg, err := readReply(conn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}
	base, _ := protocol.DecodeBase(msg)
	if base.Type == protocol.TypeError {
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		fmt.Fprintf(os.Stderr, "%s: %s\n", e.Code, e.Message)
		return false
	}
	var res protocol.ResultMsg
	if err := json.Unmarshal(msg, &res); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		return false
	}
	for _, l := range res.Lines {
		fmt.Println(l)
	}
	if !res.OK {
		fmt.Fprintln(os.Stderr, "error:", res.Code)
	}
	return res.OK
}

func readReply(conn *websocket.Conn) ([]byte, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if _, err := protocol.DecodeBase(msg); err != nil {
		return nil, fmt.Errorf("bad reply: %w", err)
	}
	return msg, nil
}
