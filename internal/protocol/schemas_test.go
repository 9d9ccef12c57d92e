package protocol_test

import (
	"encoding/json"
	"testing"

	"scrapworks.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	valid := map[string]string{
		protocol.TypeHello:   `{"type":"HELLO","protocol_version":"1.0","client_name":"admin","auth":{"token":"x"},"as_player":76561198000000001}`,
		protocol.TypeCommand: `{"type":"COMMAND","protocol_version":"1.0","id":"c1","name":"miner.craft","args":[]}`,
		protocol.TypeResult:  `{"type":"RESULT","protocol_version":"1.0","id":"c1","ok":false,"code":"E_NO_PERMISSION","lines":["nope"]}`,
	}
	for typ, raw := range valid {
		if err := protocol.Validate(typ, []byte(raw)); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}

	invalid := map[string]string{
		"missing name":  `{"type":"COMMAND","protocol_version":"1.0","id":"c1"}`,
		"bad name":      `{"type":"COMMAND","protocol_version":"1.0","id":"c1","name":"rm -rf /"}`,
		"extra field":   `{"type":"COMMAND","protocol_version":"1.0","id":"c1","name":"x","sudo":true}`,
		"args not list": `{"type":"COMMAND","protocol_version":"1.0","id":"c1","name":"x","args":"a"}`,
	}
	for name, raw := range invalid {
		if err := protocol.Validate(protocol.TypeCommand, []byte(raw)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestSchemas_ResultMsgMarshalsValid(t *testing.T) {
	b, err := json.Marshal(protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              "c9",
		OK:              true,
		Lines:           []string{"Target fridges present: 3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := protocol.Validate(protocol.TypeResult, b); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate_UnknownTypePasses(t *testing.T) {
	if err := protocol.Validate("PING", []byte(`{"type":"PING"}`)); err != nil {
		t.Fatalf("err=%v", err)
	}
}
