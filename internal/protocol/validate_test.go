package protocol

import (
	"errors"
	"testing"
)

func TestValidate_Samples(t *testing.T) {
	ok := []string{
		`{"type":"HELLO","protocol_version":"1.0","server_name":"survival","worlds":["world","world_nether"]}`,
		`{"type":"PLACE","id":"1","actor":{"id":"6f1c2a8e-1111-4d5e-9a6b-000000000001","name":"alex"},"block":{"world":"world","pos":[1,64,-3],"block":"BEDROCK"}}`,
		`{"type":"BREAK","id":"2","actor":{"id":"6f1c2a8e-1111-4d5e-9a6b-000000000001","permissions":["unbreakable.bypass"]},"block":{"world":"world","pos":[1,64,-3],"block":"BEDROCK"}}`,
		`{"type":"EXPLODE","id":"3","blocks":[]}`,
		`{"type":"PISTON","id":"4","blocks":[{"world":"world","pos":[0,0,0],"block":"STONE"}]}`,
		`{"type":"REMOVE","id":"5","world":"world","pos":[0,0,0]}`,
		`{"type":"REMOVE","id":"5b","world":"world","pos":[2147483647,0,-2147483648]}`,
		`{"type":"COMMAND","id":"6","actor":{"id":"x"},"world":"world","args":["check"],"target":{"world":"world","pos":[0,0,0],"block":"BEDROCK"}}`,
		`{"type":"COMPLETE","id":"7","actor":{"id":"x"},"args":["a"]}`,
	}
	for _, raw := range ok {
		if _, err := Validate([]byte(raw)); err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	bad := []string{
		`{"type":"HELLO","protocol_version":"1.0"}`,
		`{"type":"HELLO","protocol_version":"1.0","server_name":"s","worlds":["a;b"]}`,
		`{"type":"BREAK","id":"2","actor":{"id":"x"},"block":{"world":"world","pos":[1,64],"block":"BEDROCK"}}`,
		`{"type":"BREAK","id":"2","actor":{"id":"x"},"block":{"world":"world","pos":[1.5,64,0],"block":"BEDROCK"}}`,
		`{"type":"PLACE","id":"","actor":{"id":"x"},"block":{"world":"world","pos":[1,2,3],"block":"BEDROCK"}}`,
		`{"type":"REMOVE","id":"5","pos":[0,0,0]}`,
		`{"type":"PLACE","id":"6","actor":{"id":"x"},"block":{"world":"world","pos":[8589934592,64,0],"block":"BEDROCK"}}`,
		`{"type":"REMOVE","id":"7","world":"world","pos":[0,-2147483649,0]}`,
	}
	for _, raw := range bad {
		if _, err := Validate([]byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
	if _, err := Validate([]byte(`{"type":"VERDICT","id":"1"}`)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Validate([]byte(`not json`)); err == nil {
		t.Fatalf("expected json error")
	}
}

func TestDecodeBase(t *testing.T) {
	b, err := DecodeBase([]byte(`{"type":"BREAK","id":"42"}`))
	if err != nil || b.Type != TypeBreak || b.ID != "42" {
		t.Fatalf("base=%+v err=%v", b, err)
	}
}
