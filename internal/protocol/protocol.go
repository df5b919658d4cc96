package protocol

import "encoding/json"

const Version = "1.0"

// Message types, host -> service.
const (
	TypeHello    = "HELLO"
	TypePlace    = "PLACE"
	TypeBreak    = "BREAK"
	TypeExplode  = "EXPLODE"
	TypePiston   = "PISTON"
	TypeRemove   = "REMOVE"
	TypeCommand  = "COMMAND"
	TypeComplete = "COMPLETE"
)

// Message types, service -> host.
const (
	TypeWelcome  = "WELCOME"
	TypeVerdict  = "VERDICT"
	TypeReply    = "REPLY"
	TypeFeedback = "FEEDBACK"
	TypeError    = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ID              string `json:"id,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
