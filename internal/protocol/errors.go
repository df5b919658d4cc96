package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoUnsupported = "E_PROTO_UNSUPPORTED"

	// Request layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownWorld = "E_UNKNOWN_WORLD"
	ErrUnknownBlock = "E_UNKNOWN_BLOCK"
	ErrNoPermission = "E_NO_PERMISSION"
	ErrBusy         = "E_BUSY"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoUnsupported: {},
	ErrBadRequest:       {},
	ErrUnknownWorld:     {},
	ErrUnknownBlock:     {},
	ErrNoPermission:     {},
	ErrBusy:             {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
