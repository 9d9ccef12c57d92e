package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnauthorized    = "E_UNAUTHORIZED"

	// Command layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrNoPermission   = "E_NO_PERMISSION"
	ErrNoPlayer       = "E_NO_PLAYER"
	ErrNoResource     = "E_NO_RESOURCE"
	ErrLimitReached   = "E_LIMIT_REACHED"
	ErrDisabled       = "E_DISABLED"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnauthorized:    {},
	ErrBadRequest:      {},
	ErrUnknownCommand:  {},
	ErrNoPermission:    {},
	ErrNoPlayer:        {},
	ErrNoResource:      {},
	ErrLimitReached:    {},
	ErrDisabled:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
