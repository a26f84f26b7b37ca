package server

import (
	"errors"

	"github.com/vctt94/ohhell/pkg/ohhell"
)

// Lobby errors.
var (
	ErrInvalidLobby       = errors.New("this lobby doesn't exist")
	ErrWrongLobby         = errors.New("player doesn't belong to this lobby")
	ErrGameNotStarted     = errors.New("game hasn't started yet")
	ErrGameAlreadyStarted = errors.New("game has already started")
)

// Protocol and transport errors.
var (
	ErrPlayerDisconnected          = errors.New("player disconnected")
	ErrInvalidWebsocketMessageType = errors.New("invalid websocket message type")
	ErrUnexpectedValidMessage      = errors.New("unexpected message for the current state")
	ErrUnexpectedJSONMessage       = errors.New("unexpected json message")
	ErrUnauthorized                = errors.New("unauthorized")
)

// DatabaseError wraps a storage failure so it maps to its own close code.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return "database error: " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// WebSocket close codes sent with fatal errors.
const (
	CloseGoingAway       = 1001
	CloseUnsupportedData = 1003
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
	CloseUnauthorized    = 3000
)

// CloseCode maps an error to the close code its close frame carries.
func CloseCode(err error) int {
	var dbErr *DatabaseError
	switch {
	case errors.Is(err, ErrPlayerDisconnected):
		return CloseGoingAway
	case errors.Is(err, ErrInvalidWebsocketMessageType):
		return CloseUnsupportedData
	case errors.Is(err, ErrUnauthorized):
		return CloseUnauthorized
	case errors.As(err, &dbErr):
		return CloseInternalError
	default:
		// Lobby, turn, bid and protocol errors.
		return ClosePolicyViolation
	}
}

// recoverable reports whether err is a game-rule or lobby error that is
// answered with an Error message instead of closing the socket.
func recoverable(err error) bool {
	if ohhell.IsRuleError(err) {
		return true
	}
	switch {
	case errors.Is(err, ErrInvalidLobby),
		errors.Is(err, ErrWrongLobby),
		errors.Is(err, ErrGameNotStarted),
		errors.Is(err, ErrGameAlreadyStarted):
		return true
	}
	return false
}
