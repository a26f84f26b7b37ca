package ohhell

import "errors"

// Construction errors.
var (
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrTooManyPlayers   = errors.New("too many players")
)

// Bidding errors.
var (
	ErrDealingStageActive = errors.New("dealing stage is active")
	ErrAlreadyBidded      = errors.New("player already bidded")
	ErrBidOutOfRange      = errors.New("bid out of range")
)

// Turn errors.
var (
	ErrBiddingStageActive = errors.New("bidding stage is active")
	ErrNotYourCard        = errors.New("card is not in your hand")
)

// Shared errors.
var ErrInvalidPlayer = errors.New("invalid player")

// NotYourTurnError is returned when a player acts out of order. Expected
// names the player whose turn it actually is.
type NotYourTurnError struct {
	Expected string
}

func (e *NotYourTurnError) Error() string {
	return "not your turn, expected " + e.Expected
}

// IsRuleError reports whether err is one of the engine's game-rule errors,
// as opposed to a transport or infrastructure failure.
func IsRuleError(err error) bool {
	var notYourTurn *NotYourTurnError
	switch {
	case errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrTooManyPlayers),
		errors.Is(err, ErrDealingStageActive),
		errors.Is(err, ErrAlreadyBidded),
		errors.Is(err, ErrBidOutOfRange),
		errors.Is(err, ErrBiddingStageActive),
		errors.Is(err, ErrNotYourCard),
		errors.Is(err, ErrInvalidPlayer),
		errors.As(err, &notYourTurn):
		return true
	}
	return false
}
