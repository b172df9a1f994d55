package domain

import "errors"

// Expected failures are sentinel values so callers can branch with
// errors.Is; none of these should ever terminate the process.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrUnknownGame    = errors.New("unknown game")
	ErrInvalidInput   = errors.New("invalid input")

	ErrAlreadyQueued  = errors.New("player already in queue")
	ErrAlreadyInMatch = errors.New("player already in match")
	ErrNotQueued      = errors.New("player not in queue")
	ErrMatchCompleted = errors.New("match already completed")
	ErrNotParticipant = errors.New("winner is not a match participant")

	// ErrNoOpponent is a normal "try again later" outcome, not a defect.
	ErrNoOpponent = errors.New("no opponent available")
)
