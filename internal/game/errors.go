package game

import "errors"

// Structural errors are programmer errors in the caller and fail loudly.
// Expected gameplay outcomes (challenge failure, insurance expiration, deck
// exhaustion) are never errors; they are result values the caller branches on.
var (
	// ErrInvalidPhase is returned when an operation is attempted outside its
	// permitted phase.
	ErrInvalidPhase = errors.New("operation not permitted in current phase")
	// ErrGameEnded is returned by any mutating call after the game reached a
	// terminal status.
	ErrGameEnded = errors.New("game has already ended")
	// ErrNotStarted is returned when operations run before Start.
	ErrNotStarted = errors.New("game not started")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNoCurrentChallenge is returned by ResolveChallenge with no active
	// challenge.
	ErrNoCurrentChallenge = errors.New("no current challenge")
	// ErrEmptySelection is returned when a challenge is resolved without any
	// selected cards.
	ErrEmptySelection = errors.New("no cards selected")
	// ErrCardNotFound is returned when a referenced card id is not in the
	// expected container.
	ErrCardNotFound = errors.New("card not found")
	// ErrNotAChallenge is returned when a non-challenge card is faced.
	ErrNotAChallenge = errors.New("card is not a challenge")
	// ErrChallengeDeckEmpty is returned by DrawChallenge mid-stage; the deck
	// is rebuilt on the next stage transition.
	ErrChallengeDeckEmpty = errors.New("challenge deck exhausted")
	// ErrNoPendingChoice is returned by SelectCard with no reward pending.
	ErrNoPendingChoice = errors.New("no pending reward choice")
	// ErrGameNotFound is returned by the engine for unknown game ids.
	ErrGameNotFound = errors.New("game not found")
)
