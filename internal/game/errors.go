// internal/game/errors.go
package game

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/tysiac/internal/models"
)

// Rejection kinds. Compare with errors.Is; the concrete error carries the detail.
var (
	ErrNotAMultipleOfFive     = errors.New("not a multiple of 5")
	ErrNotAValidPlayer        = models.ErrNotAValidPlayer
	ErrMissingValue           = errors.New("missing value")
	ErrScoreTooHigh           = errors.New("score too high")
	ErrPlayingBidMustBeHigher = errors.New("playing bid must be at least the winning bid")
	ErrScoreOutOfRange        = errors.New("score out of range")
	ErrDuplicateRoundIndex    = errors.New("duplicate round index")
	ErrPersistenceFailure     = errors.New("persistence failure")
)

// FieldError reports a per-field unit violation, e.g. "player_2: not a multiple of 5".
type FieldError struct {
	Field   string
	Value   int32
	Divisor int32
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: not a multiple of %d", e.Field, e.Divisor)
}

func (e *FieldError) Unwrap() error {
	return ErrNotAMultipleOfFive
}

// Kind names the rejection kind of err for responses and metrics.
// It returns "" for errors outside the taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAMultipleOfFive):
		return "not_a_multiple_of_five"
	case errors.Is(err, ErrNotAValidPlayer):
		return "not_a_valid_player"
	case errors.Is(err, ErrMissingValue):
		return "missing_value"
	case errors.Is(err, ErrScoreTooHigh):
		return "score_too_high"
	case errors.Is(err, ErrPlayingBidMustBeHigher):
		return "playing_bid_must_be_higher"
	case errors.Is(err, ErrScoreOutOfRange):
		return "score_out_of_range"
	case errors.Is(err, ErrDuplicateRoundIndex):
		return "duplicate_round_index"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence_failure"
	}
	return ""
}

// IsRejection reports whether err is a validation rejection rather than an infrastructure failure.
func IsRejection(err error) bool {
	k := Kind(err)
	return k != "" && k != "persistence_failure"
}

// persistenceError wraps a store error so callers can match ErrPersistenceFailure
// while still reaching the underlying cause.
type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistenceFailure, e.op, e.err)
}

func (e *persistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.err}
}

// Persistence wraps a storage error as ErrPersistenceFailure. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &persistenceError{op: op, err: err}
}
