// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/tysiac/internal/models"
)

const (
	// ScoreUnit is the smallest amount a score can move by.
	ScoreUnit int32 = 5
	// ClosedTotal is the highest total a player may hold before reaching WinningTotal.
	ClosedTotal int32 = 880
	// WinningTotal ends the game for whoever reaches it.
	WinningTotal int32 = 1000
)

// Validate decides whether candidate may follow a game whose running totals are prior.
// It is pure and returns nil when the round is legal.
func Validate(candidate models.Round, prior models.Totals) error {
	if err := checkUnits(candidate); err != nil {
		return err
	}

	winner, err := bidWinner(candidate)
	if err != nil {
		return err
	}
	winningBid, playingBid := *candidate.WinningBid, *candidate.PlayingBid

	if playingBid < winningBid {
		return fmt.Errorf("%w: playing %d, won at %d", ErrPlayingBidMustBeHigher, playingBid, winningBid)
	}

	deltas := candidate.Deltas()
	totals, ok := prior.AddChecked(deltas)
	if !ok {
		return fmt.Errorf("%w: totals %v plus %v leave the 32-bit range", ErrScoreOutOfRange, prior, deltas)
	}

	for _, seat := range models.Players {
		if seat == winner {
			continue
		}
		if total := totals.Get(seat); total > ClosedTotal {
			return fmt.Errorf("%w: %s would reach %d, losers may not pass %d", ErrScoreTooHigh, seat, total, ClosedTotal)
		}
	}

	winnerTotal := totals.Get(winner)
	if winnerTotal > ClosedTotal && winnerTotal != WinningTotal {
		return fmt.Errorf("%w: %s would reach %d, only exactly %d is allowed above %d",
			ErrScoreTooHigh, winner, winnerTotal, WinningTotal, ClosedTotal)
	}

	if winnerTotal == ClosedTotal || winnerTotal == WinningTotal {
		return nil
	}
	if delta := abs(deltas.Get(winner)); delta != playingBid {
		return fmt.Errorf("%w: %s scored %d but played %d", ErrScoreTooHigh, winner, delta, playingBid)
	}
	return nil
}

// checkUnits enforces the 5-point unit on every delta.
func checkUnits(r models.Round) error {
	fields := [3]struct {
		name  string
		value int32
	}{
		{"player_1", r.Player1},
		{"player_2", r.Player2},
		{"player_3", r.Player3},
	}
	for _, f := range fields {
		if f.value%ScoreUnit != 0 {
			return &FieldError{Field: f.name, Value: f.value, Divisor: ScoreUnit}
		}
	}
	return nil
}

// bidWinner checks the bid metadata is complete and names a real seat.
func bidWinner(r models.Round) (models.Player, error) {
	if !r.HasBid() {
		switch {
		case r.BidWinner == nil:
			return "", fmt.Errorf("%w: bid_winner", ErrMissingValue)
		case r.WinningBid == nil:
			return "", fmt.Errorf("%w: winning_bid", ErrMissingValue)
		default:
			return "", fmt.Errorf("%w: playing_bid", ErrMissingValue)
		}
	}
	if !r.BidWinner.Valid() {
		return "", fmt.Errorf("%w: %q", ErrNotAValidPlayer, string(*r.BidWinner))
	}
	return *r.BidWinner, nil
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
