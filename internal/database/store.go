// internal/database/store.go
package database

import (
	"context"
	"errors"

	"github.com/jason-s-yu/tysiac/internal/models"
)

// ErrNotFound is returned when a game or round does not exist.
var ErrNotFound = errors.New("not found")

// ErrRoundConflict is returned when another writer claimed the same round index first.
var ErrRoundConflict = errors.New("round index already taken")

// Store is the persistence contract shared by the postgres and sqlite backends.
// Rounds are always returned ordered by index.
type Store interface {
	CreateGame(ctx context.Context, names [3]string) (int32, error)
	GetGame(ctx context.Context, id int32) (*models.Game, error)
	ListGames(ctx context.Context, limit int) ([]models.GameSummary, error)
	LatestGameID(ctx context.Context) (int32, error)

	// PriorTotals sums every stored round of the game.
	PriorTotals(ctx context.Context, gameID int32) (models.Totals, error)
	// AppendRound stores r after the game's last round and returns its index.
	AppendRound(ctx context.Context, gameID int32, r models.Round) (int32, error)
	UpdateRound(ctx context.Context, gameID, index int32, r models.Round) error
	DeleteRound(ctx context.Context, gameID, index int32) error

	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit caps ListGames when the caller passes a non-positive limit.
const DefaultListLimit = 50

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// bidColumns flattens the optional bid fields into nullable column values.
func bidColumns(r models.Round) (winner *int32, winning *int32, playing *int32) {
	if r.BidWinner != nil && r.BidWinner.Valid() {
		code := r.BidWinner.Code()
		winner = &code
	}
	return winner, r.WinningBid, r.PlayingBid
}

// roundFromColumns rebuilds a Round from its stored columns.
func roundFromColumns(index, p1, p2, p3 int32, winner, winning, playing *int32) (models.Round, error) {
	r := models.Round{
		Index:      index,
		Player1:    p1,
		Player2:    p2,
		Player3:    p3,
		WinningBid: winning,
		PlayingBid: playing,
	}
	if winner != nil {
		p, err := models.ParsePlayerCode(*winner)
		if err != nil {
			return models.Round{}, err
		}
		r.BidWinner = &p
	}
	return r, nil
}
