// internal/models/game.go
package models

import "time"

// Game is a single scoresheet: three fixed player names and the rounds played so far.
type Game struct {
	ID          int32     `json:"game_id"`
	PlayerNames [3]string `json:"player_names"`
	Rounds      []Round   `json:"rounds"`

	// Prev and Next are the neighbouring game ids by id ordering, for navigation only.
	Prev *int32 `json:"prev,omitempty"`
	Next *int32 `json:"next,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// GameSummary is a lightweight listing entry.
type GameSummary struct {
	ID          int32     `json:"game_id"`
	PlayerNames [3]string `json:"player_names"`
	RoundCount  int       `json:"round_count"`
	CreatedAt   time.Time `json:"created_at"`
}
