// internal/game/view.go
package game

import "github.com/jason-s-yu/tysiac/internal/models"

// GameView is the read model served to viewers. It is always rebuilt from the
// stored rounds and never cached.
type GameView struct {
	GameID      int32     `json:"game_id"`
	Prev        *int32    `json:"prev,omitempty"`
	Next        *int32    `json:"next,omitempty"`
	PlayerNames [3]string `json:"player_names"`

	Rounds []models.Round `json:"round_scores"`
	// CumulativeScores[i] is the running total after Rounds[i].
	CumulativeScores []models.Totals `json:"cumulative_round_scores"`
	Totals           models.Totals   `json:"totals"`
	MinScore         int32           `json:"min_score"`

	// Winner is set once a seat's running total lands exactly on WinningTotal.
	Winner   *models.Player `json:"winner,omitempty"`
	Finished bool           `json:"finished"`
}

// Aggregate folds a game's rounds, already ordered by index, into a GameView.
func Aggregate(g models.Game) GameView {
	view := GameView{
		GameID:           g.ID,
		Prev:             g.Prev,
		Next:             g.Next,
		PlayerNames:      g.PlayerNames,
		Rounds:           make([]models.Round, len(g.Rounds)),
		CumulativeScores: make([]models.Totals, 0, len(g.Rounds)),
	}
	copy(view.Rounds, g.Rounds)

	var running models.Totals
	for i, r := range g.Rounds {
		deltas := r.Deltas()
		running = running.Add(deltas)
		view.CumulativeScores = append(view.CumulativeScores, running)

		for j, d := range deltas {
			if (i == 0 && j == 0) || d < view.MinScore {
				view.MinScore = d
			}
		}
		if view.Winner == nil {
			for _, seat := range models.Players {
				if running.Get(seat) == WinningTotal {
					view.Winner = models.Seat(seat)
					break
				}
			}
		}
	}
	view.Totals = running
	view.Finished = view.Winner != nil
	return view
}
