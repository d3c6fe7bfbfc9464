// internal/models/change.go
package models

// Change actions recorded in the round history.
const (
	ChangeAppend = "append"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// RoundChangeRecord describes one accepted mutation of a game's rounds.
// Records are queued for the historian, which persists them as an audit trail.
type RoundChangeRecord struct {
	GameID     int32  `json:"game_id"`
	RoundIndex int32  `json:"round_index"`
	Action     string `json:"action"`
	Round      *Round `json:"round,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}
