// internal/models/round.go
package models

import "math"

// Round is one hand of play: a signed score delta per seat plus the bid that decided it.
type Round struct {
	// Index orders rounds inside a game. It is assigned by the store on append.
	Index int32 `json:"index"`

	Player1 int32 `json:"player_1"`
	Player2 int32 `json:"player_2"`
	Player3 int32 `json:"player_3"`

	BidWinner  *Player `json:"bid_winner,omitempty"`
	WinningBid *int32  `json:"winning_bid,omitempty"`
	PlayingBid *int32  `json:"playing_bid,omitempty"`
}

// Deltas returns the round's per-seat scores as a Totals triple.
func (r Round) Deltas() Totals {
	return Totals{r.Player1, r.Player2, r.Player3}
}

// HasBid reports whether all three bid fields are present.
func (r Round) HasBid() bool {
	return r.BidWinner != nil && r.WinningBid != nil && r.PlayingBid != nil
}

// RoundEdit is one entry of an administrator batch edit.
// A Delete entry removes the round at Index; otherwise Round overwrites it.
type RoundEdit struct {
	Index  int32 `json:"index"`
	Round  Round `json:"round"`
	Delete bool  `json:"delete,omitempty"`
}

// Totals holds one value per seat, in table order.
type Totals [3]int32

// Add returns the elementwise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{t[0] + o[0], t[1] + o[1], t[2] + o[2]}
}

// Get returns the value for seat p, or 0 if p is not a seat.
func (t Totals) Get(p Player) int32 {
	slot := p.Slot()
	if slot < 0 {
		return 0
	}
	return t[slot]
}

// AddChecked is Add computed in 64 bits. ok is false when any seat would leave
// the int32 range, in which case sum is the zero value.
func (t Totals) AddChecked(o Totals) (sum Totals, ok bool) {
	for i := range t {
		v := int64(t[i]) + int64(o[i])
		if v < math.MinInt32 || v > math.MaxInt32 {
			return Totals{}, false
		}
		sum[i] = int32(v)
	}
	return sum, true
}

// Int32 is a small helper for building optional bid fields.
func Int32(v int32) *int32 {
	return &v
}

// Seat is a small helper for building an optional bid winner.
func Seat(p Player) *Player {
	return &p
}
