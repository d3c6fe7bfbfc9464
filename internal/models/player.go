// internal/models/player.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotAValidPlayer is returned when a player reference does not resolve to one of the three seats.
var ErrNotAValidPlayer = errors.New("not a valid player")

// Player identifies one of the three seats at the table.
type Player string

const (
	PlayerOne   Player = "one"
	PlayerTwo   Player = "two"
	PlayerThree Player = "three"
)

// Players lists the seats in table order.
var Players = [3]Player{PlayerOne, PlayerTwo, PlayerThree}

// playerCodes is the storage encoding. It must never change once rows exist.
var playerCodes = map[Player]int32{
	PlayerOne:   1,
	PlayerTwo:   2,
	PlayerThree: 3,
}

// playerTags is the JSON encoding used for bid_winner.
var playerTags = map[Player]string{
	PlayerOne:   "Player1",
	PlayerTwo:   "Player2",
	PlayerThree: "Player3",
}

// playerSlots maps a seat to its position in a Totals triple.
var playerSlots = map[Player]int{
	PlayerOne:   0,
	PlayerTwo:   1,
	PlayerThree: 2,
}

// Valid reports whether p is one of the three seats.
func (p Player) Valid() bool {
	_, ok := playerSlots[p]
	return ok
}

// Code returns the stable integer encoding (1, 2 or 3) used in storage.
func (p Player) Code() int32 {
	return playerCodes[p]
}

// Tag returns the wire tag, e.g. "Player1".
func (p Player) Tag() string {
	return playerTags[p]
}

// Slot returns the index of p inside a Totals value, or -1 if p is not a seat.
func (p Player) Slot() int {
	if slot, ok := playerSlots[p]; ok {
		return slot
	}
	return -1
}

func (p Player) String() string {
	if tag, ok := playerTags[p]; ok {
		return tag
	}
	return fmt.Sprintf("Player(%q)", string(p))
}

// ParsePlayerCode resolves a storage code.
func ParsePlayerCode(code int32) (Player, error) {
	for p, c := range playerCodes {
		if c == code {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: code %d", ErrNotAValidPlayer, code)
}

// ParsePlayerTag resolves a wire tag. The bare integer code is accepted as well.
func ParsePlayerTag(tag string) (Player, error) {
	for p, t := range playerTags {
		if t == tag {
			return p, nil
		}
	}
	if code, err := strconv.ParseInt(tag, 10, 32); err == nil {
		return ParsePlayerCode(int32(code))
	}
	return "", fmt.Errorf("%w: %q", ErrNotAValidPlayer, tag)
}

func (p Player) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrNotAValidPlayer, string(p))
	}
	return json.Marshal(p.Tag())
}

// UnmarshalJSON accepts either the wire tag ("Player2") or the integer code (2).
func (p *Player) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		parsed, err := ParsePlayerTag(tag)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	var code int32
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("%w: %s", ErrNotAValidPlayer, string(data))
	}
	parsed, err := ParsePlayerCode(code)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
