package shared

import "fmt"

// PlayerID is a value object for a player's unique identifier.
type PlayerID struct {
	value int
}

// NewPlayerID validates and wraps a raw id.
func NewPlayerID(id int) (PlayerID, error) {
	if id <= 0 {
		return PlayerID{}, fmt.Errorf("player_id must be positive")
	}
	return PlayerID{value: id}, nil
}

// MustNewPlayerID wraps an id known to be valid (e.g. loaded from storage).
func MustNewPlayerID(id int) PlayerID {
	playerID, err := NewPlayerID(id)
	if err != nil {
		panic(err)
	}
	return playerID
}

// Value returns the raw integer id.
func (p PlayerID) Value() int {
	return p.value
}

func (p PlayerID) String() string {
	return fmt.Sprintf("%d", p.value)
}

// Equals checks identity with another PlayerID.
func (p PlayerID) Equals(other PlayerID) bool {
	return p.value == other.value
}

// IsZero reports whether the id is uninitialized.
func (p PlayerID) IsZero() bool {
	return p.value == 0
}
