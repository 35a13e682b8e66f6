package models

import "fmt"

// Pattern is a set sequence of moves. Name is the natural key.
type Pattern struct {
	ID         int64         `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	Hangul     string        `json:"hangul" db:"hangul"`
	MoveCount  int           `json:"move_count" db:"move_count"`
	BeltLevels StringList    `json:"belt_levels" db:"belt_levels"`
	Moves      []PatternMove `json:"moves" db:"-"`
}

// PatternMove is one numbered move of a pattern.
type PatternMove struct {
	ID         int64  `json:"id" db:"id"`
	PatternID  int64  `json:"pattern_id" db:"pattern_id"`
	MoveNumber int    `json:"move_number" db:"move_number"`
	English    string `json:"english" db:"english"`
	Romanised  string `json:"romanised" db:"romanised"`
	Stance     string `json:"stance" db:"stance"`
	Direction  string `json:"direction" db:"direction"`
	Target     string `json:"target" db:"target"`
}

// Validate checks that the declared move count matches the moves and that
// move numbers run 1..N without gaps.
func (p Pattern) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pattern has no name")
	}
	if len(p.Moves) != p.MoveCount {
		return fmt.Errorf("pattern %s declares %d moves but has %d", p.Name, p.MoveCount, len(p.Moves))
	}
	for i, m := range p.Moves {
		if m.MoveNumber != i+1 {
			return fmt.Errorf("pattern %s move %d has number %d", p.Name, i+1, m.MoveNumber)
		}
	}
	return nil
}
