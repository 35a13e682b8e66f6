package models

import (
	"database/sql/driver"
	"fmt"
)

// MasteryLevel summarises command of a curriculum item. Levels are ordered.
type MasteryLevel int

const (
	MasteryLearning MasteryLevel = iota
	MasteryFamiliar
	MasteryProficient
	MasteryMastered
)

var masteryNames = [...]string{"learning", "familiar", "proficient", "mastered"}

func (l MasteryLevel) String() string {
	if l < MasteryLearning || l > MasteryMastered {
		return "unknown"
	}
	return masteryNames[l]
}

// ParseMasteryLevel converts a stored name back to a level.
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	for i, name := range masteryNames {
		if name == s {
			return MasteryLevel(i), nil
		}
	}
	return MasteryLearning, fmt.Errorf("unknown mastery level %q", s)
}

// Value implements driver.Valuer.
func (l MasteryLevel) Value() (driver.Value, error) {
	return l.String(), nil
}

// Scan implements sql.Scanner.
func (l *MasteryLevel) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*l = MasteryLearning
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MasteryLevel", src)
	}
	parsed, err := ParseMasteryLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LevelForBox derives a mastery level from a Leitner box number.
func LevelForBox(box int) MasteryLevel {
	switch {
	case box >= 5:
		return MasteryMastered
	case box == 4:
		return MasteryProficient
	case box >= 2:
		return MasteryFamiliar
	default:
		return MasteryLearning
	}
}
