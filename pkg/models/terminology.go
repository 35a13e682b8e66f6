package models

import (
	"fmt"
	"strings"
)

// TerminologyEntry is a single flashcard term.
type TerminologyEntry struct {
	ID        int64  `json:"id" db:"id"`
	TermKey   string `json:"term_key" db:"term_key"`
	GradeID   string `json:"grade_id" db:"grade_id"`
	BeltLevel string `json:"belt_level" db:"belt_level"`
	Category  string `json:"category" db:"category"`
	English   string `json:"english" db:"english"`
	Romanised string `json:"romanised" db:"romanised"`
	Hangul    string `json:"hangul" db:"hangul"`
	Phonetic  string `json:"phonetic" db:"phonetic"`
}

// TermKey builds the composite natural key for a terminology entry.
func TermKey(gradeID, category, english string) string {
	return fmt.Sprintf("%s:%s:%s",
		strings.ToLower(gradeID),
		strings.ToLower(category),
		strings.ToLower(strings.TrimSpace(english)))
}
