package models

import "time"

// BeltLevel is a grade in the curriculum. ShortName is the natural key used by
// content sync; the row id is referenced by user profiles and must stay stable.
type BeltLevel struct {
	ID             int64     `json:"id" db:"id"`
	ShortName      string    `json:"short_name" db:"short_name"`
	Name           string    `json:"name" db:"name"`
	SortOrder      int       `json:"sort_order" db:"sort_order"`
	PrimaryColor   string    `json:"primary_color" db:"primary_color"`
	SecondaryColor string    `json:"secondary_color" db:"secondary_color"`
	TextColor      string    `json:"text_color" db:"text_color"`
	BorderColor    string    `json:"border_color" db:"border_color"`
	IsKyup         bool      `json:"is_kyup" db:"is_kyup"` // ranked grade (keup) vs advanced grade (dan)
	Requirements   string    `json:"requirements" db:"requirements"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SameMetadata reports whether the display fields of b and other are equal.
func (b BeltLevel) SameMetadata(other BeltLevel) bool {
	return b.Name == other.Name &&
		b.SortOrder == other.SortOrder &&
		b.PrimaryColor == other.PrimaryColor &&
		b.SecondaryColor == other.SecondaryColor &&
		b.TextColor == other.TextColor &&
		b.BorderColor == other.BorderColor &&
		b.IsKyup == other.IsKyup &&
		b.Requirements == other.Requirements
}
