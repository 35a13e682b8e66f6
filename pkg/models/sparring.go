package models

import "fmt"

// StepSparringSequence is a numbered attack/defence drill.
type StepSparringSequence struct {
	ID              int64              `json:"id" db:"id"`
	SequenceKey     string             `json:"sequence_key" db:"sequence_key"`
	Type            string             `json:"type" db:"type"`
	SequenceNumber  int                `json:"sequence_number" db:"sequence_number"`
	Name            string             `json:"name" db:"name"`
	TotalSteps      int                `json:"total_steps" db:"total_steps"`
	ApplicableBelts StringList         `json:"applicable_belts" db:"applicable_belts"`
	Steps           []StepSparringStep `json:"steps" db:"-"`
}

// StepSparringStep is one exchange inside a sequence.
type StepSparringStep struct {
	ID         int64  `json:"id" db:"id"`
	SequenceID int64  `json:"sequence_id" db:"sequence_id"`
	StepNumber int    `json:"step_number" db:"step_number"`
	Attack     string `json:"attack" db:"attack"`
	Defense    string `json:"defense" db:"defense"`
	Counter    string `json:"counter" db:"counter"`
}

// SequenceKey builds the type_sequenceNumber natural key.
func SequenceKey(seqType string, number int) string {
	return fmt.Sprintf("%s_%d", seqType, number)
}

// Validate checks the declared step count and step numbering.
func (s StepSparringSequence) Validate() error {
	if s.Type == "" || s.SequenceNumber <= 0 {
		return fmt.Errorf("sequence %q has no type or number", s.SequenceKey)
	}
	if len(s.Steps) != s.TotalSteps {
		return fmt.Errorf("sequence %s declares %d steps but has %d", s.SequenceKey, s.TotalSteps, len(s.Steps))
	}
	for i, st := range s.Steps {
		if st.StepNumber != i+1 {
			return fmt.Errorf("sequence %s step %d has number %d", s.SequenceKey, i+1, st.StepNumber)
		}
	}
	return nil
}
