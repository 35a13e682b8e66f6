package content

// BeltFile is the belt_system document.
type BeltFile struct {
	Belts []BeltConfig `json:"belts"`
}

// BeltConfig is one configured belt.
type BeltConfig struct {
	ShortName      string `json:"short_name"`
	Name           string `json:"name"`
	SortOrder      int    `json:"sort_order"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	TextColor      string `json:"text_color"`
	BorderColor    string `json:"border_color"`
	IsKyup         bool   `json:"is_kyup"`
	Requirements   string `json:"requirements"`
}

// TerminologyFile is one "<grade-id>_<category>.json" document.
type TerminologyFile struct {
	BeltLevel   string            `json:"belt_level"`
	Category    string            `json:"category"`
	Terminology []TerminologyTerm `json:"terminology"`
}

type TerminologyTerm struct {
	English   string `json:"english"`
	Romanised string `json:"romanised"`
	Hangul    string `json:"hangul"`
	Phonetic  string `json:"phonetic"`
}

// PatternFile holds one or more patterns, usually those of a single grade.
type PatternFile struct {
	Patterns []PatternDoc `json:"patterns"`
}

type PatternDoc struct {
	Name       string    `json:"name"`
	Hangul     string    `json:"hangul"`
	MoveCount  int       `json:"move_count"`
	BeltLevels []string  `json:"belt_levels"`
	Moves      []MoveDoc `json:"moves"`
}

type MoveDoc struct {
	MoveNumber int    `json:"move_number"`
	English    string `json:"english"`
	Romanised  string `json:"romanised"`
	Stance     string `json:"stance"`
	Direction  string `json:"direction"`
	Target     string `json:"target"`
}

// SparringFile holds the sequences of one sparring type. A sequence without
// its own type inherits the file's.
type SparringFile struct {
	Type      string        `json:"type"`
	Sequences []SequenceDoc `json:"sequences"`
}

type SequenceDoc struct {
	Type                 string    `json:"type"`
	SequenceNumber       int       `json:"sequence_number"`
	Name                 string    `json:"name"`
	TotalSteps           int       `json:"total_steps"`
	ApplicableBeltLevels []string  `json:"applicable_belt_levels"`
	Steps                []StepDoc `json:"steps"`
}

type StepDoc struct {
	StepNumber int       `json:"step_number"`
	Attack     Technique `json:"attack"`
	Defense    Technique `json:"defense"`
	Counter    Technique `json:"counter"`
}

// Technique names a move in English with its romanised Korean form.
type Technique struct {
	English   string `json:"english"`
	Romanised string `json:"romanised"`
}

func (t Technique) String() string {
	if t.Romanised == "" {
		return t.English
	}
	if t.English == "" {
		return t.Romanised
	}
	return t.English + " (" + t.Romanised + ")"
}

// identity-only views decoded by the scanner

type beltIdentities struct {
	Belts []struct {
		ShortName string `json:"short_name"`
	} `json:"belts"`
}

type termIdentities struct {
	Terminology []struct {
		English string `json:"english"`
	} `json:"terminology"`
}

type patternIdentities struct {
	Patterns []struct {
		Name string `json:"name"`
	} `json:"patterns"`
}

type sequenceIdentities struct {
	Type      string `json:"type"`
	Sequences []struct {
		Type           string `json:"type"`
		SequenceNumber int    `json:"sequence_number"`
	} `json:"sequences"`
}
