package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/dojang/pkg/models"
)

// Strict loaders fully decode a domain. Unlike ExpectedIdentitySet, a single
// bad file fails the whole domain so a reload never persists a partial set.

// LoadBelts decodes the configured belts in file order.
func (s *Scanner) LoadBelts() ([]models.BeltLevel, error) {
	var belts []models.BeltLevel
	seen := map[string]bool{}
	err := s.load(Belts, func(name string, data []byte) error {
		var doc BeltFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		for _, b := range doc.Belts {
			short := strings.TrimSpace(b.ShortName)
			if short == "" {
				return fmt.Errorf("belt %q has no short name", b.Name)
			}
			if seen[short] {
				return fmt.Errorf("belt %s configured twice", short)
			}
			seen[short] = true
			belts = append(belts, models.BeltLevel{
				ShortName:      short,
				Name:           b.Name,
				SortOrder:      b.SortOrder,
				PrimaryColor:   b.PrimaryColor,
				SecondaryColor: b.SecondaryColor,
				TextColor:      b.TextColor,
				BorderColor:    b.BorderColor,
				IsKyup:         b.IsKyup,
				Requirements:   b.Requirements,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return belts, nil
}

// LoadTerminology decodes every terminology entry.
func (s *Scanner) LoadTerminology() ([]models.TerminologyEntry, error) {
	var entries []models.TerminologyEntry
	seen := map[string]bool{}
	err := s.load(Terminology, func(name string, data []byte) error {
		grade, category, ok := ParseTerminologyName(name)
		if !ok {
			return fmt.Errorf("file name does not match <grade>_<category>.json")
		}
		var doc TerminologyFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		for _, t := range doc.Terminology {
			if strings.TrimSpace(t.English) == "" {
				return fmt.Errorf("term %q has no english text", t.Romanised)
			}
			key := models.TermKey(grade, category, t.English)
			if seen[key] {
				return fmt.Errorf("term %s defined twice", key)
			}
			seen[key] = true
			entries = append(entries, models.TerminologyEntry{
				TermKey:   key,
				GradeID:   grade,
				BeltLevel: doc.BeltLevel,
				Category:  category,
				English:   strings.TrimSpace(t.English),
				Romanised: t.Romanised,
				Hangul:    t.Hangul,
				Phonetic:  t.Phonetic,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadPatterns decodes and validates every pattern with its moves.
func (s *Scanner) LoadPatterns() ([]models.Pattern, error) {
	var patterns []models.Pattern
	seen := map[string]bool{}
	err := s.load(Patterns, func(name string, data []byte) error {
		var doc PatternFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		for _, pd := range doc.Patterns {
			p := models.Pattern{
				Name:       pd.Name,
				Hangul:     pd.Hangul,
				MoveCount:  pd.MoveCount,
				BeltLevels: models.StringList(pd.BeltLevels),
			}
			for _, m := range pd.Moves {
				p.Moves = append(p.Moves, models.PatternMove{
					MoveNumber: m.MoveNumber,
					English:    m.English,
					Romanised:  m.Romanised,
					Stance:     m.Stance,
					Direction:  m.Direction,
					Target:     m.Target,
				})
			}
			if err := p.Validate(); err != nil {
				return err
			}
			if seen[p.Name] {
				return fmt.Errorf("pattern %s defined twice", p.Name)
			}
			seen[p.Name] = true
			patterns = append(patterns, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patterns, nil
}

// LoadSparring decodes and validates every step-sparring sequence.
func (s *Scanner) LoadSparring() ([]models.StepSparringSequence, error) {
	var sequences []models.StepSparringSequence
	seen := map[string]bool{}
	err := s.load(Sparring, func(name string, data []byte) error {
		var doc SparringFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		for _, sd := range doc.Sequences {
			seqType := firstNonEmpty(sd.Type, doc.Type)
			seq := models.StepSparringSequence{
				SequenceKey:     models.SequenceKey(seqType, sd.SequenceNumber),
				Type:            seqType,
				SequenceNumber:  sd.SequenceNumber,
				Name:            sd.Name,
				TotalSteps:      sd.TotalSteps,
				ApplicableBelts: models.StringList(sd.ApplicableBeltLevels),
			}
			for _, st := range sd.Steps {
				seq.Steps = append(seq.Steps, models.StepSparringStep{
					StepNumber: st.StepNumber,
					Attack:     st.Attack.String(),
					Defense:    st.Defense.String(),
					Counter:    st.Counter.String(),
				})
			}
			if err := seq.Validate(); err != nil {
				return err
			}
			if seen[seq.SequenceKey] {
				return fmt.Errorf("sequence %s defined twice", seq.SequenceKey)
			}
			seen[seq.SequenceKey] = true
			sequences = append(sequences, seq)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sequences, nil
}

// load feeds each file of the domain to decode and joins every failure.
func (s *Scanner) load(d Domain, decode func(name string, data []byte) error) error {
	files, err := s.DiscoverFiles(d)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", d, ErrNoFiles)
	}

	var errs []error
	for _, name := range files {
		data, err := s.ReadFile(name)
		if err == nil {
			err = decode(name, data)
		}
		if err != nil {
			errs = append(errs, FileError{Path: name, Err: err})
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to load %s: %w", d, errors.Join(errs...))
	}
	return nil
}
