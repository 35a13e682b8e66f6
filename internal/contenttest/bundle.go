// Package contenttest writes curriculum bundles for tests.
package contenttest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/dojang/internal/content"
)

// Bundle is an in-memory curriculum bundle. Map keys are file names.
type Bundle struct {
	Belts       []content.BeltConfig
	Terminology map[string]content.TerminologyFile
	Patterns    map[string]content.PatternFile
	Sparring    map[string]content.SparringFile
}

// Standard returns a small bundle: 3 belts, 5 terms, 2 patterns and 2
// sparring sequences.
func Standard() Bundle {
	return Bundle{
		Belts: []content.BeltConfig{
			{ShortName: "10th Keup", Name: "White Belt", SortOrder: 1, PrimaryColor: "#FFFFFF", IsKyup: true},
			{ShortName: "9th Keup", Name: "White Belt Yellow Tag", SortOrder: 2, PrimaryColor: "#FFFFFF", SecondaryColor: "#FFD700", IsKyup: true},
			{ShortName: "8th Keup", Name: "Yellow Belt", SortOrder: 3, PrimaryColor: "#FFD700", IsKyup: true},
		},
		Terminology: map[string]content.TerminologyFile{
			"10th_keup_basics.json": {
				BeltLevel: "10th Keup",
				Category:  "basics",
				Terminology: []content.TerminologyTerm{
					{English: "Attention stance", Romanised: "Charyot sogi", Hangul: "차렷 서기"},
					{English: "Bow", Romanised: "Kyong ye", Hangul: "경례"},
					{English: "Ready stance", Romanised: "Chunbi sogi", Hangul: "준비 서기"},
				},
			},
			"9th_keup_numbers.json": {
				BeltLevel: "9th Keup",
				Category:  "numbers",
				Terminology: []content.TerminologyTerm{
					{English: "One", Romanised: "Hana", Hangul: "하나"},
					{English: "Two", Romanised: "Dul", Hangul: "둘"},
				},
			},
		},
		Patterns: map[string]content.PatternFile{
			"9th_keup_patterns.json": {Patterns: []content.PatternDoc{Pattern("Chon-Ji", 4, "9th Keup")}},
			"8th_keup_patterns.json": {Patterns: []content.PatternDoc{Pattern("Dan-Gun", 3, "8th Keup")}},
		},
		Sparring: map[string]content.SparringFile{
			"three_step_sparring.json": {
				Type: "three_step",
				Sequences: []content.SequenceDoc{
					Sequence("three_step", 1, 3, "8th Keup"),
					Sequence("three_step", 2, 3, "8th Keup"),
				},
			},
		},
	}
}

// Pattern builds a valid pattern with numbered moves.
func Pattern(name string, moves int, belts ...string) content.PatternDoc {
	p := content.PatternDoc{Name: name, MoveCount: moves, BeltLevels: belts}
	for i := 1; i <= moves; i++ {
		p.Moves = append(p.Moves, content.MoveDoc{
			MoveNumber: i,
			English:    fmt.Sprintf("%s move %d", name, i),
			Stance:     "walking stance",
		})
	}
	return p
}

// Sequence builds a valid sparring sequence with numbered steps.
func Sequence(seqType string, number, steps int, belts ...string) content.SequenceDoc {
	s := content.SequenceDoc{
		Type:                 seqType,
		SequenceNumber:       number,
		Name:                 fmt.Sprintf("%s #%d", seqType, number),
		TotalSteps:           steps,
		ApplicableBeltLevels: belts,
	}
	for i := 1; i <= steps; i++ {
		s.Steps = append(s.Steps, content.StepDoc{
			StepNumber: i,
			Attack:     content.Technique{English: "Middle punch", Romanised: "Kaunde jirugi"},
			Defense:    content.Technique{English: "Inner forearm block"},
		})
	}
	return s
}

// TermCount returns the number of terminology entries in the bundle.
func (b Bundle) TermCount() int {
	n := 0
	for _, f := range b.Terminology {
		n += len(f.Terminology)
	}
	return n
}

// PatternNames returns the names of every pattern in the bundle.
func (b Bundle) PatternNames() []string {
	var names []string
	for _, f := range b.Patterns {
		for _, p := range f.Patterns {
			names = append(names, p.Name)
		}
	}
	return names
}

// SequenceCount returns the number of sparring sequences in the bundle.
func (b Bundle) SequenceCount() int {
	n := 0
	for _, f := range b.Sparring {
		n += len(f.Sequences)
	}
	return n
}

// Write lays the bundle out with one subdirectory per domain.
func (b Bundle) Write(t testing.TB, root string) {
	t.Helper()
	b.write(t, root, func(d content.Domain, name string) string {
		return filepath.Join(root, d.Subdir(), name)
	})
}

// WriteFlat lays the bundle out with every file at the root.
func (b Bundle) WriteFlat(t testing.TB, root string) {
	t.Helper()
	b.write(t, root, func(_ content.Domain, name string) string {
		return filepath.Join(root, name)
	})
}

func (b Bundle) write(t testing.TB, root string, at func(content.Domain, string) string) {
	t.Helper()
	if b.Belts != nil {
		WriteJSON(t, at(content.Belts, "belt_system.json"), content.BeltFile{Belts: b.Belts})
	}
	for name, doc := range b.Terminology {
		WriteJSON(t, at(content.Terminology, name), doc)
	}
	for name, doc := range b.Patterns {
		WriteJSON(t, at(content.Patterns, name), doc)
	}
	for name, doc := range b.Sparring {
		WriteJSON(t, at(content.Sparring, name), doc)
	}
}

// WriteJSON marshals v to path, creating parent directories.
func WriteJSON(t testing.TB, path string, v interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	WriteFile(t, path, data)
}

// WriteFile writes raw bytes to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
