// Package content reads curriculum bundles: locating each domain's files,
// hashing them, and decoding them into identity sets or full entities.
package content

import (
	"path"
	"strings"
)

// Domain is a unit of independent content synchronization.
type Domain string

const (
	Belts       Domain = "belt_system"
	Terminology Domain = "terminology"
	Patterns    Domain = "patterns"
	Sparring    Domain = "step_sparring"
)

// Domains returns every domain in synchronization order. Belts come first so
// the other domains never run against an unseeded belt table.
func Domains() []Domain {
	return []Domain{Belts, Terminology, Patterns, Sparring}
}

// Subdir is the bundle directory holding the domain's files.
func (d Domain) Subdir() string {
	switch d {
	case Belts:
		return "BeltSystem"
	case Terminology:
		return "Terminology"
	case Patterns:
		return "Patterns"
	case Sparring:
		return "StepSparring"
	}
	return ""
}

// TerminologyCategories are the categories a terminology file name may carry.
var TerminologyCategories = []string{"basics", "numbers", "techniques"}

// MatchesFlat reports whether a file at the bundle root belongs to the domain
// under the flattened naming convention.
func (d Domain) MatchesFlat(name string) bool {
	lower := strings.ToLower(path.Base(name))
	if !strings.HasSuffix(lower, ".json") {
		return false
	}
	switch d {
	case Belts:
		return strings.Contains(lower, "belt_system")
	case Terminology:
		for _, c := range TerminologyCategories {
			if strings.HasSuffix(lower, "_"+c+".json") {
				return true
			}
		}
		return false
	case Patterns:
		return strings.HasSuffix(lower, "_patterns.json")
	case Sparring:
		return strings.Contains(lower, "sparring")
	}
	return false
}

// ParseTerminologyName splits "<grade-id>_<category>.json" into its parts.
func ParseTerminologyName(name string) (gradeID, category string, ok bool) {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	i := strings.LastIndex(base, "_")
	if i <= 0 || i == len(base)-1 {
		return "", "", false
	}
	gradeID, category = base[:i], strings.ToLower(base[i+1:])
	for _, c := range TerminologyCategories {
		if c == category {
			return gradeID, category, true
		}
	}
	return "", "", false
}
