package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/example/dojang/pkg/models"
)

// ErrNoFiles is returned when a domain has no files in the bundle.
var ErrNoFiles = errors.New("no content files")

// FileError records a content file that could not be read or decoded.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Scanner discovers and decodes content files of a bundle.
type Scanner struct {
	fsys    fs.FS
	locator Locator
	logger  *zap.Logger
}

// NewScanner creates a scanner over fsys. A nil locator uses NewBundleLocator.
func NewScanner(fsys fs.FS, locator Locator, logger *zap.Logger) *Scanner {
	if locator == nil {
		locator = NewBundleLocator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{fsys: fsys, locator: locator, logger: logger}
}

// DiscoverFiles returns the domain's file paths in file-name order.
func (s *Scanner) DiscoverFiles(d Domain) ([]string, error) {
	return s.locator.Locate(s.fsys, d)
}

// ReadFile returns the raw bytes of a discovered file.
func (s *Scanner) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

// ExpectedIdentitySet decodes only the natural keys of a domain. Files that
// fail to decode are skipped and returned as FileErrors, leaving the set
// incomplete. The error return covers discovery failures and ErrNoFiles.
func (s *Scanner) ExpectedIdentitySet(d Domain) (IdentitySet, []FileError, error) {
	files, err := s.DiscoverFiles(d)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", d, ErrNoFiles)
	}

	set := IdentitySet{}
	var fileErrs []FileError
	for _, name := range files {
		keys, err := s.identities(d, name)
		if err != nil {
			fileErrs = append(fileErrs, FileError{Path: name, Err: err})
			continue
		}
		for _, k := range keys {
			set.Add(k)
		}
	}

	if len(fileErrs) > 0 {
		s.logger.Warn("Content scan incomplete",
			zap.String("domain", string(d)),
			zap.Int("failed_files", len(fileErrs)),
			zap.Int("identities", len(set)))
	}
	return set, fileErrs, nil
}

func (s *Scanner) identities(d Domain, name string) ([]string, error) {
	data, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}

	var keys []string
	switch d {
	case Belts:
		var doc beltIdentities
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		for _, b := range doc.Belts {
			keys = append(keys, b.ShortName)
		}
	case Terminology:
		grade, category, ok := ParseTerminologyName(name)
		if !ok {
			return nil, fmt.Errorf("file name does not match <grade>_<category>.json")
		}
		var doc termIdentities
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		for _, t := range doc.Terminology {
			keys = append(keys, models.TermKey(grade, category, t.English))
		}
	case Patterns:
		var doc patternIdentities
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		for _, p := range doc.Patterns {
			keys = append(keys, p.Name)
		}
	case Sparring:
		var doc sequenceIdentities
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		for _, seq := range doc.Sequences {
			keys = append(keys, models.SequenceKey(firstNonEmpty(seq.Type, doc.Type), seq.SequenceNumber))
		}
	default:
		return nil, fmt.Errorf("unknown domain %q", d)
	}
	return keys, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IdentitySet is a set of natural keys.
type IdentitySet map[string]struct{}

// NewIdentitySet builds a set from keys.
func NewIdentitySet(keys ...string) IdentitySet {
	set := make(IdentitySet, len(keys))
	for _, k := range keys {
		set.Add(k)
	}
	return set
}

func (s IdentitySet) Add(key string) {
	s[key] = struct{}{}
}

func (s IdentitySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the members in sorted order.
func (s IdentitySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff returns the keys expected but not in actual, and those in actual but
// not expected. Both are sorted.
func (s IdentitySet) Diff(actual IdentitySet) (missing, extra []string) {
	for _, k := range s.Keys() {
		if !actual.Has(k) {
			missing = append(missing, k)
		}
	}
	for _, k := range actual.Keys() {
		if !s.Has(k) {
			extra = append(extra, k)
		}
	}
	return missing, extra
}

// Equal reports whether both sets hold the same keys.
func (s IdentitySet) Equal(other IdentitySet) bool {
	missing, extra := s.Diff(other)
	return len(missing) == 0 && len(extra) == 0
}
