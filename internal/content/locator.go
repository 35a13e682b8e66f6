package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Locator finds the files of a domain inside a bundle. Paths are slash
// separated, relative to the bundle root, and sorted by file name.
type Locator interface {
	Locate(fsys fs.FS, d Domain) ([]string, error)
}

// SubdirLocator looks for JSON files in the domain's own directory.
type SubdirLocator struct{}

func (SubdirLocator) Locate(fsys fs.FS, d Domain) ([]string, error) {
	dir := d.Subdir()
	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}
	sortByName(files)
	return files, nil
}

// FlatLocator scans the bundle root for files following the domain's naming
// convention.
type FlatLocator struct{}

func (FlatLocator) Locate(fsys fs.FS, d Domain) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle root: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && d.MatchesFlat(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sortByName(files)
	return files, nil
}

// FallbackLocator returns the result of the first locator that finds files.
type FallbackLocator []Locator

func (l FallbackLocator) Locate(fsys fs.FS, d Domain) ([]string, error) {
	for _, loc := range l {
		files, err := loc.Locate(fsys, d)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return nil, nil
}

// NewBundleLocator returns the default strategy: domain subdirectory first,
// flat root second.
func NewBundleLocator() Locator {
	return FallbackLocator{SubdirLocator{}, FlatLocator{}}
}

func sortByName(files []string) {
	sort.Slice(files, func(i, j int) bool {
		bi, bj := path.Base(files[i]), path.Base(files[j])
		if bi != bj {
			return bi < bj
		}
		return files[i] < files[j]
	})
}
