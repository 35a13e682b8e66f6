package content_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/contenttest"
	"github.com/example/dojang/pkg/models"
)

type memoryHashes map[string]string

func (m memoryHashes) ContentHash(_ context.Context, domain string) (string, bool, error) {
	h, ok := m[domain]
	return h, ok, nil
}

func (m memoryHashes) SetContentHash(_ context.Context, domain, digest string) error {
	m[domain] = digest
	return nil
}

func newScanner(root string) *content.Scanner {
	return content.NewScanner(os.DirFS(root), nil, nil)
}

func TestParseTerminologyName(t *testing.T) {
	tests := []struct {
		name     string
		grade    string
		category string
		ok       bool
	}{
		{"10th_keup_basics.json", "10th_keup", "basics", true},
		{"Terminology/1st_dan_techniques.json", "1st_dan", "techniques", true},
		{"9th_keup_Numbers.json", "9th_keup", "numbers", true},
		{"9th_keup_colours.json", "", "", false},
		{"basics.json", "", "", false},
		{"_basics.json", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade, category, ok := content.ParseTerminologyName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.grade, grade)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestMatchesFlat(t *testing.T) {
	tests := []struct {
		domain content.Domain
		name   string
		want   bool
	}{
		{content.Belts, "belt_system.json", true},
		{content.Belts, "belt_system.yaml", false},
		{content.Terminology, "10th_keup_basics.json", true},
		{content.Terminology, "10th_keup_patterns.json", false},
		{content.Patterns, "9th_keup_patterns.json", true},
		{content.Patterns, "patterns.json", false},
		{content.Sparring, "three_step_sparring.json", true},
		{content.Sparring, "StepSparring_two.JSON", true},
		{content.Sparring, "9th_keup_patterns.json", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.domain.MatchesFlat(tt.name), "%s %s", tt.domain, tt.name)
	}
}

func TestSubdirAndFlatLayoutsAgree(t *testing.T) {
	bundle := contenttest.Standard()
	subdir, flat := t.TempDir(), t.TempDir()
	bundle.Write(t, subdir)
	bundle.WriteFlat(t, flat)

	for _, d := range content.Domains() {
		want, errs, err := newScanner(subdir).ExpectedIdentitySet(d)
		require.NoError(t, err)
		require.Empty(t, errs)

		got, errs, err := newScanner(flat).ExpectedIdentitySet(d)
		require.NoError(t, err)
		require.Empty(t, errs)

		if diff := cmp.Diff(want.Keys(), got.Keys()); diff != "" {
			t.Errorf("%s identity set mismatch (-subdir +flat):\n%s", d, diff)
		}
	}
}

func TestSubdirTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	contenttest.WriteJSON(t, filepath.Join(root, "Patterns", "a_patterns.json"),
		content.PatternFile{Patterns: []content.PatternDoc{contenttest.Pattern("Chon-Ji", 1)}})
	contenttest.WriteJSON(t, filepath.Join(root, "b_patterns.json"),
		content.PatternFile{Patterns: []content.PatternDoc{contenttest.Pattern("Dan-Gun", 1)}})

	files, err := newScanner(root).DiscoverFiles(content.Patterns)
	require.NoError(t, err)
	assert.Equal(t, []string{"Patterns/a_patterns.json"}, files)
}

func TestDiscoverFilesSorted(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.json", "a.json", "b.json", "notes.txt"} {
		contenttest.WriteFile(t, filepath.Join(root, "StepSparring", name), []byte(`{}`))
	}

	files, err := newScanner(root).DiscoverFiles(content.Sparring)
	require.NoError(t, err)
	assert.Equal(t, []string{"StepSparring/a.json", "StepSparring/b.json", "StepSparring/c.json"}, files)
}

func TestExpectedIdentitySetSkipsBadFiles(t *testing.T) {
	root := t.TempDir()
	contenttest.Standard().Write(t, root)
	contenttest.WriteFile(t, filepath.Join(root, "Patterns", "7th_keup_patterns.json"), []byte(`{"patterns": [`))

	set, errs, err := newScanner(root).ExpectedIdentitySet(content.Patterns)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "Patterns/7th_keup_patterns.json", errs[0].Path)
	assert.Equal(t, []string{"Chon-Ji", "Dan-Gun"}, set.Keys())
}

func TestExpectedIdentitySetNoFiles(t *testing.T) {
	_, _, err := newScanner(t.TempDir()).ExpectedIdentitySet(content.Terminology)
	assert.ErrorIs(t, err, content.ErrNoFiles)
}

func TestSparringIdentitiesInheritFileType(t *testing.T) {
	root := t.TempDir()
	doc := content.SparringFile{Type: "two_step", Sequences: []content.SequenceDoc{
		contenttest.Sequence("", 1, 2, "6th Keup"),
		contenttest.Sequence("semi_free", 4, 1, "5th Keup"),
	}}
	contenttest.WriteJSON(t, filepath.Join(root, "StepSparring", "mixed.json"), doc)

	set, _, err := newScanner(root).ExpectedIdentitySet(content.Sparring)
	require.NoError(t, err)
	assert.Equal(t, []string{"semi_free_4", "two_step_1"}, set.Keys())
}

func TestIdentitySetDiff(t *testing.T) {
	expected := content.NewIdentitySet("a", "b", "c")
	actual := content.NewIdentitySet("b", "c", "d")

	missing, extra := expected.Diff(actual)
	assert.Equal(t, []string{"a"}, missing)
	assert.Equal(t, []string{"d"}, extra)
	assert.False(t, expected.Equal(actual))
	assert.True(t, expected.Equal(content.NewIdentitySet("c", "b", "a")))
}

func TestLoadTerminology(t *testing.T) {
	root := t.TempDir()
	contenttest.Standard().Write(t, root)

	entries, err := newScanner(root).LoadTerminology()
	require.NoError(t, err)
	require.Len(t, entries, 5)

	byKey := map[string]models.TerminologyEntry{}
	for _, e := range entries {
		byKey[e.TermKey] = e
	}
	bow, ok := byKey["10th_keup:basics:bow"]
	require.True(t, ok)
	assert.Equal(t, "10th Keup", bow.BeltLevel)
	assert.Equal(t, "Kyong ye", bow.Romanised)
}

func TestLoadPatternsRejectsInvalidMoves(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*content.PatternDoc)
	}{
		{"count mismatch", func(p *content.PatternDoc) { p.MoveCount = 5 }},
		{"numbering gap", func(p *content.PatternDoc) { p.Moves[1].MoveNumber = 3 }},
		{"starts at zero", func(p *content.PatternDoc) { p.Moves[0].MoveNumber = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			bundle := contenttest.Standard()
			p := contenttest.Pattern("Do-San", 3)
			tt.mutate(&p)
			bundle.Patterns["7th_keup_patterns.json"] = content.PatternFile{Patterns: []content.PatternDoc{p}}
			bundle.Write(t, root)

			patterns, err := newScanner(root).LoadPatterns()
			require.Error(t, err)
			assert.Nil(t, patterns)

			var fe content.FileError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "Patterns/7th_keup_patterns.json", fe.Path)
		})
	}
}

func TestLoadSparring(t *testing.T) {
	root := t.TempDir()
	contenttest.Standard().Write(t, root)

	seqs, err := newScanner(root).LoadSparring()
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "three_step_1", seqs[0].SequenceKey)
	assert.Equal(t, "Middle punch (Kaunde jirugi)", seqs[0].Steps[0].Attack)
	assert.Equal(t, models.StringList{"8th Keup"}, seqs[0].ApplicableBelts)
}

func TestLoadBeltsRejectsDuplicates(t *testing.T) {
	root := t.TempDir()
	bundle := contenttest.Standard()
	bundle.Belts = append(bundle.Belts, content.BeltConfig{ShortName: "10th Keup", Name: "Again"})
	bundle.Write(t, root)

	_, err := newScanner(root).LoadBelts()
	require.Error(t, err)
}

func TestVersionTrackerFirstRunAndCommit(t *testing.T) {
	root := t.TempDir()
	contenttest.Standard().Write(t, root)
	ctx := context.Background()
	tracker := content.NewVersionTracker(newScanner(root), memoryHashes{})

	for _, d := range content.Domains() {
		changed, err := tracker.HasChanged(ctx, d)
		require.NoError(t, err)
		assert.True(t, changed, "first run for %s", d)

		digest, err := tracker.CurrentHash(d)
		require.NoError(t, err)
		require.NoError(t, tracker.Commit(ctx, d, digest))

		changed, err = tracker.HasChanged(ctx, d)
		require.NoError(t, err)
		assert.False(t, changed, "after commit for %s", d)
	}
}

func TestVersionTrackerDetectsEdit(t *testing.T) {
	root := t.TempDir()
	bundle := contenttest.Standard()
	bundle.Write(t, root)
	ctx := context.Background()
	tracker := content.NewVersionTracker(newScanner(root), memoryHashes{})

	st, err := tracker.Check(ctx, content.Belts)
	require.NoError(t, err)
	require.NoError(t, tracker.Commit(ctx, content.Belts, st.Digest))

	bundle.Belts[0].Name = "White"
	bundle.Write(t, root)

	st, err = tracker.Check(ctx, content.Belts)
	require.NoError(t, err)
	assert.True(t, st.Changed)

	other, err := tracker.Check(ctx, content.Patterns)
	require.NoError(t, err)
	assert.True(t, other.Changed, "patterns were never committed")
}

func TestHashIndependentOfWriteOrder(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	files := []string{"a_patterns.json", "b_patterns.json", "c_patterns.json"}
	for _, name := range files {
		contenttest.WriteJSON(t, filepath.Join(a, "Patterns", name),
			content.PatternFile{Patterns: []content.PatternDoc{contenttest.Pattern(name, 1)}})
	}
	for i := len(files) - 1; i >= 0; i-- {
		contenttest.WriteJSON(t, filepath.Join(b, "Patterns", files[i]),
			content.PatternFile{Patterns: []content.PatternDoc{contenttest.Pattern(files[i], 1)}})
	}

	ha, err := content.NewVersionTracker(newScanner(a), memoryHashes{}).CurrentHash(content.Patterns)
	require.NoError(t, err)
	hb, err := content.NewVersionTracker(newScanner(b), memoryHashes{}).CurrentHash(content.Patterns)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestCurrentHashesMatchSequential(t *testing.T) {
	root := t.TempDir()
	contenttest.Standard().Write(t, root)
	tracker := content.NewVersionTracker(newScanner(root), memoryHashes{})

	all, err := tracker.CurrentHashes(context.Background(), content.Domains())
	require.NoError(t, err)
	require.Len(t, all, len(content.Domains()))
	for _, d := range content.Domains() {
		digest, err := tracker.CurrentHash(d)
		require.NoError(t, err)
		assert.Equal(t, digest, all[d], d)
	}
}
