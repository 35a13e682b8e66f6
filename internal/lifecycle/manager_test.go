package lifecycle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/contenttest"
	"github.com/example/dojang/internal/database"
	"github.com/example/dojang/internal/lifecycle"
	"github.com/example/dojang/internal/settings"
	"github.com/example/dojang/pkg/models"
)

type fixture struct {
	dir      string
	bundle   contenttest.Bundle
	settings *settings.Store
	manager  *lifecycle.Manager

	mu     sync.Mutex
	events []lifecycle.EventType
}

// failingOpener lets the first open through and fails the rest while fail is
// set.
type failingOpener struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (o *failingOpener) open(path string) (*database.Store, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.fail && o.calls > 1 {
		return nil, errors.New("disk full")
	}
	return database.Open(path)
}

func (o *failingOpener) setFail(fail bool) {
	o.mu.Lock()
	o.fail = fail
	o.mu.Unlock()
}

func newFixture(t *testing.T, opener database.Opener) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, bundle: contenttest.Standard()}
	root := filepath.Join(dir, "content")
	f.bundle.Write(t, root)

	var err error
	f.settings, err = settings.Open(filepath.Join(dir, "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.settings.Close() })

	f.manager = lifecycle.New(lifecycle.Options{
		StorePath: filepath.Join(dir, "dojang.db"),
		Settings:  f.settings,
		Content:   os.DirFS(root),
		Opener:    opener,
	})
	t.Cleanup(func() { _ = f.manager.Close() })

	f.manager.Subscribe(func(ev lifecycle.Event) {
		f.mu.Lock()
		f.events = append(f.events, ev.Type)
		f.mu.Unlock()
	})

	require.NoError(t, f.manager.Open(context.Background()))
	res, err := f.manager.SynchronizeAllContent(context.Background())
	require.NoError(t, err)
	require.True(t, res.OK())
	return f
}

func (f *fixture) seen() []lifecycle.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lifecycle.EventType(nil), f.events...)
}

func termCount(t *testing.T, m *lifecycle.Manager) int {
	t.Helper()
	store, err := m.Store()
	require.NoError(t, err)
	n, err := database.NewTerminologyRepository(store).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestOpenBuildsServices(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, lifecycle.StateActive, f.manager.State())
	assert.False(t, f.manager.IsResetting())
	assert.NotEmpty(t, f.manager.ResetToken())

	svc, err := f.manager.Services()
	require.NoError(t, err)
	assert.Equal(t, f.manager.ResetToken(), svc.Generation)
	assert.NoError(t, f.manager.Check(svc.Generation))
	assert.Equal(t, f.bundle.TermCount(), termCount(t, f.manager))
}

func TestResetRecreatesStoreAndReloadsContent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	svc, err := f.manager.Services()
	require.NoError(t, err)
	profile, err := svc.Profiles.Create(ctx, "Student", "10th Keup", "")
	require.NoError(t, err)
	_, err = svc.Progress.RecordReview(ctx, profile.ID, models.EntityKey{Kind: models.KindPattern, Key: "Chon-Ji"}, 1)
	require.NoError(t, err)
	oldToken := f.manager.ResetToken()

	require.NoError(t, f.manager.ResetStore(ctx))

	assert.Equal(t, lifecycle.StateActive, f.manager.State())
	assert.False(t, f.manager.IsResetting())
	assert.NotEqual(t, oldToken, f.manager.ResetToken())
	assert.Equal(t, []lifecycle.EventType{lifecycle.EventResetStarted, lifecycle.EventResetCompleted}, f.seen())

	// Curriculum is back, learner data is gone.
	assert.Equal(t, f.bundle.TermCount(), termCount(t, f.manager))
	fresh, err := f.manager.Services()
	require.NoError(t, err)
	profiles, err := fresh.Profiles.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)

	// Handles from before the reset are refused.
	_, err = svc.Profiles.List(ctx)
	assert.ErrorIs(t, err, lifecycle.ErrStaleHandle)
	assert.ErrorIs(t, f.manager.Check(oldToken), lifecycle.ErrStaleHandle)

	// Hashes live outside the store and survive it.
	digest, ok, err := f.settings.ContentHash(ctx, string(content.Terminology))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, digest)
}

func TestResetRefusesAccessWhileRunning(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	svc, err := f.manager.Services()
	require.NoError(t, err)

	var during struct {
		resetting bool
		state     lifecycle.State
		checkErr  error
		listErr   error
		svcErr    error
	}
	unsubscribe := f.manager.Subscribe(func(ev lifecycle.Event) {
		if ev.Type != lifecycle.EventResetStarted {
			return
		}
		during.resetting = f.manager.IsResetting()
		during.state = f.manager.State()
		during.checkErr = f.manager.Check(svc.Generation)
		_, during.listErr = svc.Profiles.List(ctx)
		_, during.svcErr = f.manager.Services()
	})
	defer unsubscribe()

	require.NoError(t, f.manager.ResetStore(ctx))

	assert.True(t, during.resetting)
	assert.Equal(t, lifecycle.StateResetting, during.state)
	assert.ErrorIs(t, during.checkErr, lifecycle.ErrResetting)
	assert.ErrorIs(t, during.listErr, lifecycle.ErrResetting)
	assert.ErrorIs(t, during.svcErr, lifecycle.ErrResetting)
}

func TestResetFailureClearsFlag(t *testing.T) {
	opener := &failingOpener{}
	f := newFixture(t, opener.open)
	ctx := context.Background()

	opener.setFail(true)
	err := f.manager.ResetStore(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.False(t, f.manager.IsResetting())
	assert.Equal(t, lifecycle.StateFailed, f.manager.State())
	assert.Equal(t, []lifecycle.EventType{lifecycle.EventResetStarted, lifecycle.EventResetFailed}, f.seen())

	_, err = f.manager.Services()
	assert.ErrorIs(t, err, lifecycle.ErrStoreFailed)
	_, err = f.manager.SynchronizeAllContent(ctx)
	assert.ErrorIs(t, err, lifecycle.ErrStoreFailed)

	// A later reset recovers.
	opener.setFail(false)
	require.NoError(t, f.manager.ResetStore(ctx))
	assert.Equal(t, lifecycle.StateActive, f.manager.State())
	assert.Equal(t, f.bundle.TermCount(), termCount(t, f.manager))
}

func TestResetToleratesMissingSideFiles(t *testing.T) {
	var removed []string
	dir := t.TempDir()
	root := filepath.Join(dir, "content")
	contenttest.Standard().Write(t, root)

	st, err := settings.Open(filepath.Join(dir, "settings.db"))
	require.NoError(t, err)
	defer st.Close()

	m := lifecycle.New(lifecycle.Options{
		StorePath: filepath.Join(dir, "dojang.db"),
		Settings:  st,
		Content:   os.DirFS(root),
		Remove: func(name string) error {
			removed = append(removed, filepath.Base(name))
			if filepath.Ext(name) == ".db-shm" {
				return errors.New("permission denied")
			}
			return os.Remove(name)
		},
	})
	defer m.Close()
	ctx := context.Background()
	require.NoError(t, m.Open(ctx))

	require.NoError(t, m.ResetStore(ctx))
	assert.Equal(t, []string{"dojang.db", "dojang.db-wal", "dojang.db-shm"}, removed)
	assert.Equal(t, lifecycle.StateActive, m.State())
}

func TestResetRequiresOpenStore(t *testing.T) {
	m := lifecycle.New(lifecycle.Options{StorePath: filepath.Join(t.TempDir(), "dojang.db")})
	err := m.ResetStore(context.Background())
	assert.ErrorIs(t, err, lifecycle.ErrStoreFailed)
	assert.False(t, m.IsResetting())
}

func TestCloseReleasesServices(t *testing.T) {
	f := newFixture(t, nil)
	svc, err := f.manager.Services()
	require.NoError(t, err)

	require.NoError(t, f.manager.Close())
	assert.Equal(t, lifecycle.StateClosed, f.manager.State())
	assert.ErrorIs(t, f.manager.Check(svc.Generation), lifecycle.ErrStoreFailed)
	_, err = f.manager.Store()
	assert.ErrorIs(t, err, lifecycle.ErrStoreFailed)
}

func TestCollectOrphans(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.manager.CollectOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
