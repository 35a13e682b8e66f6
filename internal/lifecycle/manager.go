// Package lifecycle owns the store handle: opening it, synchronizing content
// into it, and tearing it down and rebuilding it on reset.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/contentsync"
	"github.com/example/dojang/internal/database"
	"github.com/example/dojang/internal/progress"
	"github.com/example/dojang/internal/settings"
	"github.com/example/dojang/internal/spaced_repetition"
)

var (
	// ErrResetting is returned while a reset is in progress.
	ErrResetting = errors.New("store reset in progress")
	// ErrStaleHandle is returned by services built for a store that has been
	// replaced by a reset.
	ErrStaleHandle = errors.New("store handle is stale")
	// ErrStoreFailed is returned when the store is closed or a reset could
	// not recreate it.
	ErrStoreFailed = errors.New("store unavailable")
)

// State is the manager's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateActive
	StateResetting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateActive:
		return "active"
	case StateResetting:
		return "resetting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Services is the set of services bound to one store generation.
type Services struct {
	Generation string
	Cache      *progress.Cache
	Progress   *progress.Service
	Profiles   *progress.ProfileService

	unsubscribe func()
}

// Options configures a Manager.
type Options struct {
	StorePath string
	Settings  *settings.Store
	Content   fs.FS
	Locator   content.Locator
	Leitner   *spaced_repetition.Leitner
	Exporter  progress.Exporter
	Logger    *zap.Logger
	// Opener creates the store. Defaults to database.Open.
	Opener database.Opener
	// Remove deletes a store file. Defaults to os.Remove.
	Remove func(name string) error
}

// Manager owns the store handle and the services bound to it.
type Manager struct {
	opts    Options
	logger  *zap.Logger
	scanner *content.Scanner
	tracker *content.VersionTracker

	// mu serializes open, close, content sync and reset.
	mu        sync.Mutex
	resetting atomic.Bool

	stateMu  sync.RWMutex
	state    State
	store    *database.Store
	services *Services
	token    string

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a manager. The store is not opened until Open.
func New(opts Options) *Manager {
	if opts.Opener == nil {
		opts.Opener = database.Open
	}
	if opts.Remove == nil {
		opts.Remove = os.Remove
	}
	if opts.Leitner == nil {
		opts.Leitner = spaced_repetition.New(spaced_repetition.DefaultConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := content.NewScanner(opts.Content, opts.Locator, logger)
	return &Manager{
		opts:    opts,
		logger:  logger,
		scanner: scanner,
		tracker: content.NewVersionTracker(scanner, opts.Settings),
		subs:    make(map[int]func(Event)),
	}
}

// Open opens the store and builds the services.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateActive {
		return nil
	}
	store, err := m.opts.Opener(m.opts.StorePath)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("failed to open store: %w", err)
	}
	m.install(store)
	m.logger.Info("Store opened", zap.String("path", m.opts.StorePath), zap.String("token", m.ResetToken()))
	return nil
}

// Close releases the services and closes the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store := m.release()
	m.setState(StateClosed)
	if store == nil {
		return nil
	}
	return store.Close()
}

// Store returns the current store handle.
func (m *Manager) Store() (*database.Store, error) {
	if m.resetting.Load() {
		return nil, ErrResetting
	}
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.state != StateActive || m.store == nil {
		return nil, ErrStoreFailed
	}
	return m.store, nil
}

// Services returns the services bound to the current store.
func (m *Manager) Services() (*Services, error) {
	if m.resetting.Load() {
		return nil, ErrResetting
	}
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.state != StateActive || m.services == nil {
		return nil, ErrStoreFailed
	}
	return m.services, nil
}

// Check implements progress.Gate.
func (m *Manager) Check(generation string) error {
	if m.resetting.Load() {
		return ErrResetting
	}
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.state != StateActive {
		return ErrStoreFailed
	}
	if generation != m.token {
		return ErrStaleHandle
	}
	return nil
}

// IsResetting reports whether a reset is in progress.
func (m *Manager) IsResetting() bool {
	return m.resetting.Load()
}

// ResetToken changes on every reset. Observers holding entity references
// compare it to the token they saw last.
func (m *Manager) ResetToken() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.token
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	if m.resetting.Load() {
		return StateResetting
	}
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Tracker returns the content version tracker.
func (m *Manager) Tracker() *content.VersionTracker {
	return m.tracker
}

// SynchronizeAllContent runs the hash-gated content sync against the store.
func (m *Manager) SynchronizeAllContent(ctx context.Context) (contentsync.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synchronize(ctx, false)
}

// ForceSynchronizeAllContent reloads every domain regardless of its hash.
func (m *Manager) ForceSynchronizeAllContent(ctx context.Context) (contentsync.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synchronize(ctx, true)
}

// CollectOrphans deletes progress whose curriculum entity no longer exists.
func (m *Manager) CollectOrphans(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, err := m.Store()
	if err != nil {
		return 0, err
	}
	terms, err := database.NewTerminologyProgressRepository(store).DeleteOrphans(ctx)
	if err != nil {
		return 0, err
	}
	rest, err := database.NewMasteryProgressRepository(store).DeleteOrphans(ctx)
	if err != nil {
		return terms, err
	}
	return terms + rest, nil
}

func (m *Manager) synchronize(ctx context.Context, force bool) (contentsync.Result, error) {
	store, err := m.Store()
	if err != nil {
		return contentsync.Result{}, err
	}
	engine := contentsync.NewDefaultEngine(m.scanner, m.tracker, m.opts.Settings, store, m.logger)
	res, err := engine.SynchronizeAll(ctx, force)
	if err != nil {
		return res, err
	}
	if res.RequiresReset {
		m.logger.Warn("Content sync found corrupted belt levels, reset the store to repair them")
	}
	return res, nil
}

// ResetStore deletes the store files, recreates the store, rebuilds the
// services and reloads all content. The resetting flag is cleared on every
// path out. There is no rollback: once the files are gone a failed recreate
// leaves the manager in StateFailed until a later reset succeeds.
func (m *Manager) ResetStore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st := m.State(); st != StateActive && st != StateFailed {
		return fmt.Errorf("cannot reset a %s store: %w", st, ErrStoreFailed)
	}

	m.resetting.Store(true)
	log := m.logger.With(zap.String("path", m.opts.StorePath))
	log.Info("Store reset started")
	m.broadcast(Event{Type: EventResetStarted, Token: m.ResetToken()})

	fail := func(err error) error {
		m.resetting.Store(false)
		log.Error("Store reset failed", zap.Error(err))
		m.broadcast(Event{Type: EventResetFailed, Token: m.ResetToken(), Err: err})
		return err
	}

	if old := m.release(); old != nil {
		if err := old.Close(); err != nil {
			log.Warn("Failed to close store before reset", zap.Error(err))
		}
	}
	log.Debug("Services released")

	for i, name := range database.StoreFiles(m.opts.StorePath) {
		err := m.opts.Remove(name)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
		case i == 0:
			log.Error("Failed to delete store file, continuing", zap.String("file", name), zap.Error(err))
		default:
			log.Warn("Failed to delete store side file", zap.String("file", name), zap.Error(err))
		}
	}

	store, err := m.opts.Opener(m.opts.StorePath)
	if err != nil {
		m.setState(StateFailed)
		return fail(fmt.Errorf("failed to recreate store: %w", err))
	}
	m.install(store)
	log.Info("Store recreated", zap.String("token", m.ResetToken()))

	m.resetting.Store(false)

	res, err := m.synchronize(ctx, true)
	if err != nil {
		return fail(fmt.Errorf("failed to reload content after reset: %w", err))
	}
	if !res.OK() {
		log.Warn("Content reload after reset incomplete", zap.Any("failed_domains", res.Failed))
	}

	log.Info("Store reset completed")
	m.broadcast(Event{Type: EventResetCompleted, Token: m.ResetToken()})
	return nil
}

// install binds a fresh service set and reset token to store.
func (m *Manager) install(store *database.Store) {
	token := uuid.NewString()
	services := m.buildServices(store, token)

	m.stateMu.Lock()
	m.store = store
	m.services = services
	m.token = token
	m.state = StateActive
	m.stateMu.Unlock()
}

// release drops the services and returns the store so the caller can close
// it.
func (m *Manager) release() *database.Store {
	m.stateMu.Lock()
	services, store := m.services, m.store
	m.services, m.store = nil, nil
	m.stateMu.Unlock()

	if services != nil {
		services.unsubscribe()
		services.Cache.Clear()
	}
	return store
}

func (m *Manager) buildServices(store *database.Store, token string) *Services {
	cache := progress.NewCache()
	s := &Services{
		Generation: token,
		Cache:      cache,
		Progress:   progress.NewService(store, m, token, m.opts.Leitner, cache, m.logger),
		Profiles:   progress.NewProfileService(store, m, token, cache, m.opts.Exporter),
	}
	s.unsubscribe = m.Subscribe(func(ev Event) {
		if ev.Type == EventResetStarted {
			cache.Clear()
		}
	})
	return s
}

func (m *Manager) setState(st State) {
	m.stateMu.Lock()
	m.state = st
	m.stateMu.Unlock()
}
