// Package session owns the single "who is logged in" value of the process and
// mirrors it to durable storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sstasesores/trainingsoft/internal/auth"
	"github.com/sstasesores/trainingsoft/internal/identity"
	"github.com/sstasesores/trainingsoft/internal/storage"
)

// DefaultKey is the storage key holding the serialized identity.
const DefaultKey = "@sst_auth_user"

// MsgPersistFailed is surfaced when a successful login cannot be saved.
const MsgPersistFailed = "No se pudo guardar la sesión. Intente nuevamente."

// ErrNotHydrated rejects login and logout before Hydrate has finished.
var ErrNotHydrated = errors.New("session: store not hydrated")

// State is the lifecycle position of the store.
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// HydrationOutcome names how the startup read ended.
type HydrationOutcome int

const (
	// HydratedAnonymous means storage held no record.
	HydratedAnonymous HydrationOutcome = iota + 1
	// HydratedAuthenticated means a valid record was restored.
	HydratedAuthenticated
	// HydrationDegraded means the read failed or the record was corrupt; the
	// store fell back to anonymous.
	HydrationDegraded
)

func (o HydrationOutcome) String() string {
	switch o {
	case HydratedAnonymous:
		return "anonymous"
	case HydratedAuthenticated:
		return "authenticated"
	case HydrationDegraded:
		return "degraded_to_anonymous"
	default:
		return "unknown"
	}
}

// Authenticator performs the three login round trips.
type Authenticator interface {
	AuthenticateCompany(ctx context.Context, taxID, password string) (identity.Identity, error)
	AuthenticatePersonal(ctx context.Context, documentNumber string) (identity.Identity, error)
	AuthenticateInstructor(ctx context.Context, username, password string) (identity.Identity, error)
}

// Snapshot is a read-only view of the store.
type Snapshot struct {
	State    State
	Identity *identity.Identity
	Flags    identity.Flags
}

// Store is the single source of truth for the current identity. Construct
// one per process and pass it to whatever needs it.
type Store struct {
	storage storage.Storage
	authn   Authenticator
	logger  *slog.Logger
	key     string

	// ops serializes login and logout; Acquire honours ctx so queued
	// callers can give up.
	ops *semaphore.Weighted

	hydrateOnce sync.Once
	outcome     HydrationOutcome

	mu        sync.RWMutex
	state     State
	current   *identity.Identity
	listeners []func(Snapshot)
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore constructs a store in StateUninitialized.
func NewStore(st storage.Storage, authn Authenticator, opts ...Option) *Store {
	s := &Store{
		storage: st,
		authn:   authn,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		key:     DefaultKey,
		ops:     semaphore.NewWeighted(1),
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores a persisted identity. It runs once; later calls return
// the first outcome. Storage failures never surface as errors.
func (s *Store) Hydrate(ctx context.Context) HydrationOutcome {
	s.hydrateOnce.Do(func() {
		s.setState(StateHydrating, nil)
		outcome, id := s.readPersisted(ctx)
		s.outcome = outcome
		if id != nil {
			s.setState(StateAuthenticated, id)
			return
		}
		s.setState(StateAnonymous, nil)
	})
	return s.outcome
}

func (s *Store) readPersisted(ctx context.Context) (HydrationOutcome, *identity.Identity) {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return HydratedAnonymous, nil
		}
		s.logger.Warn("session hydration degraded to anonymous", slog.String("reason", "read"), slog.Any("error", err))
		return HydrationDegraded, nil
	}
	id, err := identity.Unmarshal(data)
	if err != nil {
		s.logger.Warn("session hydration degraded to anonymous", slog.String("reason", "corrupt"), slog.Any("error", err))
		if delErr := s.storage.Delete(ctx, s.key); delErr != nil {
			s.logger.Warn("discard corrupt session", slog.Any("error", delErr))
		}
		return HydrationDegraded, nil
	}
	return HydratedAuthenticated, &id
}

// LoginCompany authenticates a company and adopts the resulting identity.
func (s *Store) LoginCompany(ctx context.Context, taxID, password string) (identity.Identity, error) {
	return s.login(ctx, func(ctx context.Context) (identity.Identity, error) {
		return s.authn.AuthenticateCompany(ctx, taxID, password)
	})
}

// LoginPersonal authenticates a trainee by document number.
func (s *Store) LoginPersonal(ctx context.Context, documentNumber string) (identity.Identity, error) {
	return s.login(ctx, func(ctx context.Context) (identity.Identity, error) {
		return s.authn.AuthenticatePersonal(ctx, documentNumber)
	})
}

// LoginInstructor authenticates an instructor.
func (s *Store) LoginInstructor(ctx context.Context, username, password string) (identity.Identity, error) {
	return s.login(ctx, func(ctx context.Context) (identity.Identity, error) {
		return s.authn.AuthenticateInstructor(ctx, username, password)
	})
}

// login runs resolve → persist → adopt. The in-memory state only changes
// after the storage write has been acknowledged.
func (s *Store) login(ctx context.Context, resolve func(context.Context) (identity.Identity, error)) (identity.Identity, error) {
	if err := s.ready(); err != nil {
		return identity.Identity{}, err
	}
	if err := s.ops.Acquire(ctx, 1); err != nil {
		return identity.Identity{}, err
	}
	defer s.ops.Release(1)

	id, err := resolve(ctx)
	if err != nil {
		return identity.Identity{}, err
	}
	// A response that arrives after cancellation must not resurrect a session.
	if err := ctx.Err(); err != nil {
		return identity.Identity{}, err
	}

	data, err := identity.Marshal(id)
	if err != nil {
		return identity.Identity{}, auth.Rejected(MsgPersistFailed, fmt.Errorf("session: encode: %w", err))
	}
	// Once started the write runs to completion so storage and memory agree.
	if err := s.storage.Set(context.WithoutCancel(ctx), s.key, data); err != nil {
		s.logger.Error("persist session", slog.String("role", string(id.Role)), slog.Any("error", err))
		return identity.Identity{}, auth.Rejected(MsgPersistFailed, fmt.Errorf("session: persist: %w", err))
	}

	s.setState(StateAuthenticated, &id)
	s.logger.Info("session started", slog.String("role", string(id.Role)), slog.String("id", id.ID))
	return id, nil
}

// Logout deletes the durable record and then clears memory. When the delete
// fails the store stays authenticated so the caller can retry.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.ops.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.ops.Release(1)

	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Error("clear persisted session", slog.Any("error", err))
		return fmt.Errorf("session: logout: %w", err)
	}
	if s.State() == StateAuthenticated {
		s.logger.Info("session ended")
	}
	s.setState(StateAnonymous, nil)
	return nil
}

func (s *Store) ready() error {
	switch s.State() {
	case StateAnonymous, StateAuthenticated:
		return nil
	default:
		return ErrNotHydrated
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the current identity.
func (s *Store) Current() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return identity.Identity{}, false
	}
	return *s.current, true
}

// Flags returns the derived role flags.
func (s *Store) Flags() identity.Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return identity.FlagsFor(s.current)
}

// Snapshot returns state, identity and flags read atomically.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// OnChange registers fn to be called after every state transition.
func (s *Store) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Flags: identity.FlagsFor(s.current)}
	if s.current != nil {
		id := *s.current
		snap.Identity = &id
	}
	return snap
}

func (s *Store) setState(state State, id *identity.Identity) {
	s.mu.Lock()
	s.state = state
	if id != nil {
		cp := *id
		s.current = &cp
	} else {
		s.current = nil
	}
	snap := s.snapshotLocked()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
