package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sstasesores/trainingsoft/internal/auth"
	"github.com/sstasesores/trainingsoft/internal/identity"
	"github.com/sstasesores/trainingsoft/internal/storage"
)

type stubAuthenticator struct {
	identity identity.Identity
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (a *stubAuthenticator) respond(ctx context.Context, role identity.Role) (identity.Identity, error) {
	a.calls.Add(1)
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		seen := a.maxSeen.Load()
		if n <= seen || a.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
		}
	}
	if a.err != nil {
		return identity.Identity{}, a.err
	}
	id := a.identity
	if id.Role == "" {
		built, err := identity.New(identity.Fields{ID: "1", Role: role, SessionToken: "tok"})
		if err != nil {
			return identity.Identity{}, err
		}
		id = built
	}
	return id, nil
}

func (a *stubAuthenticator) AuthenticateCompany(ctx context.Context, taxID, password string) (identity.Identity, error) {
	return a.respond(ctx, identity.RoleCompany)
}

func (a *stubAuthenticator) AuthenticatePersonal(ctx context.Context, documentNumber string) (identity.Identity, error) {
	return a.respond(ctx, identity.RoleTrainee)
}

func (a *stubAuthenticator) AuthenticateInstructor(ctx context.Context, username, password string) (identity.Identity, error) {
	return a.respond(ctx, identity.RoleInstructor)
}

type faultyStorage struct {
	storage.Storage
	getErr error
	setErr error
	delErr error
}

func (f *faultyStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Storage.Get(ctx, key)
}

func (f *faultyStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Storage.Set(ctx, key, value)
}

func (f *faultyStorage) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Storage.Delete(ctx, key)
}

func acmeIdentity(t *testing.T) identity.Identity {
	t.Helper()
	id, err := identity.New(identity.Fields{
		ID:           "7",
		Role:         identity.RoleCompany,
		DisplayName:  "Acme Corp",
		TaxID:        "12345678901",
		SessionToken: "tok123",
		Attributes:   map[string]string{"idemp": "7"},
	})
	require.NoError(t, err)
	return id
}

func hydrated(t *testing.T, st storage.Storage, authn Authenticator) *Store {
	t.Helper()
	s := NewStore(st, authn)
	s.Hydrate(context.Background())
	return s
}

func TestHydrateEmptyStorage(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage(), &stubAuthenticator{})
	require.Equal(t, StateUninitialized, s.State())

	require.Equal(t, HydratedAnonymous, s.Hydrate(context.Background()))
	require.Equal(t, StateAnonymous, s.State())
	require.Equal(t, identity.Flags{}, s.Flags())
	_, ok := s.Current()
	require.False(t, ok)
}

func TestHydrateCorruptBlobDegradesToAnonymous(t *testing.T) {
	for _, blob := range []string{"{not json", `{"id":"1","tipo":"admin"}`, "[]"} {
		st := storage.NewMemoryStorage()
		require.NoError(t, st.Set(context.Background(), DefaultKey, []byte(blob)))

		s := NewStore(st, &stubAuthenticator{})
		require.Equal(t, HydrationDegraded, s.Hydrate(context.Background()), blob)
		require.Equal(t, StateAnonymous, s.State(), blob)

		_, err := st.Get(context.Background(), DefaultKey)
		require.ErrorIs(t, err, storage.ErrNotFound, "corrupt record discarded")
	}
}

func TestHydrateReadFailureDegradesToAnonymous(t *testing.T) {
	st := &faultyStorage{Storage: storage.NewMemoryStorage(), getErr: errors.New("disk unplugged")}
	s := NewStore(st, &stubAuthenticator{})
	require.Equal(t, HydrationDegraded, s.Hydrate(context.Background()))
	require.Equal(t, StateAnonymous, s.State())
}

func TestHydrateRunsOnce(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := NewStore(st, &stubAuthenticator{})
	require.Equal(t, HydratedAnonymous, s.Hydrate(context.Background()))

	data, err := identity.Marshal(acmeIdentity(t))
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), DefaultKey, data))

	require.Equal(t, HydratedAnonymous, s.Hydrate(context.Background()))
	require.Equal(t, StateAnonymous, s.State())
}

func TestLoginRejectedBeforeHydration(t *testing.T) {
	authn := &stubAuthenticator{}
	s := NewStore(storage.NewMemoryStorage(), authn)

	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.ErrorIs(t, err, ErrNotHydrated)
	require.ErrorIs(t, s.Logout(context.Background()), ErrNotHydrated)
	require.Zero(t, authn.calls.Load())
}

func TestLoginPersistsThenRestartRestoresEqualIdentity(t *testing.T) {
	st := storage.NewMemoryStorage()
	want := acmeIdentity(t)
	s := hydrated(t, st, &stubAuthenticator{identity: want})

	got, err := s.LoginCompany(context.Background(), "12345678901", "secret")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, identity.Flags{Authenticated: true, Company: true}, s.Flags())

	restarted := NewStore(st, &stubAuthenticator{})
	require.Equal(t, HydratedAuthenticated, restarted.Hydrate(context.Background()))
	restored, ok := restarted.Current()
	require.True(t, ok)
	require.Equal(t, want, restored)
	require.True(t, want.Equal(restored))
}

func TestLoginFlagsPerRole(t *testing.T) {
	ctx := context.Background()

	s := hydrated(t, storage.NewMemoryStorage(), &stubAuthenticator{})
	_, err := s.LoginPersonal(ctx, "70707070")
	require.NoError(t, err)
	require.Equal(t, identity.Flags{Authenticated: true, Trainee: true}, s.Flags())

	s = hydrated(t, storage.NewMemoryStorage(), &stubAuthenticator{})
	_, err = s.LoginInstructor(ctx, "jperez", "pw")
	require.NoError(t, err)
	require.Equal(t, identity.Flags{Authenticated: true, Instructor: true}, s.Flags())
}

func TestLoginFailureKeepsAnonymous(t *testing.T) {
	st := storage.NewMemoryStorage()
	rejection := &auth.Error{Kind: auth.KindRejected, Message: "bad password"}
	s := hydrated(t, st, &stubAuthenticator{err: rejection})

	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.Equal(t, "bad password", err.Error())
	require.Equal(t, StateAnonymous, s.State())

	_, err = st.Get(context.Background(), DefaultKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginStorageFailureIsSurfaced(t *testing.T) {
	writeErr := errors.New("read-only filesystem")
	st := &faultyStorage{Storage: storage.NewMemoryStorage(), setErr: writeErr}
	s := hydrated(t, st, &stubAuthenticator{identity: acmeIdentity(t)})

	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.Error(t, err)
	require.Equal(t, auth.KindRejected, auth.KindOf(err))
	require.Equal(t, MsgPersistFailed, err.Error())
	require.ErrorIs(t, err, writeErr)
	require.Equal(t, StateAnonymous, s.State())
	_, ok := s.Current()
	require.False(t, ok)
}

func TestLateResponseAfterCancellationIsDiscarded(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := hydrated(t, st, &stubAuthenticator{identity: acmeIdentity(t), delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.LoginCompany(ctx, "1", "p")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateAnonymous, s.State())

	_, err = st.Get(context.Background(), DefaultKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// cancelDuringSet cancels the login context while the write is in flight.
type cancelDuringSet struct {
	storage.Storage
	cancel context.CancelFunc
}

func (c *cancelDuringSet) Set(ctx context.Context, key string, value []byte) error {
	c.cancel()
	if err := c.Storage.Set(ctx, key, value); err != nil {
		return err
	}
	return ctx.Err()
}

func TestCancellationDuringPersistKeepsStorageAndMemoryInStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := storage.NewMemoryStorage()
	st := &cancelDuringSet{Storage: mem, cancel: cancel}
	s := hydrated(t, st, &stubAuthenticator{identity: acmeIdentity(t)})

	id, err := s.LoginCompany(ctx, "1", "p")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, s.State())

	restarted := hydrated(t, mem, &stubAuthenticator{})
	restored, ok := restarted.Current()
	require.True(t, ok)
	require.True(t, id.Equal(restored))
}

func TestLogoutClearsStorageAndMemory(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := hydrated(t, st, &stubAuthenticator{identity: acmeIdentity(t)})
	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background()))
	require.Equal(t, StateAnonymous, s.State())
	require.Equal(t, identity.Flags{}, s.Flags())

	restarted := NewStore(st, &stubAuthenticator{})
	require.Equal(t, HydratedAnonymous, restarted.Hydrate(context.Background()))

	require.NoError(t, s.Logout(context.Background()), "logout is idempotent")
}

func TestLogoutDeleteFailureKeepsSession(t *testing.T) {
	st := &faultyStorage{Storage: storage.NewMemoryStorage()}
	s := hydrated(t, st, &stubAuthenticator{identity: acmeIdentity(t)})
	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.NoError(t, err)

	st.delErr = errors.New("locked")
	require.Error(t, s.Logout(context.Background()))
	require.Equal(t, StateAuthenticated, s.State())
}

func TestConcurrentLoginsAreSerialized(t *testing.T) {
	authn := &stubAuthenticator{delay: 10 * time.Millisecond}
	s := hydrated(t, storage.NewMemoryStorage(), authn)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.LoginPersonal(context.Background(), "70707070")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 8, authn.calls.Load())
	require.EqualValues(t, 1, authn.maxSeen.Load())
	require.Equal(t, StateAuthenticated, s.State())
}

func TestQueuedLoginHonoursCancellation(t *testing.T) {
	authn := &stubAuthenticator{delay: 200 * time.Millisecond}
	s := hydrated(t, storage.NewMemoryStorage(), authn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.LoginPersonal(context.Background(), "1")
	}()
	require.Eventually(t, func() bool { return authn.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.LoginCompany(ctx, "1", "p")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualValues(t, 1, authn.calls.Load())
	<-done
}

func TestOnChangeObservesTransitions(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage(), &stubAuthenticator{identity: acmeIdentity(t)})
	var states []State
	var flags []identity.Flags
	s.OnChange(func(snap Snapshot) {
		states = append(states, snap.State)
		flags = append(flags, snap.Flags)
	})

	s.Hydrate(context.Background())
	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.NoError(t, err)
	require.NoError(t, s.Logout(context.Background()))

	require.Equal(t, []State{StateHydrating, StateAnonymous, StateAuthenticated, StateAnonymous}, states)
	require.True(t, flags[2].Company)
	require.False(t, flags[3].Authenticated)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := hydrated(t, storage.NewMemoryStorage(), &stubAuthenticator{identity: acmeIdentity(t)})
	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Identity.DisplayName = "Mutated"
	current, _ := s.Current()
	require.Equal(t, "Acme Corp", current.DisplayName)
}

func TestWithKey(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := NewStore(st, &stubAuthenticator{identity: acmeIdentity(t)}, WithKey("custom"))
	s.Hydrate(context.Background())
	_, err := s.LoginCompany(context.Background(), "1", "p")
	require.NoError(t, err)

	_, err = st.Get(context.Background(), "custom")
	require.NoError(t, err)
	_, err = st.Get(context.Background(), DefaultKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
