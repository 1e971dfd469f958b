package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/events"
	"github.com/spec-kit/mentor-portal/internal/gateway"
	"github.com/spec-kit/mentor-portal/internal/gateway/gatewaytest"
	"github.com/spec-kit/mentor-portal/internal/service"
	"github.com/spec-kit/mentor-portal/internal/tokenstore"
)

type fixture struct {
	gw     *gatewaytest.Server
	authn  *service.AuthService
	tokens tokenstore.Store
	store  *Store
	events *[]events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := gatewaytest.New(t)
	authn := service.NewAuthService(gateway.NewClient(gw.URL, nil), zap.NewNop())
	tokens := tokenstore.NewMemoryStore()

	var mu sync.Mutex
	seen := []events.Event{}
	d := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventSessionAuthenticated, events.EventSessionCleared,
		events.EventSessionFailed, events.EventSessionErrorCleared,
	} {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			seen = append(seen, e)
			mu.Unlock()
			return nil
		})
	}

	return &fixture{
		gw:     gw,
		authn:  authn,
		tokens: tokens,
		store:  NewStore(authn, tokens, WithDispatcher(d)),
		events: &seen,
	}
}

func storedToken(t *testing.T, s tokenstore.Store) (string, bool) {
	t.Helper()
	tok, ok, err := s.Get(context.Background())
	require.NoError(t, err)
	return tok, ok
}

func TestInitialState(t *testing.T) {
	f := newFixture(t)
	st := f.store.Snapshot()
	assert.Equal(t, State{}, st)
	assert.Equal(t, StatusAnonymous, st.Status())
}

func TestRegisterMentorAuthenticates(t *testing.T) {
	f := newFixture(t)

	err := f.store.Register(context.Background(), domain.RegisterInput{
		Email: "a@b.com", Password: "abcdef", CustomerType: domain.CustomerTypeMentor,
	})
	require.NoError(t, err)

	st := f.store.Snapshot()
	assert.Equal(t, StatusAuthenticated, st.Status())
	require.NotNil(t, st.User)
	assert.Equal(t, domain.CustomerTypeMentor, st.User.CustomerType)
	assert.Equal(t, "a@b.com", st.User.Email)
	assert.Empty(t, st.Error)

	tok, ok := storedToken(t, f.tokens)
	assert.True(t, ok)
	assert.Equal(t, st.Token, tok)

	require.NotEmpty(t, *f.events)
	assert.Equal(t, events.EventSessionAuthenticated, (*f.events)[0].Type)
	assert.Equal(t, events.CauseRegister, (*f.events)[0].Cause)
}

func TestLoginThenInitializeInFreshProcess(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("mentee@x.io", "pw", domain.CustomerTypeMentee)

	require.NoError(t, f.store.Login(context.Background(), "mentee@x.io", "pw"))
	loggedIn := f.store.Snapshot()

	// a new store over the same storage stands in for a restarted process
	fresh := NewStore(f.authn, f.tokens)
	require.NoError(t, fresh.InitializeAuth(context.Background()))

	st := fresh.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, loggedIn.Token, st.Token)
	require.NotNil(t, st.User)
	assert.Equal(t, loggedIn.User.CustomerType, st.User.CustomerType)
	assert.Equal(t, loggedIn.User.UserID, st.User.UserID)
}

func TestLoginFailureKeepsAnonymousAndSetsError(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)

	err := f.store.Login(context.Background(), "m@x.io", "nope")
	require.Error(t, err)

	st := f.store.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Token)
	assert.False(t, st.Loading)
	assert.Equal(t, "bad credentials", st.Error)

	_, ok := storedToken(t, f.tokens)
	assert.False(t, ok)

	f.store.ClearError()
	st = f.store.Snapshot()
	assert.Empty(t, st.Error)
	assert.False(t, st.IsAuthenticated, "clearError does not touch auth state")
}

func TestClearErrorLeavesAuthenticatedSession(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	require.NoError(t, f.store.Login(context.Background(), "m@x.io", "pw"))
	_ = f.store.Login(context.Background(), "m@x.io", "wrong")

	before := f.store.Snapshot()
	require.NotEmpty(t, before.Error)
	assert.True(t, before.IsAuthenticated, "failed login keeps the existing session")

	f.store.ClearError()
	after := f.store.Snapshot()
	assert.Empty(t, after.Error)
	assert.Equal(t, before.Token, after.Token)
	assert.True(t, after.IsAuthenticated)
}

func TestInitializeWithoutStoredToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.InitializeAuth(context.Background()))
	assert.Equal(t, StatusAnonymous, f.store.Snapshot().Status())
	assert.Empty(t, *f.events)
}

func TestInitializeWithUndecodableTokenIsOptimistic(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Save(context.Background(), "opaque-token"))

	require.NoError(t, f.store.InitializeAuth(context.Background()))
	st := f.store.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "opaque-token", st.Token)
	assert.Nil(t, st.User)
}

func TestValidateSuccess(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	require.NoError(t, f.tokens.Save(context.Background(), f.gw.Issue("m@x.io")))
	require.NoError(t, f.store.InitializeAuth(context.Background()))

	require.NoError(t, f.store.ValidateToken(context.Background()))
	st := f.store.Snapshot()
	assert.Equal(t, StatusAuthenticated, st.Status())
	assert.Empty(t, st.Error)
}

func TestValidateFailureClearsSilently(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	require.NoError(t, f.store.Login(context.Background(), "m@x.io", "pw"))
	f.gw.Revoke(f.store.Snapshot().Token)

	err := f.store.ValidateToken(context.Background())
	require.Error(t, err)

	st := f.store.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Token)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Error, "expired sessions are not reported as errors")
	assert.False(t, st.Loading)

	_, ok := storedToken(t, f.tokens)
	assert.False(t, ok)
}

func TestValidateWithoutToken(t *testing.T) {
	f := newFixture(t)
	err := f.store.ValidateToken(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, f.gw.Calls("GET /auth/users/authenticate"))
	assert.False(t, f.store.Snapshot().Loading)
}

func TestLogoutClearsEvenWhenGatewayFails(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	require.NoError(t, f.store.Login(context.Background(), "m@x.io", "pw"))
	f.gw.LogoutStatus = http.StatusInternalServerError

	f.store.Logout(context.Background())

	st := f.store.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Token)
	assert.Empty(t, st.Error)
	_, ok := storedToken(t, f.tokens)
	assert.False(t, ok)
	assert.Equal(t, 1, f.gw.Calls("POST /auth/users/logout"))
}

func TestLogoutWithCanceledContextStillClears(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	require.NoError(t, f.store.Login(context.Background(), "m@x.io", "pw"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.store.Logout(ctx)

	assert.False(t, f.store.Authenticated())
	_, ok := storedToken(t, f.tokens)
	assert.False(t, ok)
}

// blockingAuth parks Authenticate until released.
type blockingAuth struct {
	started chan struct{}
	release chan error
}

func (b *blockingAuth) Register(context.Context, domain.RegisterInput) (domain.AuthResult, error) {
	return domain.AuthResult{}, errors.New("unused")
}

func (b *blockingAuth) Login(_ context.Context, email, _ string) (domain.AuthResult, error) {
	return domain.AuthResult{UserID: 1, Username: email, JWT: "new-token", Type: domain.CustomerTypeMentor}, nil
}

func (b *blockingAuth) Authenticate(ctx context.Context, _ string) (bool, error) {
	b.started <- struct{}{}
	select {
	case err := <-b.release:
		return err == nil, err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (b *blockingAuth) Logout(context.Context, string) {}

func TestLoadingWhileValidating(t *testing.T) {
	authn := &blockingAuth{started: make(chan struct{}), release: make(chan error)}
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(context.Background(), "t"))
	store := NewStore(authn, tokens)
	require.NoError(t, store.InitializeAuth(context.Background()))

	done := make(chan error)
	go func() { done <- store.ValidateToken(context.Background()) }()

	<-authn.started
	assert.True(t, store.Snapshot().Loading)
	assert.Equal(t, StatusValidating, store.Snapshot().Status())

	authn.release <- nil
	require.NoError(t, <-done)
	assert.False(t, store.Snapshot().Loading)
	assert.True(t, store.Authenticated())
}

func TestCanceledValidateDoesNotApply(t *testing.T) {
	authn := &blockingAuth{started: make(chan struct{}), release: make(chan error)}
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(context.Background(), "t"))
	store := NewStore(authn, tokens)
	require.NoError(t, store.InitializeAuth(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- store.ValidateToken(ctx) }()

	<-authn.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	st := store.Snapshot()
	assert.True(t, st.IsAuthenticated, "an abandoned validation leaves state alone")
	assert.False(t, st.Loading)
	tok, ok := storedToken(t, tokens)
	assert.True(t, ok)
	assert.Equal(t, "t", tok)
}

func TestStaleValidateFailureDoesNotClearNewSession(t *testing.T) {
	authn := &blockingAuth{started: make(chan struct{}), release: make(chan error)}
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(context.Background(), "old-token"))
	store := NewStore(authn, tokens)
	require.NoError(t, store.InitializeAuth(context.Background()))

	done := make(chan error)
	go func() { done <- store.ValidateToken(context.Background()) }()
	<-authn.started

	require.NoError(t, store.Login(context.Background(), "m@x.io", "pw"))
	assert.True(t, store.Snapshot().Loading, "validate still in flight")

	authn.release <- errors.New("invalid token")
	require.Error(t, <-done)

	st := store.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "new-token", st.Token)
	assert.False(t, st.Loading)
	tok, _ := storedToken(t, tokens)
	assert.Equal(t, "new-token", tok)
}

type failingTokens struct{ tokenstore.Store }

func (failingTokens) Save(context.Context, string) error { return errors.New("disk full") }

func TestLoginStorageFailureDoesNotAuthenticate(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	store := NewStore(f.authn, failingTokens{tokenstore.NewMemoryStore()})

	err := store.Login(context.Background(), "m@x.io", "pw")
	require.Error(t, err)

	st := store.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Token)
	assert.Equal(t, MsgStorageFailed, st.Error)
}

// unreadableTokens fails every read once broken is set.
type unreadableTokens struct {
	tokenstore.Store
	broken bool
}

func (u *unreadableTokens) Get(ctx context.Context) (string, bool, error) {
	if u.broken {
		return "", false, errors.New("permission denied")
	}
	return u.Store.Get(ctx)
}

func TestInitializeKeepsSessionWhenStorageUnreadable(t *testing.T) {
	f := newFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	tokens := &unreadableTokens{Store: tokenstore.NewMemoryStore()}
	store := NewStore(f.authn, tokens)
	require.NoError(t, store.Login(context.Background(), "m@x.io", "pw"))
	before := store.Snapshot()

	tokens.broken = true
	err := store.InitializeAuth(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	after := store.Snapshot()
	assert.Equal(t, before, after)
	assert.False(t, after.Loading)

	tokens.broken = false
	tok, ok := storedToken(t, tokens)
	assert.True(t, ok)
	assert.Equal(t, before.Token, tok)
}

func TestInitializeUnreadableStorageOnAnonymousSession(t *testing.T) {
	f := newFixture(t)
	store := NewStore(f.authn, &unreadableTokens{Store: tokenstore.NewMemoryStore(), broken: true})

	require.Error(t, store.InitializeAuth(context.Background()))
	assert.Equal(t, StatusAnonymous, store.Snapshot().Status())
}

// perUserAuth issues "token-<email>" and reports each login it answered.
type perUserAuth struct {
	blockingAuth
	answered chan string
}

func (a *perUserAuth) Login(_ context.Context, email, _ string) (domain.AuthResult, error) {
	defer func() { a.answered <- email }()
	return domain.AuthResult{UserID: 1, Username: email, JWT: "token-" + email, Type: domain.CustomerTypeMentor}, nil
}

// parkedTokens holds the Save of one token, after writing it, until released.
type parkedTokens struct {
	tokenstore.Store
	token   string
	written chan struct{}
	release chan struct{}
}

func (p *parkedTokens) Save(ctx context.Context, token string) error {
	if err := p.Store.Save(ctx, token); err != nil {
		return err
	}
	if token == p.token {
		close(p.written)
		<-p.release
	}
	return nil
}

func TestOverlappingLoginsKeepSessionAndStorageInStep(t *testing.T) {
	authn := &perUserAuth{answered: make(chan string, 2)}
	tokens := &parkedTokens{
		Store:   tokenstore.NewMemoryStore(),
		token:   "token-a",
		written: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewStore(authn, tokens)

	first := make(chan error, 1)
	go func() { first <- store.Login(context.Background(), "a", "pw") }()
	<-tokens.written

	second := make(chan error, 1)
	go func() { second <- store.Login(context.Background(), "b", "pw") }()
	<-authn.answered
	<-authn.answered

	close(tokens.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	st := store.Snapshot()
	stored, ok := storedToken(t, tokens)
	require.True(t, ok)
	assert.Equal(t, "token-b", stored)
	assert.Equal(t, stored, st.Token)
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
}
