// Package session holds the client's authentication state machine.
//
// A Store has three observable states: anonymous, validating (an operation
// is in flight) and authenticated. It is the only writer of the token store
// during normal operation; session and storage are set and cleared together.
//
// Calls are not serialized. Two overlapping operations both run, but storage
// writes are ordered and a sign-in whose write has been superseded does not
// touch the state. Callers should still not start a login or register while
// Snapshot().Loading is true.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/events"
	"github.com/spec-kit/mentor-portal/internal/tokenstore"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

// ErrNoSession is returned by ValidateToken when there is no token to validate.
var ErrNoSession = errors.New("no session")

// MsgStorageFailed is shown when a token was issued but could not be kept.
const MsgStorageFailed = "could not save session"

// Authenticator is the auth service as used by the store.
type Authenticator interface {
	Register(ctx context.Context, in domain.RegisterInput) (domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
	Authenticate(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string)
}

// Status is the coarse state of a session.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusValidating    Status = "validating"
	StatusAuthenticated Status = "authenticated"
)

// State is a copy of the session at one instant. Empty Token and Error mean absent.
type State struct {
	IsAuthenticated bool
	Token           string
	User            *domain.User
	Loading         bool
	Error           string
}

// Status reports which state-machine state the snapshot is in.
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusValidating
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}

// Store is the session state machine.
type Store struct {
	auth       Authenticator
	tokens     tokenstore.Store
	codec      *auth.Codec
	dispatcher events.Dispatcher
	logger     *zap.Logger

	// writeMu orders storage writes; writes counts them and is guarded by mu.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	inflight int
	writes   uint64
}

// Option customizes a Store.
type Option func(*Store)

// WithDispatcher publishes every transition on d.
func WithDispatcher(d events.Dispatcher) Option {
	return func(s *Store) { s.dispatcher = d }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an anonymous session.
func NewStore(authn Authenticator, tokens tokenstore.Store, opts ...Option) *Store {
	s := &Store{auth: authn, tokens: tokens, codec: auth.NewCodec(tokens), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Authenticated reports whether the session is authenticated.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated
}

// HasToken reports whether the session holds a token.
func (s *Store) HasToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token != ""
}

// InitializeAuth loads the stored token. A found token makes the session
// authenticated right away; the user fields come from the unverified payload
// and ValidateToken is expected to follow. If storage cannot be read the
// session is left as it was.
func (s *Store) InitializeAuth(ctx context.Context) error {
	s.begin()

	token, claims, err := s.codec.Stored(ctx)
	if ctx.Err() != nil {
		s.settle(nil)
		return ctx.Err()
	}
	if err != nil {
		s.logger.Warn("read stored token", zap.Error(err))
		s.settle(nil)
		return fmt.Errorf("read stored token: %w", err)
	}

	if token == "" {
		s.settle(func(st *State) *events.Event {
			wasAuthenticated := st.IsAuthenticated
			st.IsAuthenticated, st.Token, st.User = false, "", nil
			if !wasAuthenticated {
				return nil
			}
			return &events.Event{Type: events.EventSessionCleared, Cause: events.CauseInitialize}
		})
		return nil
	}

	user := claims.User()
	s.settle(func(st *State) *events.Event {
		st.IsAuthenticated, st.Token, st.User = true, token, user
		return &events.Event{Type: events.EventSessionAuthenticated, Cause: events.CauseInitialize, User: user}
	})
	return nil
}

// Login signs in with email and password. On failure the error message is
// recorded and the authentication state is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()
	res, err := s.auth.Login(ctx, email, password)
	return s.completeAuth(ctx, events.CauseLogin, res, err, "could not log in")
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, in domain.RegisterInput) error {
	s.begin()
	res, err := s.auth.Register(ctx, in)
	return s.completeAuth(ctx, events.CauseRegister, res, err, "could not create account")
}

func (s *Store) completeAuth(ctx context.Context, cause events.Cause, res domain.AuthResult, err error, fallback string) error {
	if ctx.Err() != nil {
		s.settle(nil)
		return ctx.Err()
	}
	if err != nil {
		s.fail(cause, apperrors.Message(err, fallback))
		return err
	}

	// The storage write commits the session: once it succeeds the
	// transition is applied even if ctx ends afterwards.
	seq, err := s.write(func() error {
		return s.tokens.Save(context.WithoutCancel(ctx), res.JWT)
	})
	if err != nil {
		s.logger.Error("persist token", zap.String("cause", string(cause)), zap.Error(err))
		s.fail(cause, MsgStorageFailed)
		return apperrors.Wrap(apperrors.CodeStorageFailed, MsgStorageFailed, http.StatusInternalServerError, err)
	}

	user := res.User()
	s.settle(func(st *State) *events.Event {
		if s.writes != seq {
			s.logger.Debug("sign-in superseded by a later storage write", zap.String("cause", string(cause)))
			return nil
		}
		st.IsAuthenticated, st.Token, st.User, st.Error = true, res.JWT, user, ""
		return &events.Event{Type: events.EventSessionAuthenticated, Cause: cause, User: user}
	})
	return nil
}

// ValidateToken confirms the current token with the gateway. If the gateway
// rejects it the session is cleared silently: Error stays empty, since an
// expired session should look like being signed out.
func (s *Store) ValidateToken(ctx context.Context) error {
	s.begin()
	token := s.Snapshot().Token

	if token == "" {
		s.clear(events.CauseValidate, "")
		return ErrNoSession
	}

	_, err := s.auth.Authenticate(ctx, token)
	if ctx.Err() != nil {
		s.settle(nil)
		return ctx.Err()
	}

	if err != nil {
		s.clear(events.CauseValidate, token)
		return err
	}

	s.settle(func(st *State) *events.Event {
		if st.Token != token {
			return nil
		}
		st.IsAuthenticated, st.Error = true, ""
		return &events.Event{Type: events.EventSessionAuthenticated, Cause: events.CauseValidate, User: st.User}
	})
	return nil
}

// Logout ends the session. The gateway is told first, but its answer does not
// matter: the local session is always cleared.
func (s *Store) Logout(ctx context.Context) {
	s.begin()
	token := s.Snapshot().Token

	s.auth.Logout(ctx, token)
	s.clear(events.CauseLogout, "")
}

// ClearError drops the recorded error and nothing else.
func (s *Store) ClearError() {
	s.mu.Lock()
	had := s.state.Error != ""
	s.state.Error = ""
	s.mu.Unlock()

	if had {
		s.publish(&events.Event{Type: events.EventSessionErrorCleared, Cause: events.CauseClearError})
	}
}

// clear removes the stored token and resets the session. When onlyToken is
// set, nothing happens if the session has moved on to a different token.
func (s *Store) clear(cause events.Cause, onlyToken string) {
	if onlyToken != "" && s.Snapshot().Token != onlyToken {
		s.settle(nil)
		return
	}

	if _, err := s.write(func() error { return s.tokens.Remove(context.Background()) }); err != nil {
		s.logger.Error("remove stored token", zap.String("cause", string(cause)), zap.Error(err))
	}

	s.settle(func(st *State) *events.Event {
		st.IsAuthenticated, st.Token, st.User, st.Error = false, "", nil, ""
		return &events.Event{Type: events.EventSessionCleared, Cause: cause}
	})
}

// write runs one storage write after any in progress and returns its position
// in write order. A failed write is not counted.
func (s *Store) write(fn func() error) (uint64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := fn(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.writes, nil
}

func (s *Store) fail(cause events.Cause, message string) {
	s.settle(func(st *State) *events.Event {
		st.Error = message
		return &events.Event{Type: events.EventSessionFailed, Cause: cause, Message: message}
	})
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inflight++
	s.state.Loading = true
	s.mu.Unlock()
}

// settle ends one in-flight operation, applying its transition if any.
func (s *Store) settle(apply func(*State) *events.Event) {
	var ev *events.Event

	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	if apply != nil {
		ev = apply(&s.state)
	}
	s.state.Loading = s.inflight > 0
	s.mu.Unlock()

	s.publish(ev)
}

func (s *Store) publish(ev *events.Event) {
	if ev == nil || s.dispatcher == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Timestamp = time.Now()
	if err := s.dispatcher.Publish(context.Background(), *ev); err != nil {
		s.logger.Warn("session event handler failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
