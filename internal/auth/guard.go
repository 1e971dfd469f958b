package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/observability"
)

// DefaultFallbackPath is where unauthenticated visitors are sent.
const DefaultFallbackPath = "/login"

// Phase is where a guard mount is in its lifecycle.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseRender
	PhaseRedirect
	PhaseCanceled
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseRender:
		return "render"
	case PhaseRedirect:
		return "redirect"
	case PhaseCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sessions is the session store as the guard sees it.
type Sessions interface {
	InitializeAuth(ctx context.Context) error
	ValidateToken(ctx context.Context) error
	Authenticated() bool
	HasToken() bool
}

// Guard protects views that need a signed-in user.
type Guard struct {
	sessions     Sessions
	fallbackPath string
	requireAuth  bool
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithFallbackPath changes where unauthenticated visitors are redirected.
func WithFallbackPath(path string) GuardOption {
	return func(g *Guard) {
		if path != "" {
			g.fallbackPath = path
		}
	}
}

// WithRequireAuth turns the redirect off for views that only want a fresh session.
func WithRequireAuth(required bool) GuardOption {
	return func(g *Guard) { g.requireAuth = required }
}

// WithGuardLogger sets the guard logger.
func WithGuardLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// WithGuardMetrics counts settled decisions.
func WithGuardMetrics(m *observability.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard builds a guard over sessions.
func NewGuard(sessions Sessions, opts ...GuardOption) *Guard {
	g := &Guard{
		sessions:     sessions,
		fallbackPath: DefaultFallbackPath,
		requireAuth:  true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount is one guarded view's lifetime. The session work it starts is bound
// to the mount: Unmount cancels it and whatever it had not applied yet is dropped.
type Mount struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	phase    Phase
	redirect string
}

// Mount re-reads the stored session and, if there is a token, validates it
// with the gateway. It returns immediately in PhaseLoading.
func (g *Guard) Mount(ctx context.Context) *Mount {
	ctx, cancel := context.WithCancel(ctx)
	m := &Mount{cancel: cancel, done: make(chan struct{}), phase: PhaseLoading}

	go func() {
		defer close(m.done)
		defer cancel()
		g.run(ctx, m)
	}()
	return m
}

func (g *Guard) run(ctx context.Context, m *Mount) {
	if err := g.sessions.InitializeAuth(ctx); err != nil && ctx.Err() == nil {
		g.logger.Warn("guard: initialize session", zap.Error(err))
	}
	if ctx.Err() == nil && g.sessions.HasToken() {
		if err := g.sessions.ValidateToken(ctx); err != nil && ctx.Err() == nil {
			g.logger.Debug("guard: session rejected", zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		m.settle(PhaseCanceled, "")
		return
	}

	if g.requireAuth && !g.sessions.Authenticated() {
		m.settle(PhaseRedirect, g.fallbackPath)
		g.metrics.RecordGuardDecision(PhaseRedirect.String())
		return
	}
	m.settle(PhaseRender, "")
	g.metrics.RecordGuardDecision(PhaseRender.String())
}

func (m *Mount) settle(p Phase, redirect string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// an Unmount that raced the last step wins
	if m.phase == PhaseCanceled {
		return
	}
	m.phase, m.redirect = p, redirect
}

// Phase reports the current phase.
func (m *Mount) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// RedirectTo is the fallback path once the mount settled in PhaseRedirect.
func (m *Mount) RedirectTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redirect
}

// Done is closed when the mount has settled or been canceled.
func (m *Mount) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mount settles and returns its final phase.
func (m *Mount) Wait() Phase {
	<-m.done
	return m.Phase()
}

// Unmount abandons the mount. In-flight session work is canceled.
func (m *Mount) Unmount() {
	m.mu.Lock()
	if m.phase == PhaseLoading {
		m.phase = PhaseCanceled
	}
	m.mu.Unlock()
	m.cancel()
}
