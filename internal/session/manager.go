// Package session owns the console's authentication state: startup
// verification, login, logout and forced expiry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/songzhibin97/adminconsole/internal/gateway"
	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
	"github.com/songzhibin97/adminconsole/pkg/metrics"
)

// Authenticator performs the backend authentication calls.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (normalize.LoginResult, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (console.Profile, error)
}

// Credentials persists the token and profile.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, profile console.Profile) error
	Clear(ctx context.Context) error
}

// Navigator moves the user to another surface of the console.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Options configures a Manager
type Options struct {
	Auth        Authenticator
	Credentials Credentials
	Navigator   Navigator
	// PrivilegedRole is the only role allowed to hold a session.
	PrivilegedRole console.Role
	// LoginPath is where forced expiry and logout navigate to.
	LoginPath string
	Logger    log.Logger
	Metrics   metrics.Recorder
	Now       func() time.Time
}

// Manager is the observable session state container.
type Manager struct {
	auth      Authenticator
	creds     Credentials
	navigator Navigator
	role      console.Role
	loginPath string
	logger    log.Logger
	metrics   metrics.Recorder
	now       func() time.Time

	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextID      int
	// armed is the one-shot expiry guard. It is consumed by the first
	// expiry event of an episode and re-armed when a session is established.
	armed   bool
	episode int64

	// notifyMu orders subscriber notifications without holding mu.
	notifyMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a Manager in the Anonymous state.
func NewManager(opts Options) (*Manager, error) {
	if opts.Auth == nil || opts.Credentials == nil {
		return nil, fmt.Errorf("session: authenticator and credentials are required")
	}

	m := &Manager{
		auth:        opts.Auth,
		creds:       opts.Credentials,
		navigator:   opts.Navigator,
		role:        opts.PrivilegedRole,
		loginPath:   opts.LoginPath,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
		state:       State{Status: StatusAnonymous},
		subscribers: make(map[int]func(State)),
		armed:       true,
		ready:       make(chan struct{}),
	}
	if m.role == "" {
		m.role = console.RoleAdmin
	}
	if m.navigator == nil {
		m.navigator = NavigatorFunc(func(string) {})
	}
	if m.logger == nil {
		m.logger = log.NewNop()
	}
	if m.metrics == nil {
		m.metrics = metrics.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.logger = m.logger.With(log.Component("session"))
	return m, nil
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready is closed once startup verification has settled.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Subscribe registers fn for every state change. fn runs synchronously and
// must not call Login, Logout or VerifyOnStartup.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// VerifyOnStartup restores a persisted session. A locally expired JWT is
// discarded without a network call. Any other stored token is verified
// with the profile endpoint. Ready is closed when this returns.
func (m *Manager) VerifyOnStartup(ctx context.Context) error {
	defer m.readyOnce.Do(func() { close(m.ready) })

	token, err := m.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("read stored session: %w", err)
	}
	if token == "" {
		return m.creds.Clear(ctx)
	}

	if tokenExpired(token, m.now()) {
		m.logger.Info("stored token expired, discarding session")
		return m.creds.Clear(ctx)
	}

	if err := m.transition(StatusAnonymous, StatusAuthenticating, State{}); err != nil {
		return err
	}

	profile, err := m.auth.Profile(ctx)
	if err == nil && profile.Role != m.role {
		err = console.NewAuthorizationError("INSUFFICIENT_PRIVILEGE", "Access denied. Admin privileges required.", console.ErrInsufficientPrivilege)
	}
	if err == nil {
		err = m.creds.Save(ctx, token, profile)
	}
	if err != nil {
		m.logger.Info("stored session rejected", log.Error(err))
		if clearErr := m.creds.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear credentials", log.Error(clearErr))
		}
		classified := gateway.Classify(err)
		_ = m.transition(StatusAuthenticating, StatusAnonymous, State{Err: classified})
		return classified
	}

	return m.establish(token, profile)
}

// Login authenticates with the backend. Only the privileged role may log in;
// for any other role nothing is persisted.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	if err := m.transition(StatusAnonymous, StatusAuthenticating, State{}); err != nil {
		switch m.State().Status {
		case StatusAuthenticated:
			return ErrAlreadyAuthenticated
		case StatusAuthenticating:
			return fmt.Errorf("login: %w", console.ErrActionInFlight)
		}
		return err
	}

	result, err := m.auth.Login(ctx, identifier, secret)
	if err == nil && result.User.Role != m.role {
		m.logger.Warn("login refused for non privileged role",
			log.String(log.FieldUserID, result.User.ID),
			log.String(log.FieldRole, string(result.User.Role)),
		)
		err = console.NewAuthorizationError("INSUFFICIENT_PRIVILEGE", "Access denied. Admin privileges required.", console.ErrInsufficientPrivilege)
	}
	if err == nil {
		err = m.creds.Save(ctx, result.Token, result.User)
	}
	if err != nil {
		classified := gateway.Classify(err)
		_ = m.transition(StatusAuthenticating, StatusAnonymous, State{Err: classified})
		return classified
	}

	return m.establish(result.Token, result.User)
}

// Logout ends the session, notifies the backend on a best effort basis and
// navigates to the login surface. It is a no-op while Anonymous.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	status := m.state.Status
	if status == StatusAuthenticated {
		m.armed = false
	}
	m.mu.Unlock()

	switch status {
	case StatusAnonymous:
		return nil
	case StatusAuthenticated:
	default:
		return transitionError(status, StatusAnonymous)
	}

	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warn("backend logout failed", log.Error(err))
	}
	if err := m.creds.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := m.transition(StatusAuthenticated, StatusAnonymous, State{}); err != nil {
		return err
	}

	m.logger.Info("logged out")
	m.navigator.Navigate(m.loginPath)
	return nil
}

// HandleExpired reacts to a gateway expiry event. Within one episode only
// the first event clears credentials and navigates; the rest are dropped.
// While Authenticated, events from requests that did not carry the current
// session's token are stale and dropped as well.
func (m *Manager) HandleExpired(event gateway.ExpiryEvent) {
	m.mu.Lock()
	if !m.armed || m.state.Status == StatusAuthenticating || m.state.Status == StatusExpired {
		m.mu.Unlock()
		m.logger.Debug("expiry event ignored", log.String(log.FieldPath, event.Path))
		return
	}
	if m.state.Status == StatusAuthenticated && event.TokenFingerprint != gateway.Fingerprint(m.state.Token) {
		m.mu.Unlock()
		m.logger.Debug("stale expiry event ignored", log.String(log.FieldPath, event.Path))
		return
	}
	m.armed = false
	m.episode++
	episode := m.episode
	wasAuthenticated := m.state.Status == StatusAuthenticated
	m.mu.Unlock()

	logger := m.logger.With(
		log.Int64(log.FieldEpisode, episode),
		log.String(log.FieldMethod, event.Method),
		log.String(log.FieldPath, event.Path),
	)
	logger.Warn("session expired, forcing logout")

	ctx := context.Background()
	if wasAuthenticated {
		if err := m.transition(StatusAuthenticated, StatusExpired, State{Err: console.ErrSessionExpired}); err != nil {
			logger.Error("expiry transition failed", log.Error(err))
			return
		}
	}
	if err := m.creds.Clear(ctx); err != nil {
		logger.Error("failed to clear credentials", log.Error(err))
	}
	if wasAuthenticated {
		if err := m.transition(StatusExpired, StatusAnonymous, State{Err: console.ErrSessionExpired}); err != nil {
			logger.Error("expiry transition failed", log.Error(err))
		}
	}

	logger.Info("redirecting to login", log.String(log.FieldRedirect, m.loginPath))
	m.navigator.Navigate(m.loginPath)
}

// establish moves Authenticating to Authenticated and re-arms the guard.
func (m *Manager) establish(token string, profile console.Profile) error {
	if err := m.transition(StatusAuthenticating, StatusAuthenticated, State{Token: token, Profile: &profile}); err != nil {
		return err
	}
	m.logger.Info("session established",
		log.String(log.FieldUserID, profile.ID),
		log.String(log.FieldRole, string(profile.Role)),
	)
	return nil
}

// transition moves from -> to, replacing the snapshot with next, and
// notifies subscribers. It fails when the current status is not from or the
// edge does not exist.
func (m *Manager) transition(from, to Status, next State) error {
	m.mu.Lock()
	if m.state.Status != from || !canTransition(from, to) {
		current := m.state.Status
		m.mu.Unlock()
		return transitionError(current, to)
	}

	next.Status = to
	if to == StatusAuthenticated {
		p := *next.Profile
		next.Profile = &p
		m.armed = true
	} else {
		next.Token = ""
		next.Profile = nil
	}
	m.state = next

	handlers := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		handlers = append(handlers, fn)
	}

	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	m.metrics.ObserveTransition(string(from), string(to))
	m.logger.Debug("session transition",
		log.String(log.FieldPrevious, string(from)),
		log.String(log.FieldStatus, string(to)),
	)
	for _, fn := range handlers {
		fn(next)
	}
	return nil
}
