// Package session owns the lifecycle of the signed-in session: restoring it
// from the persisted token, logging in and out, and the current identity.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/models"
	"go.uber.org/zap"
)

// Status is the session lifecycle state.
type Status int

const (
	// Anonymous is the initial state; no token is held.
	Anonymous Status = iota
	// Authenticating means a login or restore is in flight.
	Authenticating
	// Authenticated means a token is held and accepted by the server.
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

var (
	// ErrNotAuthenticated is returned by calls that need a session.
	ErrNotAuthenticated = api.NewError("session", api.KindUnauthorized, "not signed in")
	// ErrInProgress is returned when a login or restore is already running.
	ErrInProgress = errors.New("session: authentication already in progress")
	// ErrAlreadyAuthenticated is returned by Login while a session is active.
	ErrAlreadyAuthenticated = errors.New("session: already signed in")
)

// Gateway is the part of the API client the session needs.
type Gateway interface {
	Register(ctx context.Context, creds models.Credentials) error
	Authenticate(ctx context.Context, creds models.Credentials) (string, error)
	FetchIdentity(ctx context.Context, token string) (models.Identity, error)
	UpdateProfile(ctx context.Context, token string, upd models.ProfileUpdate) (models.Identity, error)
	UpdateAvatar(ctx context.Context, token, avatarURL string) (models.Identity, error)
}

// CredentialStore persists the single session token.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks github.com/atinyakov/mesto/internal/client/session CredentialStore
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// State is a copy of the session as seen by the presentation layer. The
// token itself is never part of it.
type State struct {
	Status   Status
	Identity *models.Identity
}

// Controller is the only owner of the session token and identity.
type Controller struct {
	gw       Gateway
	store    CredentialStore
	log      *zap.Logger
	navigate func(models.View)

	mu       sync.RWMutex
	status   Status
	token    string
	identity *models.Identity
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNavigator sets the callback receiving navigation effects.
func WithNavigator(fn func(models.View)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.navigate = fn
		}
	}
}

// New returns an anonymous Controller.
func New(gw Gateway, store CredentialStore, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		store:    store,
		log:      zap.NewNop(),
		navigate: func(models.View) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token implements api.TokenSource.
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Status returns the lifecycle state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Authenticated reports whether the session is usable for API calls.
func (c *Controller) Authenticated() bool {
	return c.Status() == Authenticated
}

// Identity returns the current identity, if any.
func (c *Controller) Identity() (models.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return models.Identity{}, false
	}
	return *c.identity, true
}

// UserID returns the current user's id or "".
func (c *Controller) UserID() string {
	id, _ := c.Identity()
	return id.ID
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := State{Status: c.status}
	if c.identity != nil {
		id := *c.identity
		st.Identity = &id
	}
	return st
}

// begin moves an anonymous session to Authenticating.
func (c *Controller) begin(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case Authenticating:
		return ErrInProgress
	case Authenticated:
		return ErrAlreadyAuthenticated
	}
	c.status = Authenticating
	c.token = token
	return nil
}

// clearTimeout bounds erasing the token once the caller's context is gone.
const clearTimeout = 5 * time.Second

// reset drops back to Anonymous and erases the persisted token. The erase
// runs even when ctx has already expired: a timed-out identity fetch must
// not leave the rejected token behind.
func (c *Controller) reset(ctx context.Context) error {
	c.mu.Lock()
	c.status = Anonymous
	c.token = ""
	c.identity = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("failed to clear stored token", zap.Error(err))
		return err
	}
	return nil
}

// Restore resumes the session from the persisted token. It is meant to run
// once at startup. Any failure leaves the session anonymous with the stored
// token erased; the returned error is for diagnostics only.
func (c *Controller) Restore(ctx context.Context) error {
	token, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("credential store unavailable, starting signed out", zap.Error(err))
		return nil
	}
	if token == "" {
		return nil
	}

	if err := c.begin(token); err != nil {
		return err
	}

	if err := c.fetchIdentity(ctx, token); err != nil {
		c.log.Info("stored session rejected", zap.Stringer("kind", api.KindOf(err)), zap.Error(err))
		return err
	}

	c.log.Info("session restored", zap.String("user_id", c.UserID()))
	c.navigate(models.ViewHome)
	return nil
}

// fetchIdentity completes authentication with token. On failure the session
// falls back to Anonymous.
func (c *Controller) fetchIdentity(ctx context.Context, token string) error {
	id, err := c.gw.FetchIdentity(ctx, token)
	if err != nil {
		_ = c.reset(ctx)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A logout may have happened while the request was in flight.
	if c.token != token {
		return ErrNotAuthenticated
	}
	c.status = Authenticated
	c.identity = &id
	return nil
}

// Login authenticates with creds, persists the returned token, navigates
// home and then loads the identity. On an authentication failure nothing
// is persisted and no navigation happens.
func (c *Controller) Login(ctx context.Context, creds models.Credentials) error {
	if err := c.begin(""); err != nil {
		return err
	}

	token, err := c.gw.Authenticate(ctx, creds)
	if err != nil {
		c.mu.Lock()
		c.status = Anonymous
		c.token = ""
		c.mu.Unlock()
		c.log.Info("login failed", zap.String("email", creds.Email), zap.Stringer("kind", api.KindOf(err)))
		return err
	}

	if err := c.store.Save(ctx, token); err != nil {
		c.log.Warn("failed to persist token, session will not survive restart", zap.Error(err))
	}

	c.mu.Lock()
	c.status = Authenticated
	c.token = token
	c.mu.Unlock()
	c.navigate(models.ViewHome)

	id, err := c.gw.FetchIdentity(ctx, token)
	if err != nil {
		c.log.Warn("identity fetch after login failed", zap.Error(err))
		_ = c.reset(ctx)
		c.navigate(models.ViewLogin)
		return err
	}

	c.mu.Lock()
	if c.token != token {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	c.identity = &id
	c.mu.Unlock()

	c.log.Info("logged in", zap.String("user_id", id.ID))
	return nil
}

// Register creates an account without signing in.
func (c *Controller) Register(ctx context.Context, creds models.Credentials) error {
	if err := c.gw.Register(ctx, creds); err != nil {
		c.log.Info("registration failed", zap.String("email", creds.Email), zap.Stringer("kind", api.KindOf(err)))
		return err
	}
	c.log.Info("registered", zap.String("email", creds.Email))
	return nil
}

// Logout erases the token and returns to Anonymous without a network call.
// The session is anonymous even when the store fails; the error reports
// that the token may still be on disk.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.reset(ctx)
	c.navigate(models.ViewLogin)
	return err
}

// UpdateProfile replaces the identity with the server's answer.
func (c *Controller) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.Identity, error) {
	token, err := c.activeToken()
	if err != nil {
		return models.Identity{}, err
	}
	id, err := c.gw.UpdateProfile(ctx, token, upd)
	if err != nil {
		return models.Identity{}, err
	}
	return id, c.replaceIdentity(token, id)
}

// UpdateAvatar replaces the identity with the server's answer.
func (c *Controller) UpdateAvatar(ctx context.Context, avatarURL string) (models.Identity, error) {
	token, err := c.activeToken()
	if err != nil {
		return models.Identity{}, err
	}
	id, err := c.gw.UpdateAvatar(ctx, token, avatarURL)
	if err != nil {
		return models.Identity{}, err
	}
	return id, c.replaceIdentity(token, id)
}

func (c *Controller) activeToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status != Authenticated {
		return "", ErrNotAuthenticated
	}
	return c.token, nil
}

func (c *Controller) replaceIdentity(token string, id models.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Authenticated || c.token != token {
		return ErrNotAuthenticated
	}
	c.identity = &id
	return nil
}
