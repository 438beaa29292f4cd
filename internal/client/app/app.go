// Package app is the single entry point of the presentation layer. Each
// intent method sequences the session, card and dialog components, maps the
// outcome to a state change, a navigation effect or a dialog transition, and
// then notifies the Observer.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/client/cards"
	"github.com/atinyakov/mesto/internal/client/dialog"
	"github.com/atinyakov/mesto/internal/client/session"
	"github.com/atinyakov/mesto/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each intent when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Observer receives effects. Calls are made synchronously from the goroutine
// running the intent and never while internal locks are held.
type Observer interface {
	Navigate(v models.View)
	StateChanged(st State)
}

// State is what the presentation layer renders.
type State struct {
	View     models.View
	Session  session.Status
	Identity *models.Identity
	Cards    []models.Card
	Dialog   dialog.State
	// Err is the last surfaced failure; nil after a successful intent.
	Err error
}

type nopObserver struct{}

func (nopObserver) Navigate(models.View) {}
func (nopObserver) StateChanged(State)   {}

// App wires the components together.
type App struct {
	session *session.Controller
	cards   *cards.Store
	dialogs *dialog.Controller
	log     *zap.Logger
	obs     Observer
	timeout time.Duration

	mu   sync.Mutex
	view models.View
	err  error
}

type settings struct {
	log      *zap.Logger
	obs      Observer
	timeout  time.Duration
	policies cards.Policies
}

// Option configures an App.
type Option func(*settings)

// WithLogger sets the logger shared by all components.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver sets the receiver of navigation and state effects.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithTimeout bounds every intent. Zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPolicies overrides the card mutation policies.
func WithPolicies(p cards.Policies) Option {
	return func(s *settings) { s.policies = p }
}

// New builds an App over client, persisting the session token in creds.
func New(client *api.Client, creds session.CredentialStore, opts ...Option) *App {
	cfg := settings{
		log:      zap.NewNop(),
		obs:      nopObserver{},
		timeout:  DefaultTimeout,
		policies: cards.DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &App{
		dialogs: dialog.New(),
		log:     cfg.log,
		obs:     cfg.obs,
		timeout: cfg.timeout,
	}
	a.session = session.New(client, creds,
		session.WithLogger(cfg.log.Named("session")),
		session.WithNavigator(a.navigate),
	)
	a.cards = cards.New(client.Cards(a.session), a.session,
		cards.WithLogger(cfg.log.Named("cards")),
		cards.WithPolicies(cfg.policies),
	)
	return a
}

// Snapshot returns a copy of everything the presentation layer renders.
func (a *App) Snapshot() State {
	ss := a.session.Snapshot()
	a.mu.Lock()
	view, err := a.view, a.err
	a.mu.Unlock()
	return State{
		View:     view,
		Session:  ss.Status,
		Identity: ss.Identity,
		Cards:    a.cards.Cards(),
		Dialog:   a.dialogs.Current(),
		Err:      err,
	}
}

func (a *App) navigate(v models.View) {
	a.mu.Lock()
	a.view = v
	a.mu.Unlock()
	a.obs.Navigate(v)
}

func (a *App) notify() {
	a.obs.StateChanged(a.Snapshot())
}

func (a *App) setErr(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

func (a *App) intent(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

// succeed clears the surfaced error and closes kind if it is still open.
// A different dialog opened meanwhile stays.
func (a *App) succeed(kind dialog.Kind) {
	a.setErr(nil)
	if kind != dialog.None && !a.dialogs.CloseIf(kind) {
		a.log.Debug("dialog replaced before the request finished", zap.Stringer("dialog", kind))
	}
}

// fail logs err, surfaces it and applies the recovery its kind calls for.
// The current dialog is left as is so the user can correct the input.
func (a *App) fail(ctx context.Context, op string, err error) error {
	kind := api.KindOf(err)
	a.log.Warn("intent failed", zap.String("op", op), zap.Stringer("kind", kind), zap.Error(err))
	a.setErr(err)

	switch kind {
	case api.KindUnauthorized:
		a.forceLogout(ctx)
	case api.KindNotFound:
		if a.session.Authenticated() {
			if lerr := a.cards.LoadAll(ctx); lerr != nil {
				a.log.Warn("refresh after not found failed", zap.Error(lerr))
			}
		}
	}
	return err
}

// forceLogout ends a session the server no longer accepts.
func (a *App) forceLogout(ctx context.Context) {
	if a.session.Status() == session.Anonymous {
		return
	}
	a.log.Info("session rejected by server, signing out")
	if err := a.session.Logout(ctx); err != nil {
		a.log.Warn("failed to erase stored token", zap.Error(err))
	}
	a.cards.Reset()
	a.dialogs.CloseAll()
}

// loadCards is the session-ready effect: the first card load happens only
// once the session is Authenticated.
func (a *App) loadCards(ctx context.Context) error {
	if !a.session.Authenticated() {
		return nil
	}
	if err := a.cards.LoadAll(ctx); err != nil {
		return a.fail(ctx, "listCards", err)
	}
	a.log.Debug("cards loaded", zap.Int("count", a.cards.Len()))
	return nil
}

// Start restores the persisted session and, when it is still valid, loads
// the cards. A rejected or missing token silently leads to the login view.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if err := a.session.Restore(ctx); err != nil {
		a.log.Info("no session restored", zap.Error(err))
	}
	if !a.session.Authenticated() {
		a.navigate(models.ViewLogin)
		return nil
	}
	return a.loadCards(ctx)
}

// SubmitLogin signs in. On failure the "authentication failed" result dialog
// opens and nothing is persisted.
func (a *App) SubmitLogin(ctx context.Context, creds models.Credentials) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if err := a.session.Login(ctx, creds); err != nil {
		a.log.Warn("login failed", zap.Stringer("kind", api.KindOf(err)), zap.Error(err))
		a.setErr(err)
		if !errors.Is(err, session.ErrAlreadyAuthenticated) && !errors.Is(err, session.ErrInProgress) {
			a.dialogs.RegistrationResult(false)
		}
		return err
	}
	a.succeed(dialog.None)
	return a.loadCards(ctx)
}

// SubmitRegister creates an account and shows the outcome. It never signs in.
func (a *App) SubmitRegister(ctx context.Context, creds models.Credentials) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	err := a.session.Register(ctx, creds)
	a.setErr(err)
	a.dialogs.RegistrationResult(err == nil)
	return err
}

// Logout ends the session without a network call.
func (a *App) Logout(ctx context.Context) error {
	defer a.notify()

	err := a.session.Logout(ctx)
	a.cards.Reset()
	a.dialogs.CloseAll()
	a.setErr(nil)
	if err != nil {
		a.log.Warn("failed to erase stored token", zap.Error(err))
	}
	return err
}

// SubmitProfile saves name and bio, closing the edit-profile dialog.
func (a *App) SubmitProfile(ctx context.Context, upd models.ProfileUpdate) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if _, err := a.session.UpdateProfile(ctx, upd); err != nil {
		return a.fail(ctx, "updateProfile", err)
	}
	a.succeed(dialog.EditProfile)
	return nil
}

// SubmitAvatar saves the avatar URL, closing the edit-avatar dialog.
func (a *App) SubmitAvatar(ctx context.Context, avatarURL string) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if _, err := a.session.UpdateAvatar(ctx, avatarURL); err != nil {
		return a.fail(ctx, "updateAvatar", err)
	}
	a.succeed(dialog.EditAvatar)
	return nil
}

// SubmitPlace creates a card, puts it first and closes the add-place dialog.
func (a *App) SubmitPlace(ctx context.Context, in models.NewCard) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if !a.session.Authenticated() {
		return a.fail(ctx, "createCard", session.ErrNotAuthenticated)
	}
	if _, err := a.cards.Add(ctx, in); err != nil {
		return a.fail(ctx, "createCard", err)
	}
	a.succeed(dialog.AddPlace)
	return nil
}

// ClickLike toggles the current user's like on a card.
func (a *App) ClickLike(ctx context.Context, cardID string) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	if !a.session.Authenticated() {
		return a.fail(ctx, "toggleLike", session.ErrNotAuthenticated)
	}
	if _, err := a.cards.ToggleLike(ctx, cardID, a.session.UserID()); err != nil {
		return a.fail(ctx, "toggleLike", err)
	}
	a.succeed(dialog.None)
	return nil
}

// ClickDelete asks for confirmation before deleting one of the user's cards.
func (a *App) ClickDelete(cardID string) error {
	defer a.notify()

	card, ok := a.cards.Card(cardID)
	if !ok {
		err := api.NewError("deleteCard", api.KindNotFound, "card is not in the collection")
		a.setErr(err)
		return err
	}
	if !card.OwnedBy(a.session.UserID()) {
		err := api.NewError("deleteCard", api.KindValidation, "only the owner can delete a card")
		a.setErr(err)
		return err
	}
	a.dialogs.ConfirmDelete(card)
	return nil
}

// ConfirmDelete deletes the card held by the open confirmation dialog.
func (a *App) ConfirmDelete(ctx context.Context) error {
	ctx, cancel := a.intent(ctx)
	defer cancel()
	defer a.notify()

	st := a.dialogs.Current()
	if st.Kind != dialog.ConfirmDelete || st.Card == nil {
		err := api.NewError("deleteCard", api.KindValidation, "no card selected for deletion")
		a.setErr(err)
		return err
	}

	if err := a.cards.Remove(ctx, st.Card.ID); err != nil {
		if api.IsKind(err, api.KindNotFound) {
			// The card is gone either way; nothing is left to confirm.
			a.dialogs.CloseIf(dialog.ConfirmDelete)
		}
		return a.fail(ctx, "deleteCard", err)
	}
	a.succeed(dialog.ConfirmDelete)
	return nil
}

// ClickCard opens the full-size image of a card.
func (a *App) ClickCard(cardID string) error {
	defer a.notify()

	card, ok := a.cards.Card(cardID)
	if !ok {
		err := api.NewError("viewImage", api.KindNotFound, "card is not in the collection")
		a.setErr(err)
		return err
	}
	a.dialogs.ViewImage(card)
	return nil
}

func (a *App) OpenEditProfile() { a.open(a.dialogs.EditProfile) }
func (a *App) OpenEditAvatar()  { a.open(a.dialogs.EditAvatar) }
func (a *App) OpenAddPlace()    { a.open(a.dialogs.AddPlace) }

func (a *App) open(fn func()) {
	fn()
	a.setErr(nil)
	a.notify()
}

// CloseDialog closes whatever is open. Dismissing a successful registration
// result leads to the login view. With no dialog and no error it does nothing.
func (a *App) CloseDialog() {
	a.mu.Lock()
	hasErr := a.err != nil
	a.mu.Unlock()
	if a.dialogs.IsOpen(dialog.None) && !hasErr {
		return
	}

	st := a.dialogs.Current()
	a.dialogs.CloseAll()
	a.setErr(nil)
	if st.Kind == dialog.RegistrationResult && st.Success {
		a.navigate(models.ViewLogin)
	}
	a.notify()
}

// GoToRegister shows the sign-up form.
func (a *App) GoToRegister() {
	a.navigate(models.ViewRegister)
	a.notify()
}

// GoToLogin shows the sign-in form.
func (a *App) GoToLogin() {
	a.navigate(models.ViewLogin)
	a.notify()
}
