package session

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	RegisterFunc      func(ctx context.Context, creds models.Credentials) error
	AuthenticateFunc  func(ctx context.Context, creds models.Credentials) (string, error)
	FetchIdentityFunc func(ctx context.Context, token string) (models.Identity, error)
	UpdateProfileFunc func(ctx context.Context, token string, upd models.ProfileUpdate) (models.Identity, error)
	UpdateAvatarFunc  func(ctx context.Context, token, avatarURL string) (models.Identity, error)
}

func (m *mockGateway) Register(ctx context.Context, creds models.Credentials) error {
	return m.RegisterFunc(ctx, creds)
}
func (m *mockGateway) Authenticate(ctx context.Context, creds models.Credentials) (string, error) {
	return m.AuthenticateFunc(ctx, creds)
}
func (m *mockGateway) FetchIdentity(ctx context.Context, token string) (models.Identity, error) {
	return m.FetchIdentityFunc(ctx, token)
}
func (m *mockGateway) UpdateProfile(ctx context.Context, token string, upd models.ProfileUpdate) (models.Identity, error) {
	return m.UpdateProfileFunc(ctx, token, upd)
}
func (m *mockGateway) UpdateAvatar(ctx context.Context, token, avatarURL string) (models.Identity, error) {
	return m.UpdateAvatarFunc(ctx, token, avatarURL)
}

// memStore is an in-memory CredentialStore.
type memStore struct {
	token   string
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (m *memStore) Load(context.Context) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.token, nil
}
func (m *memStore) Save(_ context.Context, token string) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}
func (m *memStore) Clear(context.Context) error {
	m.clears++
	m.token = ""
	return nil
}

type navRecorder struct{ views []models.View }

func (n *navRecorder) navigate(v models.View) { n.views = append(n.views, v) }

var jacques = models.Identity{ID: "u1", Name: "Jacques", About: "Explorer", Email: "a@b.com"}

func identityFor(want string) func(context.Context, string) (models.Identity, error) {
	return func(_ context.Context, token string) (models.Identity, error) {
		if token != want {
			return models.Identity{}, &api.Error{Kind: api.KindUnauthorized, Op: "fetchIdentity", Status: 401}
		}
		return jacques, nil
	}
}

func TestRestore_ValidToken(t *testing.T) {
	store := &memStore{token: "good"}
	nav := &navRecorder{}
	c := New(&mockGateway{FetchIdentityFunc: identityFor("good")}, store, WithNavigator(nav.navigate))

	require.NoError(t, c.Restore(context.Background()))

	assert.Equal(t, Authenticated, c.Status())
	assert.Equal(t, "good", c.Token())
	id, ok := c.Identity()
	require.True(t, ok)
	assert.Equal(t, jacques, id)
	assert.Equal(t, []models.View{models.ViewHome}, nav.views)
}

func TestRestore_InvalidToken(t *testing.T) {
	store := &memStore{token: "expired"}
	nav := &navRecorder{}
	c := New(&mockGateway{FetchIdentityFunc: identityFor("good")}, store, WithNavigator(nav.navigate))

	err := c.Restore(context.Background())
	assert.True(t, api.IsKind(err, api.KindUnauthorized))

	assert.Equal(t, Anonymous, c.Status())
	assert.Empty(t, c.Token())
	_, ok := c.Identity()
	assert.False(t, ok)

	token, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token, "persisted token must be cleared")
	assert.Empty(t, nav.views, "no navigation on silent fallback")
}

func TestRestore_NetworkErrorClearsToken(t *testing.T) {
	store := &memStore{token: "good"}
	gw := &mockGateway{FetchIdentityFunc: func(context.Context, string) (models.Identity, error) {
		return models.Identity{}, &api.Error{Kind: api.KindNetwork, Op: "fetchIdentity"}
	}}
	c := New(gw, store)

	err := c.Restore(context.Background())
	assert.True(t, api.IsKind(err, api.KindNetwork))
	assert.Equal(t, Anonymous, c.Status())
	assert.Equal(t, 1, store.clears)
}

func TestRestore_NoToken(t *testing.T) {
	called := false
	gw := &mockGateway{FetchIdentityFunc: func(context.Context, string) (models.Identity, error) {
		called = true
		return models.Identity{}, nil
	}}
	c := New(gw, &memStore{})

	require.NoError(t, c.Restore(context.Background()))
	assert.False(t, called)
	assert.Equal(t, Anonymous, c.Status())
}

func TestRestore_StoreUnavailable(t *testing.T) {
	c := New(&mockGateway{}, &memStore{loadErr: errors.New("disk gone")})

	require.NoError(t, c.Restore(context.Background()))
	assert.Equal(t, Anonymous, c.Status())
}

func TestLogin_Success(t *testing.T) {
	store := &memStore{}
	nav := &navRecorder{}
	var statusDuringAuth Status
	var c *Controller
	gw := &mockGateway{
		AuthenticateFunc: func(_ context.Context, creds models.Credentials) (string, error) {
			statusDuringAuth = c.Status()
			assert.Equal(t, models.Credentials{Email: "a@b.com", Password: "x"}, creds)
			return "good", nil
		},
		FetchIdentityFunc: identityFor("good"),
	}
	c = New(gw, store, WithNavigator(nav.navigate))

	require.NoError(t, c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"}))

	assert.Equal(t, Authenticating, statusDuringAuth)
	assert.Equal(t, Authenticated, c.Status())
	assert.Equal(t, "good", store.token)
	assert.Equal(t, "u1", c.UserID())
	assert.Equal(t, []models.View{models.ViewHome}, nav.views)
}

func TestLogin_Unauthorized(t *testing.T) {
	store := &memStore{}
	nav := &navRecorder{}
	gw := &mockGateway{
		AuthenticateFunc: func(context.Context, models.Credentials) (string, error) {
			return "", &api.Error{Kind: api.KindUnauthorized, Op: "authenticate", Status: 401}
		},
	}
	c := New(gw, store, WithNavigator(nav.navigate))

	err := c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
	assert.True(t, api.IsKind(err, api.KindUnauthorized))
	assert.Equal(t, Anonymous, c.Status())
	assert.Equal(t, 0, store.saves, "no token persisted")
	assert.Empty(t, nav.views, "no navigation effect")
}

func TestLogin_IdentityFetchFails(t *testing.T) {
	store := &memStore{}
	nav := &navRecorder{}
	gw := &mockGateway{
		AuthenticateFunc: func(context.Context, models.Credentials) (string, error) { return "tok", nil },
		FetchIdentityFunc: func(context.Context, string) (models.Identity, error) {
			return models.Identity{}, &api.Error{Kind: api.KindUnknown, Op: "fetchIdentity", Status: 500}
		},
	}
	c := New(gw, store, WithNavigator(nav.navigate))

	err := c.Login(context.Background(), models.Credentials{})
	require.Error(t, err)
	assert.Equal(t, Anonymous, c.Status())
	assert.Empty(t, store.token)
	assert.Equal(t, []models.View{models.ViewHome, models.ViewLogin}, nav.views)
}

func TestLogin_SaveFailureIsNotFatal(t *testing.T) {
	gw := &mockGateway{
		AuthenticateFunc:  func(context.Context, models.Credentials) (string, error) { return "good", nil },
		FetchIdentityFunc: identityFor("good"),
	}
	c := New(gw, &memStore{saveErr: errors.New("read-only fs")})

	require.NoError(t, c.Login(context.Background(), models.Credentials{}))
	assert.Equal(t, Authenticated, c.Status())
}

func TestLogin_WhileAuthenticated(t *testing.T) {
	c := New(&mockGateway{FetchIdentityFunc: identityFor("good")}, &memStore{token: "good"})
	require.NoError(t, c.Restore(context.Background()))

	err := c.Login(context.Background(), models.Credentials{})
	assert.ErrorIs(t, err, ErrAlreadyAuthenticated)
	assert.Equal(t, Authenticated, c.Status())
}

func TestRegister(t *testing.T) {
	wantErr := &api.Error{Kind: api.KindValidation, Op: "register", Status: 400}
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"validation", wantErr},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{}
			c := New(&mockGateway{RegisterFunc: func(context.Context, models.Credentials) error { return tc.err }}, store)

			err := c.Register(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
			assert.Equal(t, tc.err == nil, err == nil)
			assert.Equal(t, Anonymous, c.Status(), "registration never signs in")
			assert.Equal(t, 0, store.saves)
		})
	}
}

func TestLogout(t *testing.T) {
	store := &memStore{token: "good"}
	nav := &navRecorder{}
	c := New(&mockGateway{FetchIdentityFunc: identityFor("good")}, store, WithNavigator(nav.navigate))
	require.NoError(t, c.Restore(context.Background()))

	require.NoError(t, c.Logout(context.Background()))

	assert.Equal(t, Anonymous, c.Status())
	assert.Empty(t, c.Token())
	assert.Empty(t, store.token)
	assert.Nil(t, c.Snapshot().Identity)
	assert.Equal(t, []models.View{models.ViewHome, models.ViewLogin}, nav.views)
}

func TestUpdateProfileAndAvatar(t *testing.T) {
	gw := &mockGateway{
		FetchIdentityFunc: identityFor("good"),
		UpdateProfileFunc: func(_ context.Context, token string, upd models.ProfileUpdate) (models.Identity, error) {
			assert.Equal(t, "good", token)
			out := jacques
			out.Name, out.About = upd.Name, upd.About
			return out, nil
		},
		UpdateAvatarFunc: func(_ context.Context, token, avatarURL string) (models.Identity, error) {
			out := jacques
			out.Name = "Jacques Cousteau"
			out.Avatar = avatarURL
			return out, nil
		},
	}
	c := New(gw, &memStore{token: "good"})
	require.NoError(t, c.Restore(context.Background()))

	_, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "JC", About: "Sailor"})
	require.NoError(t, err)
	id, _ := c.Identity()
	assert.Equal(t, "JC", id.Name)
	assert.Equal(t, "Sailor", id.About)

	_, err = c.UpdateAvatar(context.Background(), "http://img/a.png")
	require.NoError(t, err)
	id, _ = c.Identity()
	assert.Equal(t, "http://img/a.png", id.Avatar)
	assert.Equal(t, "Jacques Cousteau", id.Name, "identity is replaced wholesale")
}

func TestUpdateProfile_Anonymous(t *testing.T) {
	c := New(&mockGateway{}, &memStore{})
	_, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "x"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, api.IsKind(err, api.KindUnauthorized))
}

func TestUpdateProfile_LateResultAfterLogout(t *testing.T) {
	var c *Controller
	gw := &mockGateway{
		FetchIdentityFunc: identityFor("good"),
		UpdateProfileFunc: func(context.Context, string, models.ProfileUpdate) (models.Identity, error) {
			_ = c.Logout(context.Background())
			return jacques, nil
		},
	}
	c = New(gw, &memStore{token: "good"})
	require.NoError(t, c.Restore(context.Background()))

	_, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, ok := c.Identity()
	assert.False(t, ok, "late result must not resurrect the identity")
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
