package cards

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer keeps an authoritative collection and answers like the API.
type fakeServer struct {
	cards     map[string]*models.Card
	order     []string
	nextID    int
	failNext  error
	likeCalls []bool
	deletes   []string
	lists     int
}

func newFakeServer(cards ...models.Card) *fakeServer {
	f := &fakeServer{cards: map[string]*models.Card{}}
	for _, c := range cards {
		c := c
		f.cards[c.ID] = &c
		f.order = append(f.order, c.ID)
	}
	return f
}

func (f *fakeServer) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeServer) ListCards(context.Context) ([]models.Card, error) {
	f.lists++
	if err := f.fail(); err != nil {
		return nil, err
	}
	out := make([]models.Card, 0, len(f.order))
	for _, id := range f.order {
		if c, ok := f.cards[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (f *fakeServer) CreateCard(_ context.Context, in models.NewCard) (models.Card, error) {
	if err := f.fail(); err != nil {
		return models.Card{}, err
	}
	f.nextID++
	c := models.Card{ID: "new-" + strconv.Itoa(f.nextID), Name: in.Name, Link: in.Link, OwnerID: "me"}
	f.cards[c.ID] = &c
	f.order = append([]string{c.ID}, f.order...)
	return c.Clone(), nil
}

func (f *fakeServer) DeleteCard(_ context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	if err := f.fail(); err != nil {
		return err
	}
	if _, ok := f.cards[id]; !ok {
		return &api.Error{Kind: api.KindNotFound, Op: "deleteCard", Status: 404}
	}
	delete(f.cards, id)
	return nil
}

// ToggleLike uses set semantics keyed on the acting user "me".
func (f *fakeServer) ToggleLike(_ context.Context, id string, currentlyLiked bool) (models.Card, error) {
	f.likeCalls = append(f.likeCalls, currentlyLiked)
	if err := f.fail(); err != nil {
		return models.Card{}, err
	}
	c, ok := f.cards[id]
	if !ok {
		return models.Card{}, &api.Error{Kind: api.KindNotFound, Op: "toggleLike", Status: 404}
	}
	likes := make([]string, 0, len(c.Likes)+1)
	for _, u := range c.Likes {
		if u != "me" {
			likes = append(likes, u)
		}
	}
	if !currentlyLiked {
		likes = append(likes, "me")
	}
	c.Likes = likes
	return c.Clone(), nil
}

type gate bool

func (g gate) Authenticated() bool { return bool(g) }

func seed() []models.Card {
	return []models.Card{
		{ID: "1", Name: "Baikal", OwnerID: "me"},
		{ID: "7", Name: "Elbrus", OwnerID: "u2", Likes: []string{"u2"}},
		{ID: "9", Name: "Kamchatka", OwnerID: "u3"},
	}
}

func ids(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func loaded(t *testing.T, srv *fakeServer, opts ...Option) *Store {
	t.Helper()
	s := New(srv, gate(true), opts...)
	require.NoError(t, s.LoadAll(context.Background()))
	return s
}

func TestLoadAll_ServerOrder(t *testing.T) {
	s := loaded(t, newFakeServer(seed()...))
	assert.Equal(t, []string{"1", "7", "9"}, ids(s.Cards()))
}

func TestLoadAll_RequiresSession(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := New(srv, gate(false))

	err := s.LoadAll(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, srv.lists, "no request before the session is ready")
}

func TestLoadAll_FailureEmpties(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	srv.failNext = &api.Error{Kind: api.KindNetwork, Op: "listCards"}
	err := s.LoadAll(context.Background())
	assert.True(t, api.IsKind(err, api.KindNetwork))
	assert.Zero(t, s.Len())
}

func TestAdd_Prepends(t *testing.T) {
	s := loaded(t, newFakeServer(seed()...))

	card, err := s.Add(context.Background(), models.NewCard{Name: "c1", Link: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{card.ID, "1", "7", "9"}, ids(s.Cards()))
}

func TestAdd_Failure(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	srv.failNext = &api.Error{Kind: api.KindValidation, Op: "createCard", Status: 400}
	_, err := s.Add(context.Background(), models.NewCard{Name: "", Link: "bad"})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Equal(t, []string{"1", "7", "9"}, ids(s.Cards()))
}

func TestRemove_Confirmed(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	require.NoError(t, s.Remove(context.Background(), "7"))
	assert.Equal(t, []string{"1", "9"}, ids(s.Cards()))
}

func TestRemove_FailureLeavesState(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	srv.failNext = &api.Error{Kind: api.KindUnauthorized, Op: "deleteCard", Status: 403}
	err := s.Remove(context.Background(), "7")
	assert.True(t, api.IsKind(err, api.KindUnauthorized))
	assert.Equal(t, []string{"1", "7", "9"}, ids(s.Cards()))
}

func TestRemove_AbsentLocally(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)
	require.NoError(t, s.Remove(context.Background(), "7"))

	err := s.Remove(context.Background(), "7")
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Equal(t, []string{"1", "9"}, ids(s.Cards()))
	assert.Equal(t, []string{"7"}, srv.deletes, "no second request")
}

func TestRemove_OptimisticRollback(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv, WithPolicies(Policies{OpRemove: {Mode: Optimistic, RollbackOnFailure: true}}))

	srv.failNext = &api.Error{Kind: api.KindNetwork, Op: "deleteCard"}
	err := s.Remove(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, []string{"1", "7", "9"}, ids(s.Cards()), "card restored at its position")
}

func TestRemove_OptimisticNoRollback(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv, WithPolicies(Policies{OpRemove: {Mode: Optimistic}}))

	srv.failNext = errors.New("boom")
	require.Error(t, s.Remove(context.Background(), "7"))
	assert.Equal(t, []string{"1", "9"}, ids(s.Cards()))
}

func TestToggleLike_LikesWhenNotLiked(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	card, err := s.ToggleLike(context.Background(), "7", "me")
	require.NoError(t, err)

	assert.Equal(t, []bool{false}, srv.likeCalls, "direction=like")
	got, ok := s.Card("7")
	require.True(t, ok)
	assert.Equal(t, card, got, "card replaced with the server's")
	assert.ElementsMatch(t, []string{"u2", "me"}, got.Likes)
}

func TestToggleLike_FailureLeavesState(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)

	srv.failNext = &api.Error{Kind: api.KindNetwork, Op: "toggleLike"}
	_, err := s.ToggleLike(context.Background(), "7", "me")
	require.Error(t, err)
	got, _ := s.Card("7")
	assert.Equal(t, []string{"u2"}, got.Likes)
}

func TestToggleLike_OptimisticRollback(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv, WithPolicies(Policies{OpToggleLike: {Mode: Optimistic, RollbackOnFailure: true}}))

	srv.failNext = &api.Error{Kind: api.KindNetwork, Op: "toggleLike"}
	_, err := s.ToggleLike(context.Background(), "7", "me")
	require.Error(t, err)
	got, _ := s.Card("7")
	assert.Equal(t, []string{"u2"}, got.Likes)
}

func TestToggleLike_CardRemovedMeanwhile(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)
	require.NoError(t, s.Remove(context.Background(), "9"))

	_, err := s.ToggleLike(context.Background(), "9", "me")
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Empty(t, srv.likeCalls)
}

var sortStrings = cmpopts.SortSlices(func(a, b string) bool { return a < b })

// Serialized toggles must leave local likes equal to the server's set.
func TestToggleLike_NoDivergence(t *testing.T) {
	srv := newFakeServer(seed()...)
	s := loaded(t, srv)
	rnd := rand.New(rand.NewSource(1))
	targets := []string{"1", "7", "9"}

	for i := 0; i < 50; i++ {
		id := targets[rnd.Intn(len(targets))]
		_, err := s.ToggleLike(context.Background(), id, "me")
		require.NoError(t, err)

		for _, cid := range targets {
			local, ok := s.Card(cid)
			require.True(t, ok)
			if diff := cmp.Diff(srv.cards[cid].Likes, local.Likes, sortStrings, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("card %s after %d toggles (-server +local):\n%s", cid, i+1, diff)
			}
		}
	}
}

func TestPolicies_For(t *testing.T) {
	p := Policies{OpAdd: {Mode: Optimistic}, OpRemove: {Mode: Optimistic, RollbackOnFailure: true}}
	assert.Equal(t, Confirmed, p.For(OpAdd).Mode, "add is never optimistic")
	assert.Equal(t, Optimistic, p.For(OpRemove).Mode)
	assert.Equal(t, Confirmed, p.For(OpToggleLike).Mode, "missing entries default to confirmed")

	for op, pol := range DefaultPolicies() {
		assert.Equal(t, Confirmed, pol.Mode, op)
	}
}

func TestReset(t *testing.T) {
	s := loaded(t, newFakeServer(seed()...))
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Cards())
}
