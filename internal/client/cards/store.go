// Package cards holds the in-memory card collection and applies create,
// delete and like mutations to it according to a declared policy table.
package cards

import (
	"context"
	"sync"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/models"
	"go.uber.org/zap"
)

// ErrNotAuthenticated is returned by LoadAll before the session is ready.
var ErrNotAuthenticated = api.NewError("listCards", api.KindUnauthorized, "not signed in")

// Gateway is the card part of the API client, already bound to the session.
type Gateway interface {
	ListCards(ctx context.Context) ([]models.Card, error)
	CreateCard(ctx context.Context, card models.NewCard) (models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string, currentlyLiked bool) (models.Card, error)
}

// Gate tells the store whether the session may load cards.
type Gate interface {
	Authenticated() bool
}

// Store owns the ordered card collection. All mutations match cards by id,
// never by position, so results of overlapping requests on different cards
// cannot clobber each other.
type Store struct {
	gw       Gateway
	gate     Gate
	log      *zap.Logger
	policies Policies

	mu    sync.RWMutex
	cards []models.Card
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPolicies overrides DefaultPolicies.
func WithPolicies(p Policies) Option {
	return func(s *Store) { s.policies = p }
}

// New returns an empty Store.
func New(gw Gateway, gate Gate, opts ...Option) *Store {
	s := &Store{
		gw:       gw,
		gate:     gate,
		log:      zap.NewNop(),
		policies: DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cards returns a copy of the collection in display order.
func (s *Store) Cards() []models.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Card, len(s.cards))
	for i, c := range s.cards {
		out[i] = c.Clone()
	}
	return out
}

// Card returns the card with id.
func (s *Store) Card(id string) (models.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.cards[i].Clone(), true
	}
	return models.Card{}, false
}

// Len returns the number of cards held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// Reset empties the collection, e.g. on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cards = nil
	s.mu.Unlock()
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// LoadAll replaces the collection with the server's, in server order. On
// failure the collection is left empty.
func (s *Store) LoadAll(ctx context.Context) error {
	if s.gate != nil && !s.gate.Authenticated() {
		return ErrNotAuthenticated
	}

	cards, err := s.gw.ListCards(ctx)
	if err != nil {
		s.Reset()
		s.log.Warn("failed to load cards", zap.Error(err))
		return err
	}

	unique := make([]models.Card, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
	}

	s.mu.Lock()
	s.cards = unique
	s.mu.Unlock()

	s.log.Debug("cards loaded", zap.Int("count", len(unique)))
	return nil
}

// Add creates a card and puts it first.
func (s *Store) Add(ctx context.Context, in models.NewCard) (models.Card, error) {
	card, err := s.gw.CreateCard(ctx, in)
	if err != nil {
		return models.Card{}, err
	}

	s.mu.Lock()
	if i := s.indexOf(card.ID); i >= 0 {
		s.cards = append(s.cards[:i], s.cards[i+1:]...)
	}
	s.cards = append([]models.Card{card}, s.cards...)
	s.mu.Unlock()

	return card.Clone(), nil
}

// Remove deletes the card with id. A card that is not held locally yields
// a NotFound error without contacting the server.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return api.NewError("deleteCard", api.KindNotFound, "card is not in the collection")
	}
	prev := s.cards[idx]

	pol := s.policies.For(OpRemove)
	if pol.Mode == Optimistic {
		s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
	}
	s.mu.Unlock()

	if err := s.gw.DeleteCard(ctx, id); err != nil {
		if pol.Mode == Optimistic && pol.RollbackOnFailure {
			s.restore(prev, idx)
		}
		return err
	}

	if pol.Mode == Confirmed {
		s.mu.Lock()
		if i := s.indexOf(id); i >= 0 {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
		}
		s.mu.Unlock()
	}
	return nil
}

// restore puts card back near its old position unless it reappeared.
func (s *Store) restore(card models.Card, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(card.ID) >= 0 {
		return
	}
	if idx > len(s.cards) {
		idx = len(s.cards)
	}
	s.cards = append(s.cards[:idx], append([]models.Card{card}, s.cards[idx:]...)...)
}

// ToggleLike flips userID's like on the card with id. The like direction
// comes from the local likes; the server's card then replaces the local one.
func (s *Store) ToggleLike(ctx context.Context, id, userID string) (models.Card, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.Card{}, api.NewError("toggleLike", api.KindNotFound, "card is not in the collection")
	}
	prev := s.cards[idx].Clone()
	liked := prev.LikedBy(userID)

	pol := s.policies.For(OpToggleLike)
	if pol.Mode == Optimistic {
		s.cards[idx] = flipLike(prev, userID, liked)
	}
	s.mu.Unlock()

	card, err := s.gw.ToggleLike(ctx, id, liked)
	if err != nil {
		if pol.Mode == Optimistic && pol.RollbackOnFailure {
			s.replace(prev)
		}
		return models.Card{}, err
	}

	s.replace(card)
	return card.Clone(), nil
}

// replace swaps the card with the same id; cards removed meanwhile stay removed.
func (s *Store) replace(card models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(card.ID); i >= 0 {
		s.cards[i] = card
	}
}

func flipLike(c models.Card, userID string, liked bool) models.Card {
	out := c.Clone()
	if liked {
		likes := out.Likes[:0]
		for _, id := range out.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		out.Likes = likes
		return out
	}
	out.Likes = append(out.Likes, userID)
	return out
}
