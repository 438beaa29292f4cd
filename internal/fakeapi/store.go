// Package fakeapi is a test double of the hosted Mesto API: cards, profile
// and the signup/signin endpoints behind one chi router, kept in memory. It
// exists for end-to-end tests of the client and for local runs of the shell
// (cmd/server). It is not a backend implementation: nothing is persisted and
// only the behaviour the client depends on is reproduced, plus hooks for
// fault injection.
package fakeapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL matches the lifetime of tokens issued by the real auth API.
const tokenTTL = 7 * 24 * time.Hour

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
	errConflict  = errors.New("conflict")
	errBadLogin  = errors.New("wrong email or password")
)

type user struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	About  string `json:"about"`
	Avatar string `json:"avatar"`
	Email  string `json:"email"`
	hash   []byte
}

type ref struct {
	ID string `json:"_id"`
}

type card struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	Owner     ref       `json:"owner"`
	Likes     []ref     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c card) clone() card {
	c.Likes = append([]ref{}, c.Likes...)
	return c
}

// store holds users, revoked tokens and cards. Cards are kept newest first,
// the order the API lists them in. Tokens are HS256 JWTs signed with a key
// generated per store.
type store struct {
	mu      sync.Mutex
	users   map[string]*user // by id
	emails  map[string]string
	revoked map[string]bool
	cards   []card
	key     []byte
	now     func() time.Time
}

func newStore() *store {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("fakeapi: generate signing key: %v", err))
	}
	return &store{
		users:   map[string]*user{},
		emails:  map[string]string{},
		revoked: map[string]bool{},
		key:     key,
		now:     time.Now,
	}
}

func (s *store) register(email, password string) (user, error) {
	// MinCost keeps tests fast; the hash is never persisted.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return user{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[email]; ok {
		return user{}, errConflict
	}
	u := &user{
		ID:     uuid.NewString(),
		Name:   "Jacques Cousteau",
		About:  "Explorer",
		Avatar: "https://pictures.s3.yandex.net/resources/jacques-cousteau_1604399756.png",
		Email:  email,
		hash:   hash,
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return *u, nil
}

func (s *store) login(email, password string) (string, error) {
	s.mu.Lock()
	id, ok := s.emails[email]
	var hash []byte
	if ok {
		hash = s.users[id].hash
	}
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", errBadLogin
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// resolve verifies token and returns the user it was issued to.
func (s *store) resolve(token string) (string, bool) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[token] {
		return "", false
	}
	if _, ok := s.users[claims.Subject]; !ok {
		return "", false
	}
	return claims.Subject, true
}

func (s *store) revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

func (s *store) user(id string) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, errNotFound
	}
	return *u, nil
}

func (s *store) updateUser(id string, fn func(u *user)) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, errNotFound
	}
	fn(u)
	return *u, nil
}

func (s *store) listCards() []card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]card, len(s.cards))
	for i, c := range s.cards {
		out[i] = c.clone()
	}
	return out
}

func (s *store) addCard(ownerID, name, link string) card {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := card{
		ID:        uuid.NewString(),
		Name:      name,
		Link:      link,
		Owner:     ref{ID: ownerID},
		Likes:     []ref{},
		CreatedAt: s.now().UTC(),
	}
	s.cards = append([]card{c}, s.cards...)
	return c.clone()
}

func (s *store) index(id string) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *store) deleteCard(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return errNotFound
	}
	if s.cards[i].Owner.ID != userID {
		return errForbidden
	}
	s.cards = append(s.cards[:i], s.cards[i+1:]...)
	return nil
}

// setLike adds or removes userID from the card's likes. Both directions are
// idempotent.
func (s *store) setLike(userID, id string, liked bool) (card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return card{}, errNotFound
	}
	c := &s.cards[i]
	likes := make([]ref, 0, len(c.Likes)+1)
	for _, r := range c.Likes {
		if r.ID != userID {
			likes = append(likes, r)
		}
	}
	if liked {
		likes = append(likes, ref{ID: userID})
	}
	c.Likes = likes
	return c.clone(), nil
}
