package fakeapi

import (
	"net/http"
	"sync"

	"github.com/atinyakov/mesto/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type fault struct {
	method, path string
	status       int
	message      string
}

// Server is the fake API. It implements http.Handler; tests usually wrap it
// in httptest.NewServer and point both the cards and the auth base URL at it.
type Server struct {
	store   *store
	handler http.Handler

	mu       sync.Mutex
	faults   []fault
	hook     func(*http.Request)
	requests map[string]int
}

// New builds the router.
//
// Routes:
//
//	POST   /signup                  public
//	POST   /signin                  public
//	GET    /users/me                bearer
//	PATCH  /users/me                bearer
//	PATCH  /users/me/avatar         bearer
//	GET    /cards                   bearer
//	POST   /cards                   bearer
//	DELETE /cards/{cardID}          bearer
//	PUT    /cards/{cardID}/likes    bearer
//	DELETE /cards/{cardID}/likes    bearer
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: newStore(), requests: map[string]int{}}

	r := chi.NewRouter()
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(s.faultInjection)

	r.Post("/signup", s.signup)
	r.Post("/signin", s.signin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.store.resolve))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", s.me)
			r.Patch("/", s.updateProfile)
			r.Patch("/avatar", s.updateAvatar)
		})
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.listCards)
			r.Post("/", s.createCard)
			r.Delete("/{cardID}", s.deleteCard)
			r.Put("/{cardID}/likes", s.like)
			r.Delete("/{cardID}/likes", s.unlike)
		})
	})

	s.handler = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// faultInjection counts requests, runs the OnRequest hook and answers with a
// queued fault when one matches.
func (s *Server) faultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		hook := s.hook
		var hit *fault
		for i, f := range s.faults {
			if f.method == r.Method && f.path == r.URL.Path {
				hit = &f
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if hook != nil {
			hook(r)
		}
		if hit != nil {
			middleware.WriteMessage(w, hit.status, hit.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next method+path request fail with status.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	s.faults = append(s.faults, fault{method: method, path: path, status: status, message: message})
	s.mu.Unlock()
}

// OnRequest installs fn to run before every request is handled. fn may block
// to hold a request in flight.
func (s *Server) OnRequest(fn func(*http.Request)) {
	s.mu.Lock()
	s.hook = fn
	s.mu.Unlock()
}

// Requests returns how many "METHOD /path" requests were received.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// SeedUser registers a user and returns its id.
func (s *Server) SeedUser(email, password string) (string, error) {
	u, err := s.store.register(email, password)
	return u.ID, err
}

// SeedCard adds a card owned by ownerID in front of the others and returns
// its id.
func (s *Server) SeedCard(ownerID, name, link string) string {
	return s.store.addCard(ownerID, name, link).ID
}

// IssueToken signs in directly, bypassing HTTP.
func (s *Server) IssueToken(email, password string) (string, error) {
	return s.store.login(email, password)
}

// Revoke invalidates token as if it had expired.
func (s *Server) Revoke(token string) {
	s.store.revoke(token)
}

// Like sets userID's like on a card directly, bypassing HTTP.
func (s *Server) Like(userID, cardID string, liked bool) error {
	_, err := s.store.setLike(userID, cardID, liked)
	return err
}

// DeleteCard removes a card directly, regardless of owner.
func (s *Server) DeleteCard(cardID string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if i := s.store.index(cardID); i >= 0 {
		s.store.cards = append(s.store.cards[:i], s.store.cards[i+1:]...)
	}
}

// Likes returns the user ids that liked a card, or nil if it does not exist.
func (s *Server) Likes(cardID string) []string {
	for _, c := range s.store.listCards() {
		if c.ID == cardID {
			out := make([]string, len(c.Likes))
			for i, r := range c.Likes {
				out[i] = r.ID
			}
			return out
		}
	}
	return nil
}
