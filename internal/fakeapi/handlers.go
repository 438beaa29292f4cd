package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/mesto/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps store errors onto the statuses the real API uses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		middleware.WriteMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, errForbidden):
		middleware.WriteMessage(w, http.StatusForbidden, "you can only delete your own cards")
	case errors.Is(err, errConflict):
		middleware.WriteMessage(w, http.StatusConflict, "user with this email already exists")
	case errors.Is(err, errBadLogin):
		middleware.WriteMessage(w, http.StatusUnauthorized, err.Error())
	default:
		middleware.WriteMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= lo && n <= hi
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	// bcrypt ignores anything past 72 bytes.
	return req, strings.Contains(req.Email, "@") && req.Password != "" && len(req.Password) <= 72
}

// signup handles POST /signup.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		middleware.WriteMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}
	u, err := s.store.register(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"_id": u.ID, "email": u.Email}})
}

// signin handles POST /signin.
func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		middleware.WriteMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}
	token, err := s.store.login(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// me handles GET /users/me. The auth API wraps the user in "data".
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.user(middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": u})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		About string `json:"about"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !lengthBetween(req.Name, 2, 40) || !lengthBetween(req.About, 2, 200) {
		middleware.WriteMessage(w, http.StatusBadRequest, "name must be 2-40 characters and about 2-200")
		return
	}
	u, err := s.store.updateUser(middleware.GetUserIDFromContext(r.Context()), func(u *user) {
		u.Name, u.About = req.Name, req.About
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateAvatar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !isURL(req.Avatar) {
		middleware.WriteMessage(w, http.StatusBadRequest, "avatar must be a link")
		return
	}
	u, err := s.store.updateUser(middleware.GetUserIDFromContext(r.Context()), func(u *user) {
		u.Avatar = req.Avatar
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listCards())
}

func (s *Server) createCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !lengthBetween(req.Name, 2, 30) || !isURL(req.Link) {
		middleware.WriteMessage(w, http.StatusBadRequest, "name must be 2-30 characters and link a URL")
		return
	}
	c := s.store.addCard(middleware.GetUserIDFromContext(r.Context()), req.Name, req.Link)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	err := s.store.deleteCard(middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "cardID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	middleware.WriteMessage(w, http.StatusOK, "card deleted")
}

func (s *Server) like(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true)
}

func (s *Server) unlike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false)
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	c, err := s.store.setLike(middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "cardID"), liked)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
