package api

import (
	"encoding/json"
	"time"

	"github.com/atinyakov/mesto/internal/models"
)

// userRef is a user reference that the server sends either as a bare id or
// as a populated user object.
type userRef struct {
	ID string
}

func (r *userRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		r.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

type wireCard struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	Owner     userRef   `json:"owner"`
	Likes     []userRef `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// toModel converts the wire card and drops duplicate likes.
func (w wireCard) toModel() models.Card {
	likes := make([]string, 0, len(w.Likes))
	seen := make(map[string]bool, len(w.Likes))
	for _, l := range w.Likes {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		likes = append(likes, l.ID)
	}
	return models.Card{
		ID:        w.ID,
		Name:      w.Name,
		Link:      w.Link,
		OwnerID:   w.Owner.ID,
		Likes:     likes,
		CreatedAt: w.CreatedAt,
	}
}

// identityEnvelope accepts both {"data": {...}} from the auth API and a
// bare user object from the cards API.
type identityEnvelope struct {
	Data *models.Identity `json:"data"`
	models.Identity
}

func (e identityEnvelope) identity() models.Identity {
	if e.Data != nil {
		return *e.Data
	}
	return e.Identity
}
