// Package models defines the core data structures shared by the client
// components: the signed-in identity, cards and request payloads.
package models

import "time"

// Identity is the profile of the authenticated user.
type Identity struct {
	// ID is the server-assigned user identifier.
	ID string `json:"_id"`
	// Name is the display name shown in the profile header.
	Name string `json:"name"`
	// About is the free-form bio line.
	About string `json:"about"`
	// Avatar is the URL of the profile picture.
	Avatar string `json:"avatar"`
	// Email is the login the user registered with.
	Email string `json:"email"`
}

// Card is a single shared image post.
type Card struct {
	// ID is unique within a collection.
	ID string
	// Name is the caption shown under the image.
	Name string
	// Link is the image URL.
	Link string
	// OwnerID is the ID of the user who created the card.
	OwnerID string
	// Likes holds the IDs of the users who liked the card, without duplicates.
	Likes []string
	// CreatedAt is set by the server.
	CreatedAt time.Time
}

// LikeCount returns the number of distinct users who liked the card.
func (c Card) LikeCount() int {
	return len(c.Likes)
}

// LikedBy reports whether userID is among the card's likes.
func (c Card) LikedBy(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// OwnedBy reports whether userID created the card.
func (c Card) OwnedBy(userID string) bool {
	return userID != "" && c.OwnerID == userID
}

// Clone returns a copy of the card that shares no memory with c.
func (c Card) Clone() Card {
	out := c
	if c.Likes != nil {
		out.Likes = append([]string(nil), c.Likes...)
	}
	return out
}

// Credentials are submitted on registration and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewCard is the payload of the add-place form.
type NewCard struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// ProfileUpdate is the payload of the edit-profile form.
type ProfileUpdate struct {
	Name  string `json:"name"`
	About string `json:"about"`
}
