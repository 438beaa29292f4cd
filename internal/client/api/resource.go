package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/atinyakov/mesto/internal/models"
)

// TokenSource supplies the current session token for cards API calls.
type TokenSource interface {
	Token() string
}

// ListCards returns the shared collection in server order.
func (c *Client) ListCards(ctx context.Context, token string) ([]models.Card, error) {
	var wire []wireCard
	if err := c.do(ctx, "listCards", http.MethodGet, c.apiURL+"/cards", token, nil, &wire); err != nil {
		return nil, err
	}
	cards := make([]models.Card, 0, len(wire))
	for _, w := range wire {
		cards = append(cards, w.toModel())
	}
	return cards, nil
}

// CreateCard publishes a new card and returns it as stored by the server.
func (c *Client) CreateCard(ctx context.Context, token string, card models.NewCard) (models.Card, error) {
	var wire wireCard
	if err := c.do(ctx, "createCard", http.MethodPost, c.apiURL+"/cards", token, card, &wire); err != nil {
		return models.Card{}, err
	}
	if wire.ID == "" {
		return models.Card{}, NewError("createCard", KindUnknown, "server returned a card without id")
	}
	return wire.toModel(), nil
}

// DeleteCard removes a card owned by the user.
func (c *Client) DeleteCard(ctx context.Context, token, id string) error {
	return c.do(ctx, "deleteCard", http.MethodDelete, c.apiURL+"/cards/"+url.PathEscape(id), token, nil, nil)
}

// ToggleLike likes the card when currentlyLiked is false and unlikes it
// otherwise. The server answers PUT and DELETE on the likes resource with
// set semantics, so repeating a direction is harmless; the returned card is
// authoritative either way.
func (c *Client) ToggleLike(ctx context.Context, token, id string, currentlyLiked bool) (models.Card, error) {
	method := http.MethodPut
	if currentlyLiked {
		method = http.MethodDelete
	}
	var wire wireCard
	if err := c.do(ctx, "toggleLike", method, c.apiURL+"/cards/"+url.PathEscape(id)+"/likes", token, nil, &wire); err != nil {
		return models.Card{}, err
	}
	return wire.toModel(), nil
}

// UpdateProfile changes the display name and bio.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd models.ProfileUpdate) (models.Identity, error) {
	var env identityEnvelope
	if err := c.do(ctx, "updateProfile", http.MethodPatch, c.apiURL+"/users/me", token, upd, &env); err != nil {
		return models.Identity{}, err
	}
	return env.identity(), nil
}

// UpdateAvatar changes the profile picture.
func (c *Client) UpdateAvatar(ctx context.Context, token, avatarURL string) (models.Identity, error) {
	var env identityEnvelope
	in := map[string]string{"avatar": avatarURL}
	if err := c.do(ctx, "updateAvatar", http.MethodPatch, c.apiURL+"/users/me/avatar", token, in, &env); err != nil {
		return models.Identity{}, err
	}
	return env.identity(), nil
}

// CardsAPI is the subset of the gateway used by the card collection, bound
// to a TokenSource so the collection never handles the token itself.
type CardsAPI struct {
	client *Client
	tokens TokenSource
}

// Cards binds the card operations to ts.
func (c *Client) Cards(ts TokenSource) *CardsAPI {
	return &CardsAPI{client: c, tokens: ts}
}

// ListCards calls Client.ListCards with the current token.
func (a *CardsAPI) ListCards(ctx context.Context) ([]models.Card, error) {
	return a.client.ListCards(ctx, a.tokens.Token())
}

// CreateCard calls Client.CreateCard with the current token.
func (a *CardsAPI) CreateCard(ctx context.Context, card models.NewCard) (models.Card, error) {
	return a.client.CreateCard(ctx, a.tokens.Token(), card)
}

// DeleteCard calls Client.DeleteCard with the current token.
func (a *CardsAPI) DeleteCard(ctx context.Context, id string) error {
	return a.client.DeleteCard(ctx, a.tokens.Token(), id)
}

// ToggleLike calls Client.ToggleLike with the current token.
func (a *CardsAPI) ToggleLike(ctx context.Context, id string, currentlyLiked bool) (models.Card, error) {
	return a.client.ToggleLike(ctx, a.tokens.Token(), id, currentlyLiked)
}
