package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/mesto/internal/models"
)

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, creds models.Credentials) error {
	return c.do(ctx, "register", http.MethodPost, c.authURL+"/signup", "", creds, nil)
}

// Authenticate exchanges credentials for a session token.
func (c *Client) Authenticate(ctx context.Context, creds models.Credentials) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "authenticate", http.MethodPost, c.authURL+"/signin", "", creds, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", NewError("authenticate", KindUnknown, "server returned no token")
	}
	return out.Token, nil
}

// FetchIdentity returns the user the token belongs to.
func (c *Client) FetchIdentity(ctx context.Context, token string) (models.Identity, error) {
	var env identityEnvelope
	if err := c.do(ctx, "fetchIdentity", http.MethodGet, c.authURL+"/users/me", token, nil, &env); err != nil {
		return models.Identity{}, err
	}
	id := env.identity()
	if id.ID == "" {
		return models.Identity{}, NewError("fetchIdentity", KindUnknown, "server returned no user id")
	}
	return id, nil
}
