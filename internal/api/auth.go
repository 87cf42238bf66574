package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carelink/carelink/internal/session"
)

// Login exchanges credentials for a session. On success the session is
// installed in the store, which in turn triggers the realtime connection.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var resp struct {
		Data struct {
			User  User   `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Token == "" {
		return nil, fmt.Errorf("login: server returned no token")
	}

	sess := &session.Session{
		UserID:      resp.Data.User.ID,
		Name:        resp.Data.User.Name,
		Role:        session.Role(resp.Data.User.Role),
		AccessToken: resp.Data.Token,
	}
	// Prefer the token's own claims when they parse; the user object and the
	// token can drift when a role change has not propagated yet.
	if claims, err := session.ParseClaims(resp.Data.Token); err == nil {
		sess.UserID = claims.UserID
		sess.Role = claims.Role
		if claims.Name != "" {
			sess.Name = claims.Name
		}
	}
	if !sess.Role.Valid() {
		return nil, fmt.Errorf("login: unknown role %q", sess.Role)
	}

	c.sessions.Set(sess)
	return sess, nil
}

// Logout clears the local session. There is no server-side call: tokens are
// stateless and simply expire.
func (c *Client) Logout() {
	c.sessions.Clear()
}
