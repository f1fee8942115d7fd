package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kirinyoku/tixhub/internal/session"
)

// Credentials identify a user by username or email.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Profile struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for tokens, loads the profile with the new
// token and stores both in the session.
//
// Returns:
//   - session.Snapshot: the stored session.
//   - error: ErrMissingToken if the API answered without a token,
//     *SubmissionError or *APIError if it rejected the credentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Snapshot, error) {
	const op = "client.Login"

	var tokens tokenPair
	if err := c.doJSON(ctx, http.MethodPost, "login", &RequestOptions{
		JSON:   creds,
		Header: http.Header{"Content-Type": {mimeJSON}},
		noAuth: true,
	}, &tokens); err != nil {
		return session.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	if tokens.Token == "" {
		return session.Snapshot{}, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	var profile Profile
	if err := c.doJSON(ctx, http.MethodGet, "profile", &RequestOptions{
		Header: http.Header{"Authorization": {"Bearer " + tokens.Token}},
		noAuth: true,
	}, &profile); err != nil {
		return session.Snapshot{}, fmt.Errorf("%s: profile: %w", op, err)
	}

	snap := session.Snapshot{
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ID:           profile.ID,
		Username:     profile.Username,
		Email:        profile.Email,
		Roles:        profile.Roles,
	}

	if err := c.session.Set(ctx, snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return snap, nil
}

// Logout revokes the refresh token on a best effort basis and clears the
// session.
func (c *Client) Logout(ctx context.Context) error {
	const op = "client.Logout"

	if rt := c.session.RefreshToken(); rt != "" {
		err := c.doJSON(ctx, http.MethodPost, "logout", &RequestOptions{
			JSON:   map[string]string{"refresh_token": rt},
			Header: http.Header{"Content-Type": {mimeJSON}},
			noAuth: true,
		}, nil)
		if err != nil {
			c.log.DebugContext(ctx, "revoke refresh token", "err", err)
		}
	}

	if err := c.session.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Profile loads the signed in user from the API.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	const op = "client.Profile"

	if c.session.Token() == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotSignedIn)
	}

	var p Profile
	if err := c.GetJSON(ctx, "profile", nil, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// Register creates an account. The session is left untouched.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	const op = "client.Register"

	resp, err := c.Do(ctx, http.MethodPost, "users", &RequestOptions{JSON: in})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if !ok(resp) {
		return nil, fmt.Errorf("%s: %w", op, decodeError(resp))
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}
