package client

import (
	"context"
	"fmt"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for an access token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"

	var resp loginResponse
	err := c.do(ctx, op, http.MethodPost, "/api/auth/jwt/create/", loginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", &Error{Op: op, Kind: KindUnexpected, Status: http.StatusOK, Err: errNoToken}
	}

	if err := c.session.Set(resp.Access); err != nil {
		return "", fmt.Errorf("save credential: %w", err)
	}
	return resp.Access, nil
}

// Logout forgets the stored credential. The backend keeps no server-side session.
func (c *Client) Logout() error {
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Authenticated reports whether a credential is present. It does not check validity.
func (c *Client) Authenticated() bool {
	_, ok := c.session.Get()
	return ok
}
