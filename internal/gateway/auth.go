package gateway

import (
	"context"
	"net/http"

	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

// AuthEndpoints are the paths of the authentication calls
type AuthEndpoints struct {
	Login   string
	Logout  string
	Profile string
}

// AuthClient performs the authentication calls
type AuthClient struct {
	client    *Client
	endpoints AuthEndpoints
}

// NewAuthClient creates an AuthClient on top of c
func NewAuthClient(c *Client, endpoints AuthEndpoints) *AuthClient {
	return &AuthClient{client: c, endpoints: endpoints}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token and the caller's profile.
func (a *AuthClient) Login(ctx context.Context, identifier, secret string) (normalize.LoginResult, error) {
	resp, err := a.client.Do(ctx, Request{
		Name:     "auth.login",
		Method:   http.MethodPost,
		Path:     a.endpoints.Login,
		Body:     loginRequest{Email: identifier, Password: secret},
		AuthCall: true,
	})
	if err != nil {
		return normalize.LoginResult{}, err
	}
	return normalize.Login(resp.Body)
}

// Logout tells the backend the session ends. A rejected token is not an
// expiry episode here, the session is being torn down anyway.
func (a *AuthClient) Logout(ctx context.Context) error {
	if a.endpoints.Logout == "" {
		return nil
	}
	_, err := a.client.Do(ctx, Request{
		Name:     "auth.logout",
		Method:   http.MethodPost,
		Path:     a.endpoints.Logout,
		AuthCall: true,
	})
	return err
}

// Profile verifies the stored token by fetching the caller's profile.
func (a *AuthClient) Profile(ctx context.Context) (console.Profile, error) {
	resp, err := a.client.Do(ctx, Request{
		Name:     "auth.profile",
		Method:   http.MethodGet,
		Path:     a.endpoints.Profile,
		AuthCall: true,
	})
	if err != nil {
		return console.Profile{}, err
	}
	return normalize.Profile(resp.Body)
}
