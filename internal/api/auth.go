package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type AuthClient struct {
	s Sender
}

type userEnvelope struct {
	User models.User `json:"user"`
}

func (c *AuthClient) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	return c.sendUser(ctx, gateway.Request{Method: http.MethodPost, Path: "/users", Body: reg})
}

func (c *AuthClient) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	return c.sendUser(ctx, gateway.Request{Method: http.MethodPost, Path: "/users/login", Body: creds})
}

// CurrentUser fetches the session's user. Unlike the other auth endpoints the payload is
// the bare user object.
func (c *AuthClient) CurrentUser(ctx context.Context) (*models.User, error) {
	resp, err := c.s.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/user"})
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

func (c *AuthClient) UpdateUser(ctx context.Context, update models.UserUpdate) (*models.User, error) {
	return c.sendUser(ctx, gateway.Request{Method: http.MethodPut, Path: "/user", Body: update})
}

func (c *AuthClient) Logout(ctx context.Context) error {
	_, err := c.s.Send(ctx, gateway.Request{Method: http.MethodPost, Path: "/users/logout"})
	return err
}

// RefreshToken renews the session credential explicitly. The gateway performs the same
// call on its own when a request comes back unauthorized.
func (c *AuthClient) RefreshToken(ctx context.Context) error {
	_, err := c.s.Send(ctx, gateway.Request{Method: http.MethodPost, Path: gateway.RefreshPath})
	return err
}

func (c *AuthClient) sendUser(ctx context.Context, req gateway.Request) (*models.User, error) {
	resp, err := c.s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	var env userEnvelope
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return &env.User, nil
}
