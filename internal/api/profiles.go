package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type ProfileClient struct {
	s Sender
}

func (c *ProfileClient) Get(ctx context.Context, username string) (*models.Profile, error) {
	return c.sendProfile(ctx, gateway.Request{Method: http.MethodGet, Path: path("profiles", username)})
}

func (c *ProfileClient) ToggleFollow(ctx context.Context, username string) (*models.Profile, error) {
	return c.sendProfile(ctx, gateway.Request{Method: http.MethodPost, Path: path("profiles", username, "follow")})
}

func (c *ProfileClient) sendProfile(ctx context.Context, req gateway.Request) (*models.Profile, error) {
	resp, err := c.s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	var env struct {
		Profile models.Profile `json:"profile"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return &env.Profile, nil
}
