package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thomaskoefod/conduit/internal/gateway"
)

type TagClient struct {
	s Sender
}

func (c *TagClient) List(ctx context.Context) ([]string, error) {
	resp, err := c.s.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/tags"})
	if err != nil {
		return nil, err
	}
	var env struct {
		Tags []string `json:"tags"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	if env.Tags == nil {
		env.Tags = []string{}
	}
	return env.Tags, nil
}
