package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type CommentClient struct {
	s Sender
}

func (c *CommentClient) List(ctx context.Context, articleID string) ([]models.Comment, error) {
	resp, err := c.s.Send(ctx, gateway.Request{Method: http.MethodGet, Path: path("articles", articleID, "comments")})
	if err != nil {
		return nil, err
	}
	var env struct {
		Comments []models.Comment `json:"comments"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	if env.Comments == nil {
		env.Comments = []models.Comment{}
	}
	return env.Comments, nil
}

func (c *CommentClient) Add(ctx context.Context, articleID, body string) (*models.Comment, error) {
	req := gateway.Request{
		Method: http.MethodPost,
		Path:   path("articles", articleID, "comments"),
		Body:   map[string]string{"body": body},
	}
	resp, err := c.s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	var env struct {
		Comment models.Comment `json:"comment"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}
	return &env.Comment, nil
}

func (c *CommentClient) Delete(ctx context.Context, articleID, commentID string) error {
	_, err := c.s.Send(ctx, gateway.Request{Method: http.MethodDelete, Path: path("articles", articleID, "comments", commentID)})
	return err
}
