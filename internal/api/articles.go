package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type ArticleClient struct {
	s Sender
}

type articleEnvelope struct {
	Article models.Article `json:"article"`
}

func (c *ArticleClient) List(ctx context.Context) ([]models.Article, error) {
	resp, err := c.s.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/articles"})
	if err != nil {
		return nil, err
	}
	var env struct {
		Articles []models.Article `json:"articles"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	if env.Articles == nil {
		env.Articles = []models.Article{}
	}
	return env.Articles, nil
}

func (c *ArticleClient) Get(ctx context.Context, id string) (*models.Article, error) {
	return c.sendArticle(ctx, gateway.Request{Method: http.MethodGet, Path: path("articles", id)})
}

func (c *ArticleClient) Create(ctx context.Context, in models.ArticleInput) (*models.Article, error) {
	return c.sendArticle(ctx, gateway.Request{Method: http.MethodPost, Path: "/articles", Body: in})
}

func (c *ArticleClient) Update(ctx context.Context, id string, in models.ArticleInput) (*models.Article, error) {
	return c.sendArticle(ctx, gateway.Request{Method: http.MethodPut, Path: path("articles", id), Body: in})
}

func (c *ArticleClient) Delete(ctx context.Context, id string) error {
	_, err := c.s.Send(ctx, gateway.Request{Method: http.MethodDelete, Path: path("articles", id)})
	return err
}

// ToggleFavorite flips the session user's favorite on the article; the server decides the
// direction and returns the resulting article.
func (c *ArticleClient) ToggleFavorite(ctx context.Context, id string) (*models.Article, error) {
	return c.sendArticle(ctx, gateway.Request{Method: http.MethodPost, Path: path("articles", id, "favorite")})
}

func (c *ArticleClient) sendArticle(ctx context.Context, req gateway.Request) (*models.Article, error) {
	resp, err := c.s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	var env articleEnvelope
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return &env.Article, nil
}
