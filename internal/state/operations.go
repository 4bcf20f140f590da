package state

import (
	"context"
	"errors"

	"github.com/thomaskoefod/conduit/pkg/models"
)

// ErrEmptyResponse is the result of a client call that returned neither a value nor an
// error.
var ErrEmptyResponse = errors.New("empty response")

func (s *Store) Register(ctx context.Context, reg models.Registration) *Task {
	return s.run(ctx, OpRegister, func(ctx context.Context) (any, error) {
		return userPayload(s.clients.Auth.Register(ctx, reg))
	})
}

func (s *Store) Login(ctx context.Context, creds models.Credentials) *Task {
	return s.run(ctx, OpLogin, func(ctx context.Context) (any, error) {
		return userPayload(s.clients.Auth.Login(ctx, creds))
	})
}

// FetchCurrentUser asks the server who the session belongs to. A failure clears the
// session without recording an error.
func (s *Store) FetchCurrentUser(ctx context.Context) *Task {
	return s.run(ctx, OpFetchCurrentUser, func(ctx context.Context) (any, error) {
		return userPayload(s.clients.Auth.CurrentUser(ctx))
	})
}

// Bootstrap restores the session once per Store; later calls return the first Task.
func (s *Store) Bootstrap(ctx context.Context) *Task {
	s.bootstrapOnce.Do(func() {
		s.bootstrap = s.FetchCurrentUser(ctx)
	})
	return s.bootstrap
}

func (s *Store) UpdateUser(ctx context.Context, update models.UserUpdate) *Task {
	return s.run(ctx, OpUpdateUser, func(ctx context.Context) (any, error) {
		return userPayload(s.clients.Auth.UpdateUser(ctx, update))
	})
}

func (s *Store) Logout(ctx context.Context) *Task {
	return s.run(ctx, OpLogout, func(ctx context.Context) (any, error) {
		return nil, s.clients.Auth.Logout(ctx)
	})
}

func (s *Store) FetchArticles(ctx context.Context) *Task {
	return s.run(ctx, OpFetchArticles, func(ctx context.Context) (any, error) {
		articles, err := s.clients.Articles.List(ctx)
		if err != nil {
			return nil, err
		}
		return articles, nil
	})
}

func (s *Store) FetchArticle(ctx context.Context, id string) *Task {
	return s.run(ctx, OpFetchArticle, func(ctx context.Context) (any, error) {
		return articlePayload(s.clients.Articles.Get(ctx, id))
	})
}

func (s *Store) CreateArticle(ctx context.Context, in models.ArticleInput) *Task {
	return s.run(ctx, OpCreateArticle, func(ctx context.Context) (any, error) {
		return articlePayload(s.clients.Articles.Create(ctx, in))
	})
}

func (s *Store) UpdateArticle(ctx context.Context, id string, in models.ArticleInput) *Task {
	return s.run(ctx, OpUpdateArticle, func(ctx context.Context) (any, error) {
		return articlePayload(s.clients.Articles.Update(ctx, id, in))
	})
}

func (s *Store) DeleteArticle(ctx context.Context, id string) *Task {
	return s.run(ctx, OpDeleteArticle, func(ctx context.Context) (any, error) {
		if err := s.clients.Articles.Delete(ctx, id); err != nil {
			return nil, err
		}
		return id, nil
	})
}

// ToggleFavorite flips the favorite flag. Its outcome is merged into the list and the
// current article but never changes the slice status or error; a failure is only
// visible through the Task result.
func (s *Store) ToggleFavorite(ctx context.Context, id string) *Task {
	return s.run(ctx, OpToggleFavorite, func(ctx context.Context) (any, error) {
		return articlePayload(s.clients.Articles.ToggleFavorite(ctx, id))
	})
}

// FetchComments replaces the comment collection with the comments of articleID.
func (s *Store) FetchComments(ctx context.Context, articleID string) *Task {
	return s.run(ctx, OpFetchComments, func(ctx context.Context) (any, error) {
		comments, err := s.clients.Comments.List(ctx, articleID)
		if err != nil {
			return nil, err
		}
		return CommentPage{ArticleID: articleID, Comments: comments}, nil
	})
}

func (s *Store) AddComment(ctx context.Context, articleID, body string) *Task {
	return s.run(ctx, OpAddComment, func(ctx context.Context) (any, error) {
		c, err := s.clients.Comments.Add(ctx, articleID, body)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrEmptyResponse
		}
		return *c, nil
	})
}

func (s *Store) DeleteComment(ctx context.Context, articleID, commentID string) *Task {
	return s.run(ctx, OpDeleteComment, func(ctx context.Context) (any, error) {
		if err := s.clients.Comments.Delete(ctx, articleID, commentID); err != nil {
			return nil, err
		}
		return commentID, nil
	})
}

func (s *Store) FetchProfile(ctx context.Context, username string) *Task {
	return s.run(ctx, OpFetchProfile, func(ctx context.Context) (any, error) {
		return profilePayload(s.clients.Profiles.Get(ctx, username))
	})
}

func (s *Store) ToggleFollow(ctx context.Context, username string) *Task {
	return s.run(ctx, OpToggleFollow, func(ctx context.Context) (any, error) {
		return profilePayload(s.clients.Profiles.ToggleFollow(ctx, username))
	})
}

func (s *Store) FetchTags(ctx context.Context) *Task {
	return s.run(ctx, OpFetchTags, func(ctx context.Context) (any, error) {
		tags, err := s.clients.Tags.List(ctx)
		if err != nil {
			return nil, err
		}
		return tags, nil
	})
}

func userPayload(u *models.User, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrEmptyResponse
	}
	return u, nil
}

func articlePayload(a *models.Article, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrEmptyResponse
	}
	return *a, nil
}

func profilePayload(p *models.Profile, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrEmptyResponse
	}
	return *p, nil
}
