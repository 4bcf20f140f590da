package state

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thomaskoefod/conduit/internal/api"
	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

// ErrClosed is the result of operations started after Close.
var ErrClosed = errors.New("store closed")

type AuthAPI interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	UpdateUser(ctx context.Context, update models.UserUpdate) (*models.User, error)
	Logout(ctx context.Context) error
}

type ArticleAPI interface {
	List(ctx context.Context) ([]models.Article, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	Create(ctx context.Context, in models.ArticleInput) (*models.Article, error)
	Update(ctx context.Context, id string, in models.ArticleInput) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (*models.Article, error)
}

type CommentAPI interface {
	List(ctx context.Context, articleID string) ([]models.Comment, error)
	Add(ctx context.Context, articleID, body string) (*models.Comment, error)
	Delete(ctx context.Context, articleID, commentID string) error
}

type ProfileAPI interface {
	Get(ctx context.Context, username string) (*models.Profile, error)
	ToggleFollow(ctx context.Context, username string) (*models.Profile, error)
}

type TagAPI interface {
	List(ctx context.Context) ([]string, error)
}

// Clients are the resource clients the Store issues its requests through.
type Clients struct {
	Auth     AuthAPI
	Articles ArticleAPI
	Comments CommentAPI
	Profiles ProfileAPI
	Tags     TagAPI
}

// FromAPI adapts the HTTP resource clients.
func FromAPI(c api.Clients) Clients {
	return Clients{
		Auth:     c.Auth,
		Articles: c.Articles,
		Comments: c.Comments,
		Profiles: c.Profiles,
		Tags:     c.Tags,
	}
}

// State is a snapshot of every slice. Slices inside a snapshot are shared with the
// Store and must be treated as read-only.
type State struct {
	Auth     AuthState
	Articles ArticlesState
	Comments CommentsState
	Profiles ProfilesState
	Tags     TagsState
}

func initialState() State {
	return State{
		Auth:     AuthState{Lifecycle: idle()},
		Articles: ArticlesState{Lifecycle: idle(), Articles: []models.Article{}},
		Comments: CommentsState{Lifecycle: idle(), Comments: []models.Comment{}},
		Profiles: ProfilesState{Lifecycle: idle()},
		Tags:     TagsState{Lifecycle: idle(), Tags: []string{}},
	}
}

// Reduce routes a to the one slice that owns its Op.
func Reduce(s State, a Action) State {
	switch a.Op.Slice() {
	case SliceAuth:
		s.Auth = s.Auth.Reduce(a)
	case SliceArticles:
		s.Articles = s.Articles.Reduce(a)
	case SliceComments:
		s.Comments = s.Comments.Reduce(a)
	case SliceProfiles:
		s.Profiles = s.Profiles.Reduce(a)
	case SliceTags:
		s.Tags = s.Tags.Reduce(a)
	}
	return s
}

// Observer sees every applied action, in application order, with the resulting state.
// It runs while the Store is locked and must not call back into the Store.
type Observer func(Action, State)

type Option func(*Store)

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithObserver(fn Observer) Option {
	return func(s *Store) {
		s.observer = fn
	}
}

// Store is the one mutable container of client state. All reducer applications are
// serialized; network calls run concurrently and apply their outcome when they resolve,
// so concurrent operations on one slice leave the status of whichever resolved last.
type Store struct {
	clients  Clients
	logger   *logrus.Logger
	observer Observer

	mu     sync.Mutex
	state  State
	closed bool
	wg     sync.WaitGroup

	bootstrapOnce sync.Once
	bootstrap     *Task
}

func New(clients Clients, opts ...Option) *Store {
	s := &Store{
		clients: clients,
		state:   initialState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a synchronous action.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(a)
}

func (s *Store) applyLocked(a Action) State {
	s.state = Reduce(s.state, a)
	s.logger.WithFields(logrus.Fields{
		"op":    a.Op,
		"phase": a.Phase,
	}).Debug("state action")
	if s.observer != nil {
		s.observer(a, s.state)
	}
	return s.state
}

// Close waits for in-flight operations to resolve; later operations fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

type call func(ctx context.Context) (any, error)

// run applies the Requested action, performs fn in the background and applies its
// outcome. The caller's cancellation does not reach fn; only transport limits end it.
func (s *Store) run(ctx context.Context, op Op, fn call) *Task {
	t := newTask(op)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		t.resolve(Result{Op: op, Phase: Failed, Err: ErrClosed, Message: ErrClosed.Error()})
		return t
	}
	s.wg.Add(1)
	s.applyLocked(Action{Op: op, Phase: Requested})
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()

		payload, err := fn(ctx)
		a := Action{Op: op, Phase: Succeeded, Payload: payload}
		res := Result{Op: op, Phase: Succeeded, Payload: payload}
		if err != nil {
			msg := gateway.Message(err)
			if msg == "" {
				msg = Fallback(op)
			}
			a = Action{Op: op, Phase: Failed, Error: msg}
			res = Result{Op: op, Phase: Failed, Err: err, Message: msg}
			s.logger.WithError(err).WithField("op", op).Debug("operation failed")
		}

		s.mu.Lock()
		res.State = s.applyLocked(a)
		s.mu.Unlock()
		t.resolve(res)
	}()
	return t
}

// ClearError resets the error of one slice.
func (s *Store) ClearError(slice Slice) State {
	return s.Dispatch(Action{Op: Op(string(slice) + "/clearError"), Phase: Local})
}

func (s *Store) ClearCurrentArticle() State {
	return s.Dispatch(Action{Op: OpClearCurrentArticle, Phase: Local})
}

func (s *Store) ClearComments() State {
	return s.Dispatch(Action{Op: OpClearComments, Phase: Local})
}

func (s *Store) ClearProfile() State {
	return s.Dispatch(Action{Op: OpClearProfile, Phase: Local})
}
