package state

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type fakeAuth struct {
	user *models.User
	err  error
}

func (f *fakeAuth) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeAuth) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	u.Username = creds.Username
	return &u, nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*models.User, error) { return f.user, f.err }

func (f *fakeAuth) UpdateUser(ctx context.Context, update models.UserUpdate) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeAuth) Logout(ctx context.Context) error { return f.err }

// gatedArticles lets a test decide when, and in which order, article calls resolve.
type gatedArticles struct {
	mu       sync.Mutex
	gates    map[string]chan result
	articles []models.Article
}

type result struct {
	article *models.Article
	list    []models.Article
	err     error
}

func newGatedArticles() *gatedArticles {
	return &gatedArticles{gates: make(map[string]chan result)}
}

func (g *gatedArticles) gate(key string) chan result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan result, 1)
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedArticles) List(ctx context.Context) ([]models.Article, error) {
	r := <-g.gate("list")
	return r.list, r.err
}

func (g *gatedArticles) Get(ctx context.Context, id string) (*models.Article, error) {
	r := <-g.gate("get:" + id)
	return r.article, r.err
}

func (g *gatedArticles) Create(ctx context.Context, in models.ArticleInput) (*models.Article, error) {
	r := <-g.gate("create")
	return r.article, r.err
}

func (g *gatedArticles) Update(ctx context.Context, id string, in models.ArticleInput) (*models.Article, error) {
	r := <-g.gate("update:" + id)
	return r.article, r.err
}

func (g *gatedArticles) Delete(ctx context.Context, id string) error {
	r := <-g.gate("delete:" + id)
	return r.err
}

func (g *gatedArticles) ToggleFavorite(ctx context.Context, id string) (*models.Article, error) {
	r := <-g.gate("favorite:" + id)
	return r.article, r.err
}

type fakeComments struct {
	comments []models.Comment
	err      error
}

func (f *fakeComments) List(ctx context.Context, articleID string) ([]models.Comment, error) {
	return f.comments, f.err
}

func (f *fakeComments) Add(ctx context.Context, articleID, body string) (*models.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Comment{ID: "new", Body: body}, nil
}

func (f *fakeComments) Delete(ctx context.Context, articleID, commentID string) error { return f.err }

type fakeProfiles struct {
	profile models.Profile
	err     error
}

func (f *fakeProfiles) Get(ctx context.Context, username string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.profile
	return &p, nil
}

func (f *fakeProfiles) ToggleFollow(ctx context.Context, username string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.profile
	p.Following = !p.Following
	return &p, nil
}

type fakeTags struct {
	tags []string
	err  error
}

func (f *fakeTags) List(ctx context.Context) ([]string, error) { return f.tags, f.err }

type fixture struct {
	store    *Store
	auth     *fakeAuth
	articles *gatedArticles
	comments *fakeComments
	profiles *fakeProfiles
	tags     *fakeTags
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		auth:     &fakeAuth{user: &models.User{ID: "u1", Username: "ada", Email: "ada@example.com"}},
		articles: newGatedArticles(),
		comments: &fakeComments{},
		profiles: &fakeProfiles{profile: models.Profile{Username: "grace"}},
		tags:     &fakeTags{tags: []string{"go", "redux"}},
	}
	f.store = New(Clients{
		Auth:     f.auth,
		Articles: f.articles,
		Comments: f.comments,
		Profiles: f.profiles,
		Tags:     f.tags,
	}, append([]Option{WithLogger(logger)}, opts...)...)
	t.Cleanup(f.store.Close)
	return f
}

func wait(t *testing.T, task *Task) Result {
	t.Helper()
	select {
	case <-task.Done():
		return task.Wait()
	case <-time.After(2 * time.Second):
		t.Fatalf("task %s did not resolve", task.Op())
		return Result{}
	}
}

func TestStore_InitialState(t *testing.T) {
	f := newFixture(t)
	s := f.store.State()

	assert.Equal(t, StatusIdle, s.Auth.Status)
	assert.False(t, s.Auth.IsAuthenticated)
	assert.Nil(t, s.Auth.User)
	assert.Empty(t, s.Articles.Articles)
	assert.Nil(t, s.Articles.Current)
	assert.Empty(t, s.Comments.Comments)
	assert.Nil(t, s.Profiles.Profile)
	assert.Empty(t, s.Tags.Tags)
}

func TestStore_LoginScenario(t *testing.T) {
	f := newFixture(t)

	res := wait(t, f.store.Login(context.Background(), models.Credentials{Username: "ada", Password: "secret123"}))
	require.True(t, res.OK())

	auth := f.store.State().Auth
	assert.Equal(t, StatusSucceeded, auth.Status)
	assert.True(t, auth.IsAuthenticated)
	require.NotNil(t, auth.User)
	assert.Equal(t, "ada", auth.User.Username)
	assert.Empty(t, auth.Error)
}

func TestStore_RequestedIsAppliedBeforeReturn(t *testing.T) {
	f := newFixture(t)

	task := f.store.FetchArticles(context.Background())
	assert.Equal(t, StatusLoading, f.store.State().Articles.Status)

	f.articles.gate("list") <- result{list: []models.Article{article("a", "A")}}
	res := wait(t, task)
	assert.Equal(t, StatusSucceeded, res.State.Articles.Status)
}

func TestStore_FailureMessages(t *testing.T) {
	t.Run("server message", func(t *testing.T) {
		f := newFixture(t)
		f.tags.err = &gateway.APIError{StatusCode: http.StatusInternalServerError, Message: "database offline"}

		res := wait(t, f.store.FetchTags(context.Background()))
		assert.False(t, res.OK())
		assert.Equal(t, "database offline", res.Message)
		assert.Equal(t, StatusFailed, f.store.State().Tags.Status)
		assert.Equal(t, "database offline", f.store.State().Tags.Error)
	})

	t.Run("fallback for transport errors", func(t *testing.T) {
		f := newFixture(t)
		f.tags.err = errors.New("dial tcp: connection refused")

		wait(t, f.store.FetchTags(context.Background()))
		assert.Equal(t, "Failed to fetch tags", f.store.State().Tags.Error)
	})

	t.Run("fallback when the server sends no message", func(t *testing.T) {
		f := newFixture(t)
		f.auth.err = &gateway.APIError{StatusCode: http.StatusConflict}

		wait(t, f.store.Register(context.Background(), models.Registration{Username: "ada"}))
		assert.Equal(t, "Registration failed", f.store.State().Auth.Error)
	})

	t.Run("fallback after the session could not be renewed", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.err = gateway.ErrSessionInvalid

		res := wait(t, f.store.ToggleFollow(context.Background(), "grace"))
		assert.ErrorIs(t, res.Err, gateway.ErrSessionInvalid)
		assert.Equal(t, "Failed to toggle follow", f.store.State().Profiles.Error)
	})
}

func TestStore_BootstrapFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.auth.err = &gateway.APIError{StatusCode: http.StatusUnauthorized, Message: "no session"}

	first := f.store.Bootstrap(context.Background())
	second := f.store.Bootstrap(context.Background())
	assert.Same(t, first, second)

	wait(t, first)
	auth := f.store.State().Auth
	assert.False(t, auth.IsAuthenticated)
	assert.Nil(t, auth.User)
	assert.Empty(t, auth.Error)
}

func TestStore_FetchThenToggleFavoriteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := article("a", "A"), article("b", "B")

	fetch := f.store.FetchArticles(ctx)
	f.articles.gate("list") <- result{list: []models.Article{a, b}}
	wait(t, fetch)
	require.Equal(t, []models.Article{a, b}, f.store.State().Articles.Articles)

	open := f.store.FetchArticle(ctx, "a")
	f.articles.gate("get:a") <- result{article: &a}
	wait(t, open)

	fav := a
	fav.Favorited = true
	fav.FavoritesCount = 1
	toggle := f.store.ToggleFavorite(ctx, "a")
	f.articles.gate("favorite:a") <- result{article: &fav}
	wait(t, toggle)

	s := f.store.State().Articles
	assert.Equal(t, []models.Article{fav, b}, s.Articles)
	require.NotNil(t, s.Current)
	assert.True(t, s.Current.Favorited)
	assert.Equal(t, 1, s.Current.FavoritesCount)
}

func TestStore_ToggleFavoriteFailureOnlyInResult(t *testing.T) {
	f := newFixture(t)

	toggle := f.store.ToggleFavorite(context.Background(), "a")
	f.articles.gate("favorite:a") <- result{err: &gateway.APIError{StatusCode: http.StatusNotFound, Message: "article not found"}}
	res := wait(t, toggle)

	assert.False(t, res.OK())
	assert.Equal(t, "article not found", res.Message)
	s := f.store.State().Articles
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.Error)
}

func TestStore_DeleteCommentNotInCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.comments.comments = []models.Comment{{ID: "c1"}, {ID: "c2"}}

	wait(t, f.store.FetchComments(ctx, "a"))
	res := wait(t, f.store.DeleteComment(ctx, "a", "c9"))

	require.True(t, res.OK())
	s := f.store.State().Comments
	assert.Equal(t, StatusSucceeded, s.Status)
	assert.Equal(t, []models.Comment{{ID: "c1"}, {ID: "c2"}}, s.Comments)
}

func TestStore_AddComment(t *testing.T) {
	f := newFixture(t)

	wait(t, f.store.AddComment(context.Background(), "a", "nice post"))

	comments := f.store.State().Comments.Comments
	require.Len(t, comments, 1)
	assert.Equal(t, "nice post", comments[0].Body)
}

func TestStore_ConcurrentResolutionLastWins(t *testing.T) {
	ctx := context.Background()
	notFound := &gateway.APIError{StatusCode: http.StatusNotFound, Message: "article not found"}

	t.Run("later dispatch resolves first", func(t *testing.T) {
		f := newFixture(t)
		first := f.store.FetchArticles(ctx)
		second := f.store.FetchArticle(ctx, "x")

		f.articles.gate("get:x") <- result{err: notFound}
		wait(t, second)
		assert.Equal(t, StatusFailed, f.store.State().Articles.Status)

		f.articles.gate("list") <- result{list: []models.Article{article("a", "A")}}
		wait(t, first)

		s := f.store.State().Articles
		assert.Equal(t, StatusSucceeded, s.Status, "the list fetch resolved last")
		assert.Empty(t, s.Error)
	})

	t.Run("dispatch order resolves in order", func(t *testing.T) {
		f := newFixture(t)
		first := f.store.FetchArticles(ctx)
		second := f.store.FetchArticle(ctx, "x")

		f.articles.gate("list") <- result{list: []models.Article{article("a", "A")}}
		wait(t, first)

		f.articles.gate("get:x") <- result{err: notFound}
		wait(t, second)

		s := f.store.State().Articles
		assert.Equal(t, StatusFailed, s.Status)
		assert.Equal(t, "article not found", s.Error)
		assert.Len(t, s.Articles, 1, "the failure does not undo the earlier merge")
	})
}

func TestStore_ObserverSeesEveryPhaseInOrder(t *testing.T) {
	var seen []string
	f := newFixture(t, WithObserver(func(a Action, _ State) {
		seen = append(seen, string(a.Op)+":"+a.Phase.String())
	}))

	wait(t, f.store.FetchTags(context.Background()))
	f.store.ClearError(SliceTags)

	assert.Equal(t, []string{
		"tags/fetchTags:requested",
		"tags/fetchTags:succeeded",
		"tags/clearError:local",
	}, seen)
}

func TestStore_ProfileAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wait(t, f.store.FetchProfile(ctx, "grace"))
	wait(t, f.store.ToggleFollow(ctx, "grace"))
	require.NotNil(t, f.store.State().Profiles.Profile)
	assert.True(t, f.store.State().Profiles.Profile.Following)

	wait(t, f.store.Login(ctx, models.Credentials{Username: "ada", Password: "secret123"}))
	wait(t, f.store.Logout(ctx))
	auth := f.store.State().Auth
	assert.False(t, auth.IsAuthenticated)
	assert.Nil(t, auth.User)
	assert.Equal(t, StatusIdle, auth.Status)
}

func TestStore_CloseRejectsNewOperations(t *testing.T) {
	f := newFixture(t)

	pending := f.store.FetchArticles(context.Background())
	closed := make(chan struct{})
	go func() {
		f.store.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while an operation was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	f.articles.gate("list") <- result{list: nil}
	wait(t, pending)
	<-closed

	res := wait(t, f.store.FetchTags(context.Background()))
	assert.ErrorIs(t, res.Err, ErrClosed)
	assert.Equal(t, StatusIdle, f.store.State().Tags.Status)
}

func TestStore_CallerCancellationDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	task := f.store.FetchArticles(ctx)
	cancel()
	f.articles.gate("list") <- result{list: []models.Article{article("a", "A")}}

	res := wait(t, task)
	assert.True(t, res.OK())
}

func TestStore_EmptyClientResponseFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.store.FetchArticle(ctx, "a")
	f.articles.gate("get:a") <- result{}
	res := wait(t, task)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrEmptyResponse)
	assert.Equal(t, "Failed to fetch article", res.Message)
	assert.Equal(t, StatusFailed, f.store.State().Articles.Status)
	assert.Nil(t, f.store.State().Articles.Current)

	f.auth.user = nil
	res = wait(t, f.store.Bootstrap(ctx))
	assert.ErrorIs(t, res.Err, ErrEmptyResponse)
	assert.False(t, f.store.State().Auth.IsAuthenticated)
}
