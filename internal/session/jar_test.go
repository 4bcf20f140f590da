package session

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	return names
}

func TestJar_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	api, _ := url.Parse("http://api.example.test/api")

	j, err := Open(path, nil)
	require.NoError(t, err)
	j.SetCookies(api, []*http.Cookie{
		{Name: "accessToken", Value: "a1", Path: "/", HttpOnly: true, MaxAge: 900},
		{Name: "refreshToken", Value: "r1", Path: "/", Expires: time.Now().Add(24 * time.Hour)},
	})
	require.NoError(t, j.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got := reopened.Cookies(api)
	assert.ElementsMatch(t, []string{"accessToken", "refreshToken"}, cookieNames(got))
}

func TestJar_ServerExpiryRemovesCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	api, _ := url.Parse("http://api.example.test/")

	j, err := Open(path, nil)
	require.NoError(t, err)
	j.SetCookies(api, []*http.Cookie{{Name: "accessToken", Value: "a1", Path: "/", MaxAge: 900}})
	j.SetCookies(api, []*http.Cookie{{Name: "accessToken", Value: "", Path: "/", MaxAge: -1}})
	assert.Empty(t, j.Cookies(api))
	require.NoError(t, j.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Empty(t, reopened.Cookies(api))
}

func TestJar_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	api, _ := url.Parse("http://api.example.test/")

	j, err := Open(path, nil)
	require.NoError(t, err)
	j.SetCookies(api, []*http.Cookie{{Name: "accessToken", Value: "a1", Path: "/", MaxAge: 900}})
	require.NoError(t, j.Clear())
	assert.Empty(t, j.Cookies(api))
	require.NoError(t, j.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Empty(t, reopened.Cookies(api))
}

func TestJar_DefaultPathSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	login, _ := url.Parse("http://api.example.test/api/users/login")
	sibling, _ := url.Parse("http://api.example.test/api/users/me")
	articles, _ := url.Parse("http://api.example.test/api/articles")

	j, err := Open(path, nil)
	require.NoError(t, err)
	j.SetCookies(login, []*http.Cookie{{Name: "sid", Value: "s1", MaxAge: 900}})
	assert.Len(t, j.Cookies(sibling), 1)
	assert.Empty(t, j.Cookies(articles))
	require.NoError(t, j.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Len(t, reopened.Cookies(sibling), 1)
	assert.Empty(t, reopened.Cookies(articles))

	reopened.SetCookies(login, []*http.Cookie{{Name: "sid", Value: "", MaxAge: -1}})
	require.NoError(t, reopened.Close())

	again, err := Open(path, nil)
	require.NoError(t, err)
	defer again.Close()
	assert.Empty(t, again.Cookies(sibling))
}

func TestDefaultPath(t *testing.T) {
	tests := map[string]string{
		"":                 "/",
		"relative":         "/",
		"/":                "/",
		"/login":           "/",
		"/api/users":       "/api",
		"/api/users/":      "/api/users",
		"/api/users/login": "/api/users",
	}
	for in, want := range tests {
		assert.Equal(t, want, defaultPath(in), in)
	}
}
