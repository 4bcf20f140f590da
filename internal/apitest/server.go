// Package apitest runs an in-memory implementation of the conduit REST API for tests.
// Sessions are carried in accessToken/refreshToken cookies holding signed JWTs, so a
// client under test exercises the same credential and refresh flow as against the real
// backend.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thomaskoefod/conduit/pkg/models"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api"

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"

	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type account struct {
	user      models.User
	hash      []byte
	following map[string]bool
}

type post struct {
	article     models.Article
	authorID    string
	favoritedBy map[string]bool
	comments    []comment
}

type comment struct {
	models.Comment
	authorID string
}

type failure struct {
	status  int
	message string
}

// Server is a fake API backed by maps. The zero value is not usable; call New.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu         sync.Mutex
	accounts   map[string]*account
	byUsername map[string]string
	posts      []*post
	accessGen  int
	refreshGen int
	hits       map[string]int
	failures   map[string]failure
}

// New starts a server; it is shut down when the test ends.
func New(t testing.TB) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:     []byte(uuid.NewString()),
		accounts:   make(map[string]*account),
		byUsername: make(map[string]string),
		hits:       make(map[string]int),
		failures:   make(map[string]failure),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.record())
	s.registerRoutes(router)

	s.srv = httptest.NewServer(router)
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, including Prefix.
func (s *Server) URL() string {
	return s.srv.URL + Prefix
}

// Client returns an http.Client that keeps cookies in jar.
func (s *Server) Client(jar http.CookieJar) *http.Client {
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// ExpireAccess invalidates every issued access token; refresh tokens stay valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGen++
}

// RevokeSessions invalidates every issued access and refresh token.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGen++
	s.refreshGen++
}

// FailNext makes the next request for method and path (without Prefix) answer with
// status and message instead of being handled.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// Hits counts the requests received for method and path (without Prefix).
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// CreateUser seeds an account.
func (s *Server) CreateUser(username, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.addAccount(models.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		panic(err)
	}
	return acc.user
}

// CreateArticle seeds an article written by username.
func (s *Server) CreateArticle(username string, in models.ArticleInput) models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[s.byUsername[username]]
	if !ok {
		panic(fmt.Sprintf("apitest: unknown user %q", username))
	}
	return s.view(s.addPost(acc, in), "")
}

// Articles returns every stored article, newest first, as an anonymous reader sees it.
func (s *Server) Articles() []models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Article, 0, len(s.posts))
	for i := len(s.posts) - 1; i >= 0; i-- {
		out = append(out, s.view(s.posts[i], ""))
	}
	return out
}

// Comments returns the comments stored for an article.
func (s *Server) Comments(articleID string) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _ := s.findPost(articleID)
	if p == nil {
		return nil
	}
	out := make([]models.Comment, 0, len(p.comments))
	for _, c := range p.comments {
		out = append(out, c.Comment)
	}
	return out
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + strings.TrimPrefix(c.Request.URL.Path, Prefix)

		s.mu.Lock()
		s.hits[key]++
		f, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()

		if fail {
			c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
			return
		}
		c.Next()
	}
}

func (s *Server) addAccount(reg models.Registration) (*account, error) {
	if _, taken := s.byUsername[reg.Username]; taken {
		return nil, fmt.Errorf("username %q already taken", reg.Username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	acc := &account{
		user: models.User{
			ID:       uuid.NewString(),
			Username: reg.Username,
			Name:     reg.Name,
			Email:    reg.Email,
		},
		hash:      hash,
		following: make(map[string]bool),
	}
	s.accounts[acc.user.ID] = acc
	s.byUsername[acc.user.Username] = acc.user.ID
	return acc, nil
}

func (s *Server) addPost(author *account, in models.ArticleInput) *post {
	tags := in.TagList
	if tags == nil {
		tags = []string{}
	}
	p := &post{
		article: models.Article{
			ID:          uuid.NewString(),
			Title:       in.Title,
			Description: in.Description,
			Body:        in.Body,
			TagList:     tags,
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		},
		authorID:    author.user.ID,
		favoritedBy: make(map[string]bool),
	}
	s.posts = append(s.posts, p)
	return p
}

func (s *Server) findPost(id string) (*post, int) {
	for i, p := range s.posts {
		if p.article.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (s *Server) author(id string) models.Author {
	acc, ok := s.accounts[id]
	if !ok {
		return models.Author{ID: id}
	}
	u := acc.user
	return models.Author{ID: u.ID, Username: u.Username, Name: u.Name, Bio: u.Bio, Image: u.Image}
}

// view renders p as seen by viewerID, which may be empty.
func (s *Server) view(p *post, viewerID string) models.Article {
	a := p.article
	a.TagList = append([]string(nil), p.article.TagList...)
	a.Author = s.author(p.authorID)
	a.FavoritesCount = len(p.favoritedBy)
	a.Favorited = viewerID != "" && p.favoritedBy[viewerID]
	return a
}

type sessionClaims struct {
	Kind       string `json:"kind"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) sign(kind, userID string, gen int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Kind:       kind,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify returns the subject of a valid token of kind. Callers hold s.mu.
func (s *Server) verify(token, kind string) (string, bool) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Kind != kind {
		return "", false
	}
	gen := s.accessGen
	if kind == refreshCookie {
		gen = s.refreshGen
	}
	if claims.Generation != gen {
		return "", false
	}
	if _, exists := s.accounts[claims.Subject]; !exists {
		return "", false
	}
	return claims.Subject, true
}

// issue sets fresh session cookies for userID. Callers hold s.mu.
func (s *Server) issue(c *gin.Context, userID string, withRefresh bool) error {
	access, err := s.sign(accessCookie, userID, s.accessGen, accessTTL)
	if err != nil {
		return err
	}
	c.SetCookie(accessCookie, access, int(accessTTL.Seconds()), "/", "", false, true)
	if !withRefresh {
		return nil
	}
	refresh, err := s.sign(refreshCookie, userID, s.refreshGen, refreshTTL)
	if err != nil {
		return err
	}
	c.SetCookie(refreshCookie, refresh, int(refreshTTL.Seconds()), "/", "", false, true)
	return nil
}

func clearSession(c *gin.Context) {
	c.SetCookie(accessCookie, "", -1, "/", "", false, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
}
