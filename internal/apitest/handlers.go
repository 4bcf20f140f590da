package apitest

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thomaskoefod/conduit/pkg/models"
)

func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group(Prefix)
	{
		api.POST("/users", s.register)
		api.POST("/users/login", s.login)
		api.POST("/users/logout", s.logout)
		api.GET("/user", s.authed(s.currentUser))
		api.PUT("/user", s.authed(s.updateUser))
		api.POST("/user/refresh-token", s.refresh)

		api.GET("/articles", s.listArticles)
		api.POST("/articles", s.authed(s.createArticle))
		api.GET("/articles/:id", s.getArticle)
		api.PUT("/articles/:id", s.authed(s.updateArticle))
		api.DELETE("/articles/:id", s.authed(s.deleteArticle))
		api.POST("/articles/:id/favorite", s.authed(s.toggleFavorite))

		api.GET("/articles/:id/comments", s.listComments)
		api.POST("/articles/:id/comments", s.authed(s.addComment))
		api.DELETE("/articles/:id/comments/:cid", s.authed(s.deleteComment))

		api.GET("/profiles/:username", s.getProfile)
		api.POST("/profiles/:username/follow", s.authed(s.toggleFollow))

		api.GET("/tags", s.listTags)
	}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// viewer returns the session user, if any. Callers hold s.mu.
func (s *Server) viewer(c *gin.Context) (*account, bool) {
	token, err := c.Cookie(accessCookie)
	if err != nil || token == "" {
		return nil, false
	}
	id, ok := s.verify(token, accessCookie)
	if !ok {
		return nil, false
	}
	return s.accounts[id], true
}

type authedHandler func(c *gin.Context, me *account)

// authed locks the server for the whole request and rejects calls without a valid
// access token.
func (s *Server) authed(h authedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		me, ok := s.viewer(c)
		if !ok {
			fail(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		h(c, me)
	}
}

func (s *Server) register(c *gin.Context) {
	var reg models.Registration
	if err := c.ShouldBindJSON(&reg); err != nil || reg.Username == "" || reg.Email == "" || reg.Password == "" {
		fail(c, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[reg.Username]; taken {
		fail(c, http.StatusConflict, "Username already taken")
		return
	}
	acc, err := s.addAccount(reg)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.issue(c, acc.user.ID, true); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": acc.user})
}

func (s *Server) login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[s.byUsername[creds.Username]]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)) != nil {
		fail(c, http.StatusBadRequest, "Invalid username or password")
		return
	}
	if err := s.issue(c, acc.user.ID, true); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": acc.user})
}

func (s *Server) logout(c *gin.Context) {
	clearSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) refresh(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		fail(c, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	id, ok := s.verify(token, refreshCookie)
	if !ok {
		clearSession(c)
		fail(c, http.StatusUnauthorized, "Refresh token invalid")
		return
	}
	if err := s.issue(c, id, false); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed"})
}

func (s *Server) currentUser(c *gin.Context, me *account) {
	c.JSON(http.StatusOK, me.user)
}

func (s *Server) updateUser(c *gin.Context, me *account) {
	var update models.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if update.Username != "" && update.Username != me.user.Username {
		if _, taken := s.byUsername[update.Username]; taken {
			fail(c, http.StatusConflict, "Username already taken")
			return
		}
		delete(s.byUsername, me.user.Username)
		s.byUsername[update.Username] = me.user.ID
		me.user.Username = update.Username
	}
	if update.Name != "" {
		me.user.Name = update.Name
	}
	if update.Email != "" {
		me.user.Email = update.Email
	}
	if update.Bio != "" {
		me.user.Bio = update.Bio
	}
	if update.Image != "" {
		me.user.Image = update.Image
	}
	if update.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(update.Password), bcrypt.MinCost)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		me.hash = hash
	}
	c.JSON(http.StatusOK, gin.H{"user": me.user})
}

func (s *Server) listArticles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewerID := ""
	if me, ok := s.viewer(c); ok {
		viewerID = me.user.ID
	}
	articles := make([]models.Article, 0, len(s.posts))
	for _, p := range s.posts {
		articles = append(articles, s.view(p, viewerID))
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) getArticle(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return
	}
	viewerID := ""
	if me, ok := s.viewer(c); ok {
		viewerID = me.user.ID
	}
	c.JSON(http.StatusOK, gin.H{"article": s.view(p, viewerID)})
}

func bindArticle(c *gin.Context) (models.ArticleInput, bool) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Title == "" || in.Body == "" {
		fail(c, http.StatusBadRequest, "Title and body are required")
		return in, false
	}
	return in, true
}

func (s *Server) createArticle(c *gin.Context, me *account) {
	in, ok := bindArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": s.view(s.addPost(me, in), me.user.ID)})
}

// ownPost resolves :id to a post written by me, answering the request itself otherwise.
func (s *Server) ownPost(c *gin.Context, me *account) (*post, int, bool) {
	p, i := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return nil, -1, false
	}
	if p.authorID != me.user.ID {
		fail(c, http.StatusForbidden, "You can only modify your own articles")
		return nil, -1, false
	}
	return p, i, true
}

func (s *Server) updateArticle(c *gin.Context, me *account) {
	p, _, ok := s.ownPost(c, me)
	if !ok {
		return
	}
	in, ok := bindArticle(c)
	if !ok {
		return
	}
	p.article.Title = in.Title
	p.article.Description = in.Description
	p.article.Body = in.Body
	if in.TagList != nil {
		p.article.TagList = in.TagList
	}
	c.JSON(http.StatusOK, gin.H{"article": s.view(p, me.user.ID)})
}

func (s *Server) deleteArticle(c *gin.Context, me *account) {
	_, i, ok := s.ownPost(c, me)
	if !ok {
		return
	}
	s.posts = append(s.posts[:i:i], s.posts[i+1:]...)
	c.JSON(http.StatusOK, gin.H{"message": "Article deleted"})
}

func (s *Server) toggleFavorite(c *gin.Context, me *account) {
	p, _ := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return
	}
	if p.favoritedBy[me.user.ID] {
		delete(p.favoritedBy, me.user.ID)
	} else {
		p.favoritedBy[me.user.ID] = true
	}
	c.JSON(http.StatusOK, gin.H{"article": s.view(p, me.user.ID)})
}

func (s *Server) renderComments(p *post) []models.Comment {
	out := make([]models.Comment, 0, len(p.comments))
	for _, cm := range p.comments {
		rendered := cm.Comment
		rendered.Author = s.author(cm.authorID)
		out = append(out, rendered)
	}
	return out
}

func (s *Server) listComments(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": s.renderComments(p)})
}

func (s *Server) addComment(c *gin.Context, me *account) {
	p, _ := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Body == "" {
		fail(c, http.StatusBadRequest, "Comment body is required")
		return
	}
	cm := comment{
		Comment: models.Comment{
			ID:        uuid.NewString(),
			Body:      body.Body,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		},
		authorID: me.user.ID,
	}
	p.comments = append(p.comments, cm)

	rendered := cm.Comment
	rendered.Author = s.author(me.user.ID)
	c.JSON(http.StatusCreated, gin.H{"comment": rendered})
}

func (s *Server) deleteComment(c *gin.Context, me *account) {
	p, _ := s.findPost(c.Param("id"))
	if p == nil {
		fail(c, http.StatusNotFound, "Article not found")
		return
	}
	for i, cm := range p.comments {
		if cm.ID != c.Param("cid") {
			continue
		}
		if cm.authorID != me.user.ID {
			fail(c, http.StatusForbidden, "You can only delete your own comments")
			return
		}
		p.comments = append(p.comments[:i:i], p.comments[i+1:]...)
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
		return
	}
	fail(c, http.StatusNotFound, "Comment not found")
}

func (s *Server) profile(acc *account, viewer *account) models.Profile {
	return models.Profile{
		Username:  acc.user.Username,
		Name:      acc.user.Name,
		Bio:       acc.user.Bio,
		Image:     acc.user.Image,
		Following: viewer != nil && viewer.following[acc.user.ID],
	}
}

func (s *Server) getProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[s.byUsername[c.Param("username")]]
	if !ok {
		fail(c, http.StatusNotFound, "Profile not found")
		return
	}
	me, _ := s.viewer(c)
	c.JSON(http.StatusOK, gin.H{"profile": s.profile(acc, me)})
}

func (s *Server) toggleFollow(c *gin.Context, me *account) {
	acc, ok := s.accounts[s.byUsername[c.Param("username")]]
	if !ok {
		fail(c, http.StatusNotFound, "Profile not found")
		return
	}
	if acc.user.ID == me.user.ID {
		fail(c, http.StatusBadRequest, "You cannot follow yourself")
		return
	}
	if me.following[acc.user.ID] {
		delete(me.following, acc.user.ID)
	} else {
		me.following[acc.user.ID] = true
	}
	c.JSON(http.StatusOK, gin.H{"profile": s.profile(acc, me)})
}

func (s *Server) listTags(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	tags := []string{}
	for _, p := range s.posts {
		for _, t := range p.article.TagList {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
