package models

import "time"

// User is the signed-in account as returned by the server.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Author is the user summary embedded in articles and comments.
type Author struct {
	ID       string `json:"_id,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
}

type Article struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	Author         Author    `json:"author"`
	CreatedAt      time.Time `json:"createdAt"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Body      string    `json:"body"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Profile struct {
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Image     string `json:"image,omitempty"`
	Following bool   `json:"following"`
}

// Credentials are the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// UserUpdate carries the editable profile fields; empty fields are left unchanged by the server.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
	Password string `json:"password,omitempty"`
}

// ArticleInput is the create/update payload for an article.
type ArticleInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}
