package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/thomaskoefod/conduit/pkg/models"
)

type articleItem struct {
	article models.Article
}

func (i articleItem) Title() string {
	if i.article.Favorited {
		return "♥ " + i.article.Title
	}
	return i.article.Title
}

func (i articleItem) Description() string {
	parts := []string{i.article.Author.Username, i.article.CreatedAt.Format("Jan 2, 2006")}
	if i.article.FavoritesCount > 0 {
		parts = append(parts, fmt.Sprintf("%d favorites", i.article.FavoritesCount))
	}
	if len(i.article.TagList) > 0 {
		parts = append(parts, "#"+strings.Join(i.article.TagList, " #"))
	}
	return strings.Join(parts, " | ")
}

func (i articleItem) FilterValue() string {
	return i.article.Title + " " + strings.Join(i.article.TagList, " ")
}

var _ list.Item = articleItem{}

func toItems(articles []models.Article) []list.Item {
	items := make([]list.Item, len(articles))
	for i, a := range articles {
		items[i] = articleItem{a}
	}
	return items
}
