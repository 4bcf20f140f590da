package state

import "github.com/thomaskoefod/conduit/pkg/models"

// ArticlesState is the cached article list plus the article being viewed. Current need
// not be an element of Articles.
type ArticlesState struct {
	Lifecycle
	Articles []models.Article
	Current  *models.Article
}

func (s ArticlesState) Reduce(a Action) ArticlesState {
	switch a.Op {
	case OpFetchArticles:
		if s.transition(a) {
			if list, ok := a.Payload.([]models.Article); ok {
				s.Articles = append([]models.Article(nil), list...)
			}
		}

	case OpFetchArticle:
		if s.transition(a) {
			if art, ok := a.Payload.(models.Article); ok {
				s.Current = &art
			}
		}

	case OpCreateArticle:
		if s.transition(a) {
			if art, ok := a.Payload.(models.Article); ok {
				s.Articles = appendArticle(s.Articles, art)
				s.Current = &art
			}
		}

	case OpUpdateArticle:
		if s.transition(a) {
			if art, ok := a.Payload.(models.Article); ok {
				s.Articles = replaceArticle(s.Articles, art)
				s.Current = &art
			}
		}

	case OpDeleteArticle:
		if s.transition(a) {
			if id, ok := a.Payload.(string); ok {
				s.Articles = removeArticle(s.Articles, id)
				if s.Current != nil && s.Current.ID == id {
					s.Current = nil
				}
			}
		}

	case OpToggleFavorite:
		// Merges silently: the slice status is left as the last tracked operation set it.
		if a.Phase != Succeeded {
			return s
		}
		if art, ok := a.Payload.(models.Article); ok {
			s.Articles = replaceArticle(s.Articles, art)
			if s.Current != nil && s.Current.ID == art.ID {
				s.Current = &art
			}
		}

	case OpClearCurrentArticle:
		s.Current = nil

	case OpArticlesClearError:
		s.Error = ""
	}
	return s
}

func appendArticle(list []models.Article, art models.Article) []models.Article {
	out := make([]models.Article, len(list), len(list)+1)
	copy(out, list)
	return append(out, art)
}

func replaceArticle(list []models.Article, art models.Article) []models.Article {
	for i := range list {
		if list[i].ID == art.ID {
			out := append([]models.Article(nil), list...)
			out[i] = art
			return out
		}
	}
	return list
}

func removeArticle(list []models.Article, id string) []models.Article {
	out := make([]models.Article, 0, len(list))
	for _, art := range list {
		if art.ID != id {
			out = append(out, art)
		}
	}
	return out
}
