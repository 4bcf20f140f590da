package state

import "github.com/thomaskoefod/conduit/pkg/models"

// CommentsState holds the comments of one article at a time. Fetching another article's
// comments replaces the whole collection; ArticleID tells which article it belongs to.
type CommentsState struct {
	Lifecycle
	Comments  []models.Comment
	ArticleID string
}

// CommentPage is the payload of a successful comment fetch.
type CommentPage struct {
	ArticleID string
	Comments  []models.Comment
}

func (s CommentsState) Reduce(a Action) CommentsState {
	switch a.Op {
	case OpFetchComments:
		if s.transition(a) {
			if page, ok := a.Payload.(CommentPage); ok {
				s.Comments = append([]models.Comment(nil), page.Comments...)
				s.ArticleID = page.ArticleID
			}
		}

	case OpAddComment:
		if s.transition(a) {
			if c, ok := a.Payload.(models.Comment); ok {
				out := make([]models.Comment, len(s.Comments), len(s.Comments)+1)
				copy(out, s.Comments)
				s.Comments = append(out, c)
			}
		}

	case OpDeleteComment:
		if s.transition(a) {
			if id, ok := a.Payload.(string); ok {
				out := make([]models.Comment, 0, len(s.Comments))
				for _, c := range s.Comments {
					if c.ID != id {
						out = append(out, c)
					}
				}
				s.Comments = out
			}
		}

	case OpClearComments:
		s.Comments = []models.Comment{}
		s.ArticleID = ""

	case OpCommentsClearError:
		s.Error = ""
	}
	return s
}
