// Package state holds every piece of server-derived client state. Five independent
// slices are composed in a Store; each slice changes only by applying Actions through its
// pure reducer, and every asynchronous operation produces exactly one Requested action
// followed by exactly one Succeeded or Failed action.
package state

import "strings"

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Phase is the lifecycle position an Action reports.
type Phase int

const (
	Requested Phase = iota
	Succeeded
	Failed
	// Local marks synchronous actions that never touch the network.
	Local
)

func (p Phase) String() string {
	switch p {
	case Requested:
		return "requested"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Local:
		return "local"
	}
	return "unknown"
}

// Slice names one of the composed state containers.
type Slice string

const (
	SliceAuth     Slice = "auth"
	SliceArticles Slice = "articles"
	SliceComments Slice = "comments"
	SliceProfiles Slice = "profiles"
	SliceTags     Slice = "tags"
)

// Op identifies an operation as "<slice>/<name>".
type Op string

const (
	OpRegister         Op = "auth/register"
	OpLogin            Op = "auth/login"
	OpFetchCurrentUser Op = "auth/getCurrentUser"
	OpUpdateUser       Op = "auth/updateUser"
	OpLogout           Op = "auth/logout"
	OpAuthClearError   Op = "auth/clearError"

	OpFetchArticles       Op = "articles/fetchArticles"
	OpFetchArticle        Op = "articles/fetchArticleById"
	OpCreateArticle       Op = "articles/createArticle"
	OpUpdateArticle       Op = "articles/updateArticle"
	OpDeleteArticle       Op = "articles/deleteArticle"
	OpToggleFavorite      Op = "articles/toggleFavorite"
	OpClearCurrentArticle Op = "articles/clearCurrentArticle"
	OpArticlesClearError  Op = "articles/clearError"

	OpFetchComments      Op = "comments/fetchComments"
	OpAddComment         Op = "comments/addComment"
	OpDeleteComment      Op = "comments/deleteComment"
	OpClearComments      Op = "comments/clearComments"
	OpCommentsClearError Op = "comments/clearError"

	OpFetchProfile       Op = "profiles/fetchProfile"
	OpToggleFollow       Op = "profiles/toggleFollow"
	OpClearProfile       Op = "profiles/clearProfile"
	OpProfilesClearError Op = "profiles/clearError"

	OpFetchTags      Op = "tags/fetchTags"
	OpTagsClearError Op = "tags/clearError"
)

// Slice returns the slice the operation belongs to.
func (o Op) Slice() Slice {
	name, _, _ := strings.Cut(string(o), "/")
	return Slice(name)
}

// replacesData reports whether a successful o replaces its slice's data wholesale.
func (o Op) replacesData() bool {
	switch o {
	case OpFetchCurrentUser, OpFetchArticles, OpFetchComments, OpFetchProfile, OpFetchTags:
		return true
	}
	return false
}

// fallbacks are the messages shown when a failure carries no server message.
var fallbacks = map[Op]string{
	OpRegister:         "Registration failed",
	OpLogin:            "Login failed",
	OpFetchCurrentUser: "Failed to get user",
	OpUpdateUser:       "Failed to update user",
	OpLogout:           "Logout failed",
	OpFetchArticles:    "Failed to fetch articles",
	OpFetchArticle:     "Failed to fetch article",
	OpCreateArticle:    "Failed to create article",
	OpUpdateArticle:    "Failed to update article",
	OpDeleteArticle:    "Failed to delete article",
	OpToggleFavorite:   "Failed to toggle favorite",
	OpFetchComments:    "Failed to fetch comments",
	OpAddComment:       "Failed to add comment",
	OpDeleteComment:    "Failed to delete comment",
	OpFetchProfile:     "Failed to fetch profile",
	OpToggleFollow:     "Failed to toggle follow",
	OpFetchTags:        "Failed to fetch tags",
}

// Fallback returns the fixed failure message for op.
func Fallback(op Op) string {
	if msg, ok := fallbacks[op]; ok {
		return msg
	}
	return "Request failed"
}

// Action is one state transition. Error is set only on Failed actions and is already
// resolved to the text that should be displayed.
type Action struct {
	Op      Op
	Phase   Phase
	Payload any
	Error   string
}

// Lifecycle is the status/error pair every slice carries.
type Lifecycle struct {
	Status Status
	Error  string
}

func (l Lifecycle) begin() Lifecycle {
	l.Status = StatusLoading
	return l
}

// succeed marks the slice succeeded. Only a fetch that replaces the slice's data clears
// the error; other successes leave an earlier failure on display until ClearError.
func (l Lifecycle) succeed(op Op) Lifecycle {
	l.Status = StatusSucceeded
	if op.replacesData() {
		l.Error = ""
	}
	return l
}

func (l Lifecycle) fail(msg string) Lifecycle {
	l.Status = StatusFailed
	l.Error = msg
	return l
}

// transition applies the generic status change for a, reporting whether a succeeded and
// its payload should be merged.
func (l *Lifecycle) transition(a Action) bool {
	switch a.Phase {
	case Requested:
		*l = l.begin()
	case Failed:
		*l = l.fail(a.Error)
	case Succeeded:
		*l = l.succeed(a.Op)
		return true
	}
	return false
}

func idle() Lifecycle {
	return Lifecycle{Status: StatusIdle}
}
