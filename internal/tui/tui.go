// Package tui is a terminal reader over the Store: an article list, an article view with
// comments, and a help screen. Every Store operation runs as a tea.Cmd that waits on its
// Task; the model never holds state the Store does not own.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/internal/output"
	"github.com/thomaskoefod/conduit/internal/state"
	"github.com/thomaskoefod/conduit/pkg/models"
)

type View int

const (
	ViewArticleList View = iota
	ViewArticleDetail
	ViewHelp
)

type Model struct {
	ctx      context.Context
	store    *state.Store
	markdown *output.Markdown

	view      View
	list      list.Model
	width     int
	height    int
	err       string
	statusMsg string
	expired   bool
	detail    string

	// resuming is set when a credential existed at startup.
	resuming bool
	// openID is the article the detail view shows, empty on the list.
	openID string
}

type Option func(*Model)

// WithStoredSession tells the model whether a saved credential was found at startup.
func WithStoredSession(stored bool) Option {
	return func(m *Model) {
		m.resuming = m.resuming || stored
	}
}

// resultMsg carries a resolved Store operation back into the update loop.
type resultMsg state.Result

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	articleTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86")).
				MarginBottom(1)

	commentAuthorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("111"))
)

func New(ctx context.Context, store *state.Store, markdown *output.Markdown, opts ...Option) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Conduit"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	m := Model{
		ctx:      ctx,
		store:    store,
		markdown: markdown,
		view:     ViewArticleList,
		list:     l,
		resuming: store.State().Auth.IsAuthenticated,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// await turns a Task into a command resolving to its result.
func await(t *state.Task) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(t.Wait())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		await(m.store.Bootstrap(m.ctx)),
		await(m.store.FetchArticles(m.ctx)),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case resultMsg:
		return m.handleResult(state.Result(msg))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleResult(res state.Result) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(res.Err, gateway.ErrSessionInvalid):
		// Without a stored credential the session check failing just means nobody
		// signed in.
		if res.Op != state.OpFetchCurrentUser || m.resuming {
			m.expired = true
		}
	case res.Op == state.OpFetchCurrentUser && !res.OK():
	case !res.OK():
		m.err = res.Message
	default:
		m.err = ""
	}

	if cmd, stale := m.dropStale(res); stale {
		return m, cmd
	}

	var cmd tea.Cmd
	s := res.State
	switch res.Op {
	case state.OpFetchCurrentUser:
		if s.Auth.IsAuthenticated {
			m.list.Title = "Conduit | " + s.Auth.User.DisplayName()
		}
	case state.OpFetchArticles:
		cmd = m.list.SetItems(toItems(s.Articles.Articles))
		if res.OK() {
			m.statusMsg = fmt.Sprintf("Loaded %d articles", len(s.Articles.Articles))
		}
	case state.OpToggleFavorite:
		cmd = m.list.SetItems(toItems(s.Articles.Articles))
		if res.OK() {
			if a, ok := res.Payload.(models.Article); ok && a.Favorited {
				m.statusMsg = "Added to favorites"
			} else {
				m.statusMsg = "Removed from favorites"
			}
		}
	}
	// Results can arrive out of order, so the article view reads the latest state.
	if m.view == ViewArticleDetail || (m.view == ViewHelp && m.detail != "") {
		m.detail = m.renderArticle(m.store.State())
	}
	return m, cmd
}

// dropStale undoes article and comment results that resolved after their article was
// closed. A result for another article than the open one re-requests the open article.
func (m Model) dropStale(res state.Result) (tea.Cmd, bool) {
	if !res.OK() {
		return nil, false
	}
	var id string
	switch p := res.Payload.(type) {
	case models.Article:
		if res.Op != state.OpFetchArticle {
			return nil, false
		}
		id = p.ID
	case state.CommentPage:
		id = p.ArticleID
	default:
		return nil, false
	}
	if id == m.openID {
		return nil, false
	}

	switch {
	case m.openID == "" && res.Op == state.OpFetchArticle:
		m.store.ClearCurrentArticle()
	case m.openID == "":
		m.store.ClearComments()
	case res.Op == state.OpFetchArticle:
		return await(m.store.FetchArticle(m.ctx, m.openID)), true
	default:
		return await(m.store.FetchComments(m.ctx, m.openID)), true
	}
	return nil, true
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewArticleList:
		return m.handleListKeys(msg)
	case ViewArticleDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			m.view = ViewArticleDetail
			m.openID = i.article.ID
			m.statusMsg = ""
			m.detail = articleTitleStyle.Render(i.article.Title) + "\n" + helpStyle.Render("Loading...")
			return m, tea.Batch(
				await(m.store.FetchArticle(m.ctx, i.article.ID)),
				await(m.store.FetchComments(m.ctx, i.article.ID)),
			)
		}

	case "r":
		m.statusMsg = "Refreshing articles..."
		return m, await(m.store.FetchArticles(m.ctx))

	case "f":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			return m, await(m.store.ToggleFavorite(m.ctx, i.article.ID))
		}

	case "?":
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewArticleList
		m.detail = ""
		m.openID = ""
		m.store.ClearCurrentArticle()
		m.store.ClearComments()
		return m, nil

	case "f":
		if current := m.store.State().Articles.Current; current != nil {
			return m, await(m.store.ToggleFavorite(m.ctx, current.ID))
		}

	case "r":
		if current := m.store.State().Articles.Current; current != nil {
			return m, tea.Batch(
				await(m.store.FetchArticle(m.ctx, current.ID)),
				await(m.store.FetchComments(m.ctx, current.ID)),
			)
		}

	case "?":
		m.view = ViewHelp
		return m, nil
	}

	return m, nil
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q":
		if m.detail != "" {
			m.view = ViewArticleDetail
		} else {
			m.view = ViewArticleList
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.view {
	case ViewArticleList:
		return m.renderList()
	case ViewArticleDetail:
		return m.renderDetail()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) statusLine() string {
	switch {
	case m.expired:
		return errorStyle.Render("Session expired. Run `conduit login` to sign in again.")
	case m.err != "":
		return errorStyle.Render("Error: " + m.err)
	case m.statusMsg != "":
		return statusStyle.Render(m.statusMsg)
	}
	return ""
}

func (m Model) renderList() string {
	var s strings.Builder

	s.WriteString(m.list.View())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: read • f: favorite • r: refresh • /: filter • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderDetail() string {
	var s strings.Builder

	s.WriteString(m.detail)
	s.WriteString("\n\n")
	if line := m.statusLine(); line != "" {
		s.WriteString(line)
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("f: favorite • r: reload • esc: back • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderHelp() string {
	help := `
Conduit - Keyboard Shortcuts

Article List:
  ↑/↓, j/k     Navigate articles
  enter        Read article
  f            Toggle favorite
  r            Refresh article list
  /            Filter articles
  q, ctrl+c    Quit

Article:
  f            Toggle favorite
  r            Reload article and comments
  esc          Back to list
  q, ctrl+c    Quit

General:
  ?            Show/hide this help
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

// renderArticle formats the current article and, once they belong to it, its comments.
func (m Model) renderArticle(s state.State) string {
	article := s.Articles.Current
	if article == nil {
		if s.Articles.Status == state.StatusLoading {
			return helpStyle.Render("Loading...")
		}
		return errorStyle.Render("Article unavailable")
	}

	var b strings.Builder
	b.WriteString(articleTitleStyle.Render(article.Title))
	b.WriteString("\n")
	meta := fmt.Sprintf("by %s | %s | %d favorites", article.Author.Username, article.CreatedAt.Format("Jan 2, 2006"), article.FavoritesCount)
	if article.Favorited {
		meta = "♥ " + meta
	}
	b.WriteString(helpStyle.Render(meta))
	b.WriteString("\n")

	body := article.Body
	if m.markdown != nil {
		if rendered, err := m.markdown.Render(article.Body); err == nil {
			body = rendered
		}
	}
	b.WriteString(body)

	if s.Comments.ArticleID == article.ID {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(fmt.Sprintf("Comments (%d)", len(s.Comments.Comments))))
		b.WriteString("\n")
		for _, c := range s.Comments.Comments {
			b.WriteString(commentAuthorStyle.Render(c.Author.Username))
			b.WriteString(" ")
			b.WriteString(helpStyle.Render(c.CreatedAt.Format("Jan 2, 2006")))
			b.WriteString("\n")
			b.WriteString(c.Body)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
