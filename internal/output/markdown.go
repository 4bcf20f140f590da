package output

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// Markdown renders article bodies for the terminal.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown wraps at width columns. Without colors the plain notty style is used.
func NewMarkdown(width int, colors bool) (*Markdown, error) {
	style := glamour.WithAutoStyle()
	if !colors {
		style = glamour.WithStandardStyle(styles.NoTTYStyle)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Markdown{r: r}, nil
}

func (m *Markdown) Render(md string) (string, error) {
	out, err := m.r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
