package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_PlainPrefixes(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.Success("signed in as %s", "ada")
	p.Info("3 articles")
	p.Warning("slow response")
	p.Error("Login failed")

	assert.Equal(t, "[OK] signed in as ada\n3 articles\n", out.String())
	assert.Equal(t, "[WARN] slow response\n[ERROR] Login failed\n", errOut.String())
}

func TestPrinter_HeaderUnderline(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, &out, false)

	p.Header("Comments")

	assert.Equal(t, "\nComments\n--------\n", out.String())
}

func TestPrinter_NoStylingWithoutColors(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, &bytes.Buffer{}, false)

	assert.Equal(t, "title", p.Bold("title"))
	assert.Equal(t, "meta", p.Dim("meta"))
	assert.Equal(t, "*", p.Favorite(true))
	assert.Empty(t, p.Favorite(false))
}

func TestResolveColors_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(true))
}

func TestTable_Render(t *testing.T) {
	var out bytes.Buffer
	table := NewTable(&out, []string{"ID", "Title", "Author"})
	table.AddRow("a1", "Hello Go", "ada")
	table.AddRow("b2", "Second", "grace")
	require.Equal(t, 2, table.Len())

	require.NoError(t, table.Render())

	rendered := out.String()
	assert.Contains(t, strings.ToUpper(rendered), "TITLE")
	assert.Contains(t, rendered, "Hello Go")
	assert.Contains(t, rendered, "grace")
	assert.Less(t, strings.Index(rendered, "a1"), strings.Index(rendered, "b2"))
}

func TestMarkdown_RenderPlain(t *testing.T) {
	md, err := NewMarkdown(60, false)
	require.NoError(t, err)

	out, err := md.Render("# Heading\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "bold")
}
