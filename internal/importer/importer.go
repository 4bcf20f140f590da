// Package importer turns existing writing into article drafts: local markdown or HTML
// files, and the items of an RSS or Atom feed.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/thomaskoefod/conduit/pkg/models"
)

const maxDescription = 200

type Importer struct {
	parser *gofeed.Parser
	conv   *md.Converter
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *Importer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{
		parser: gofeed.NewParser(),
		conv:   md.NewConverter("", true, nil),
		logger: logger,
	}
}

// FetchFeed fetches and parses an RSS or Atom feed
func (im *Importer) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := im.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// ParseFeed parses a feed document that is already in memory
func (im *Importer) ParseFeed(data string) (*gofeed.Feed, error) {
	feed, err := im.parser.ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feed, nil
}

// FromFeed converts up to limit feed items into drafts, in feed order. Items without a
// title or any content are skipped. A limit of zero or less converts every item.
func (im *Importer) FromFeed(feed *gofeed.Feed, limit int) []models.ArticleInput {
	drafts := make([]models.ArticleInput, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(drafts) == limit {
			break
		}
		draft, ok := im.convertItem(item)
		if !ok {
			im.logger.WithField("link", item.Link).Debug("skipping feed item without title or content")
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

func (im *Importer) convertItem(item *gofeed.Item) (models.ArticleInput, bool) {
	title := strings.TrimSpace(item.Title)

	// Prefer content over description
	html := item.Content
	if html == "" {
		html = item.Description
	}
	if title == "" || strings.TrimSpace(html) == "" {
		return models.ArticleInput{}, false
	}

	body, err := im.HTMLToMarkdown(html)
	if err != nil || body == "" {
		im.logger.WithError(err).WithField("link", item.Link).Warn("could not convert feed item")
		return models.ArticleInput{}, false
	}
	if item.Link != "" {
		body += fmt.Sprintf("\n\n*Originally published at <%s>.*", item.Link)
	}

	description := ""
	if item.Description != "" {
		if text, err := im.HTMLToMarkdown(item.Description); err == nil {
			description = summarize(text)
		}
	}
	if description == "" {
		description = summarize(body)
	}

	tags := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			tags = append(tags, c)
		}
	}

	return models.ArticleInput{
		Title:       title,
		Description: description,
		Body:        body,
		TagList:     tags,
	}, true
}

// HTMLToMarkdown converts an HTML fragment or document into markdown
func (im *Importer) HTMLToMarkdown(html string) (string, error) {
	out, err := im.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// FromFile reads a markdown (.md, .markdown) or HTML (.html, .htm) file. The title is
// taken from the first level-one heading when the file has one.
func (im *Importer) FromFile(path string) (models.ArticleInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ArticleInput{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var body string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		body = strings.TrimSpace(string(data))
	case ".html", ".htm":
		if body, err = im.HTMLToMarkdown(string(data)); err != nil {
			return models.ArticleInput{}, err
		}
	default:
		return models.ArticleInput{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	in := models.ArticleInput{Body: body, TagList: []string{}}
	in.Title, in.Body = splitTitle(body)
	in.Description = summarize(in.Body)
	return in, nil
}

// splitTitle lifts a leading "# Title" line out of body
func splitTitle(body string) (string, string) {
	first, rest, _ := strings.Cut(body, "\n")
	if strings.HasPrefix(first, "# ") {
		return strings.TrimSpace(first[2:]), strings.TrimSpace(rest)
	}
	return "", body
}

// summarize returns the first paragraph of text, truncated for use as a description
func summarize(text string) string {
	para, _, _ := strings.Cut(strings.TrimSpace(text), "\n\n")
	para = strings.Join(strings.Fields(para), " ")
	if utf8.RuneCountInString(para) <= maxDescription {
		return para
	}
	runes := []rune(para)
	return strings.TrimSpace(string(runes[:maxDescription])) + "..."
}
