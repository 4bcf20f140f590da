package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomaskoefod/conduit/internal/importer"
	"github.com/thomaskoefod/conduit/internal/output"
	"github.com/thomaskoefod/conduit/internal/state"
	"github.com/thomaskoefod/conduit/pkg/models"
)

func newArticlesCmd(a *app) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Bootstrap(cmd.Context()).Wait()
			if _, err := a.await(a.store.FetchArticles(cmd.Context())); err != nil {
				return err
			}

			table := output.NewTable(a.printer.Out(), []string{"ID", "Title", "Author", "Tags", "Favorites", "Created"})
			for _, article := range a.store.State().Articles.Articles {
				if tag != "" && !slices.Contains(article.TagList, tag) {
					continue
				}
				table.AddRow(
					article.ID,
					article.Title,
					article.Author.Username,
					strings.Join(article.TagList, ", "),
					strings.TrimSpace(a.printer.Favorite(article.Favorited)+" "+strconv.Itoa(article.FavoritesCount)),
					article.CreatedAt.Format("2006-01-02"),
				)
			}
			if table.Len() == 0 {
				a.printer.Info("No articles")
				return nil
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only show articles with this tag")
	return cmd
}

func newArticleCmd(a *app) *cobra.Command {
	var noComments bool
	cmd := &cobra.Command{
		Use:   "article <id>",
		Short: "Read an article and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.store.Bootstrap(ctx).Wait()

			articleTask := a.store.FetchArticle(ctx, args[0])
			commentsTask := a.store.FetchComments(ctx, args[0])
			if _, err := a.await(articleTask); err != nil {
				return err
			}
			_, commentsErr := a.await(commentsTask)

			s := a.store.State()
			if err := a.printArticle(s.Articles.Current); err != nil {
				return err
			}
			if noComments {
				return nil
			}
			if commentsErr != nil {
				a.printer.Warning("Comments unavailable: %v", commentsErr)
				return nil
			}
			a.printer.Header(fmt.Sprintf("Comments (%d)", len(s.Comments.Comments)))
			for _, c := range s.Comments.Comments {
				a.printer.Print("%s %s %s", a.printer.Bold(c.Author.Username), a.printer.Dim(c.CreatedAt.Format("2006-01-02 15:04")), a.printer.Dim("["+c.ID+"]"))
				a.printer.Print("%s\n", c.Body)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "do not show comments")
	return cmd
}

func (a *app) printArticle(article *models.Article) error {
	md, err := output.NewMarkdown(a.cfg.UI.WordWrap, a.printer.Colors())
	if err != nil {
		return err
	}
	body, err := md.Render(article.Body)
	if err != nil {
		return err
	}

	a.printer.Header(article.Title)
	meta := fmt.Sprintf("by %s on %s, %d favorites", article.Author.Username, article.CreatedAt.Format("Jan 2, 2006"), article.FavoritesCount)
	if article.Favorited {
		meta = a.printer.Favorite(true) + " " + meta
	}
	a.printer.Print("%s", a.printer.Dim(meta))
	if len(article.TagList) > 0 {
		a.printer.Print("%s", a.printer.Dim("#"+strings.Join(article.TagList, " #")))
	}
	a.printer.Print("%s", body)
	return nil
}

func newFavoriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Favorite an article, or remove it from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			res, err := a.await(a.store.ToggleFavorite(cmd.Context(), args[0]))
			if err != nil {
				return err
			}
			article := res.Payload.(models.Article)
			if article.Favorited {
				a.printer.Success("Favorited %q (%d)", article.Title, article.FavoritesCount)
			} else {
				a.printer.Success("Removed %q from favorites (%d)", article.Title, article.FavoritesCount)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.await(a.store.DeleteArticle(cmd.Context(), args[0])); err != nil {
				return err
			}
			a.printer.Success("Deleted article %s", args[0])
			return nil
		},
	}
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		tags        []string
		updateID    string
	)
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a markdown or HTML file as an article",
		Long: `Publish a markdown (.md) or HTML (.html) file. HTML is converted to markdown.
The title defaults to the file's first level-one heading and the description to its
first paragraph. With --update the file replaces an existing article instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := importer.New(a.logger).FromFile(args[0])
			if err != nil {
				return err
			}
			if title != "" {
				in.Title = title
			}
			if description != "" {
				in.Description = description
			}
			if len(tags) > 0 {
				in.TagList = tags
			}
			if in.Title == "" {
				return errors.New("the file has no '# Title' heading, pass --title")
			}

			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			var task *state.Task
			if updateID != "" {
				task = a.store.UpdateArticle(cmd.Context(), updateID, in)
			} else {
				task = a.store.CreateArticle(cmd.Context(), in)
			}
			res, err := a.await(task)
			if err != nil {
				return err
			}
			article := res.Payload.(models.Article)
			if updateID != "" {
				a.printer.Success("Updated %q (%s)", article.Title, article.ID)
			} else {
				a.printer.Success("Published %q (%s)", article.Title, article.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "article title")
	cmd.Flags().StringVar(&description, "description", "", "short description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&updateID, "update", "", "replace the article with this id")
	return cmd
}

func newImportFeedCmd(a *app) *cobra.Command {
	var (
		limit  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import-feed <url>",
		Short: "Cross-post the items of an RSS or Atom feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			im := importer.New(a.logger)
			feed, err := im.FetchFeed(ctx, args[0])
			if err != nil {
				return err
			}
			drafts := im.FromFeed(feed, limit)
			if len(drafts) == 0 {
				a.printer.Info("Feed %q has no importable items", feed.Title)
				return nil
			}

			if dryRun {
				table := output.NewTable(a.printer.Out(), []string{"Title", "Tags", "Description"})
				for _, d := range drafts {
					table.AddRow(d.Title, strings.Join(d.TagList, ", "), d.Description)
				}
				return table.Render()
			}

			if err := a.requireSession(ctx); err != nil {
				return err
			}
			var failed int
			for _, d := range drafts {
				res, err := a.await(a.store.CreateArticle(ctx, d))
				if err != nil {
					if errors.Is(err, errSessionExpired) {
						return err
					}
					failed++
					a.printer.Error("%s: %v", d.Title, err)
					continue
				}
				a.printer.Success("Published %q (%s)", d.Title, res.Payload.(models.Article).ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d items could not be published", failed, len(drafts))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "import at most this many items (0 for all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be published")
	return cmd
}
