package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomaskoefod/conduit/pkg/models"
)

func newCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <article-id> <body>...",
		Short: "Comment on an article",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			res, err := a.await(a.store.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " ")))
			if err != nil {
				return err
			}
			a.printer.Success("Comment added (%s)", res.Payload.(models.Comment).ID)
			return nil
		},
	}
}

func newUncommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uncomment <article-id> <comment-id>",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.await(a.store.DeleteComment(cmd.Context(), args[0], args[1])); err != nil {
				return err
			}
			a.printer.Success("Comment deleted")
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a profile",
		Long:  "Show a profile. With --follow, follow the user, or unfollow if you already do.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if follow {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				if _, err := a.await(a.store.ToggleFollow(ctx, args[0])); err != nil {
					return err
				}
			} else {
				a.store.Bootstrap(ctx).Wait()
				if _, err := a.await(a.store.FetchProfile(ctx, args[0])); err != nil {
					return err
				}
			}

			p := a.store.State().Profiles.Profile
			name := p.Name
			if name == "" {
				name = p.Username
			}
			a.printer.Print("%s %s", a.printer.Bold(name), a.printer.Dim("@"+p.Username))
			if p.Bio != "" {
				a.printer.Print("%s", p.Bio)
			}
			if p.Following {
				a.printer.Info("Following")
			} else if a.store.State().Auth.IsAuthenticated {
				a.printer.Info("Not following")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "toggle following this user")
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.await(a.store.FetchTags(cmd.Context())); err != nil {
				return err
			}
			tags := a.store.State().Tags.Tags
			if len(tags) == 0 {
				a.printer.Info("No tags")
				return nil
			}
			a.printer.Print("%s", strings.Join(tags, "  "))
			return nil
		},
	}
}
