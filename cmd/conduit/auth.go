package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/thomaskoefod/conduit/internal/output"
	"github.com/thomaskoefod/conduit/pkg/models"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.await(a.store.Login(cmd.Context(), creds)); err != nil {
				return err
			}
			a.printer.Success("Signed in as %s", a.store.State().Auth.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.await(a.store.Register(cmd.Context(), reg)); err != nil {
				return err
			}
			a.printer.Success("Welcome, %s", a.store.State().Auth.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.await(a.store.Logout(cmd.Context()))
			// The local credential goes either way.
			if cerr := a.jar.Clear(); cerr != nil {
				return errors.Join(err, cerr)
			}
			if err != nil && !errors.Is(err, errSessionExpired) {
				return err
			}
			a.printer.Success("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Bootstrap(cmd.Context()).Wait()
			auth := a.store.State().Auth
			if !auth.IsAuthenticated {
				a.printer.Info("Not signed in")
				return nil
			}
			printUser(a.printer, auth.User)
			return nil
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	var update models.UserUpdate
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Update your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if update == (models.UserUpdate{}) {
				return errors.New("nothing to update, pass at least one flag")
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.await(a.store.UpdateUser(cmd.Context(), update)); err != nil {
				return err
			}
			a.printer.Success("Account updated")
			printUser(a.printer, a.store.State().Auth.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&update.Username, "username", "", "new username")
	cmd.Flags().StringVar(&update.Name, "name", "", "display name")
	cmd.Flags().StringVar(&update.Email, "email", "", "email address")
	cmd.Flags().StringVar(&update.Bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&update.Image, "image", "", "avatar URL")
	cmd.Flags().StringVar(&update.Password, "password", "", "new password")
	return cmd
}

func printUser(p *output.Printer, u *models.User) {
	p.Print("%s %s", p.Bold(u.DisplayName()), p.Dim("@"+u.Username))
	p.Print("Email: %s", u.Email)
	if u.Bio != "" {
		p.Print("Bio:   %s", u.Bio)
	}
	if u.Image != "" {
		p.Print("Image: %s", u.Image)
	}
}
