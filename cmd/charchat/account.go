package main

import (
	"fmt"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			c := handlers.NewLoginController(a.deps(), nil)
			if c.CheckLoginStatus(ctx) {
				fmt.Fprintln(a.out, "Already logged in.")
				return nil
			}
			_, err := c.Login(ctx, email, password)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newSignupCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			_, err := handlers.NewLoginController(a.deps(), nil).Signup(cmd.Context(), email, password)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 6 characters")
	return cmd
}

func newAnonymousCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "anon",
		Short: "Continue without an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			_, err := handlers.NewLoginController(a.deps(), nil).LoginAnonymous(cmd.Context())
			return err
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			return handlers.NewLoginController(a.deps(), nil).Logout(cmd.Context())
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			user, err := a.session.GetUser(ctx)
			if err != nil {
				return err
			}
			if user == nil {
				return handlers.ErrNotLoggedIn
			}
			kind := "registered"
			if user.IsAnonymous {
				kind = "anonymous"
			}
			fmt.Fprintf(a.out, "%s <%s> (id %s, %s)\n", user.Name, user.Email, user.ID, kind)
			return nil
		},
	}
}
