package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/blogdesk/internal/session"
)

// AuthOptions holds flags for register and login.
type AuthOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Record a local account",
		Long: `Record an email and password in local storage.

Registration is kept for reference only; login does not check it.

Example:
  blogdesk register --email ann@example.com --password secret`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, false, func(ctx context.Context, a *app) error {
				return runRegister(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runRegister(ctx context.Context, a *app, opts *AuthOptions) error {
	if err := a.sessions.RegisterUser(ctx, opts.Email, opts.Password); err != nil {
		return authError(a, "register", err)
	}
	users, err := a.sessions.Users(ctx)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeConfig, "read users", err, nil)
	}

	if a.out.JSON() {
		return a.out.Success(map[string]any{"email": users[len(users)-1].Email, "registered": len(users)})
	}
	a.out.Printf("Registered %s\n", users[len(users)-1].Email)
	return nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Long: `Sign in with an email address.

Any non-blank email is accepted and receives a fresh mock token. The
session is stored locally and survives restarts until logout.

Example:
  blogdesk login --email ann@example.com`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, false, func(ctx context.Context, a *app) error {
				s, err := a.sessions.Login(ctx, opts.Email)
				if err != nil {
					return authError(a, "login", err)
				}
				if a.out.JSON() {
					return a.out.Success(s)
				}
				a.out.Printf("Logged in as %s\n", s.User.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (not checked)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and forget the stored session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, false, func(ctx context.Context, a *app) error {
				if err := a.sessions.Logout(ctx); err != nil {
					return a.out.Fail(ExitCommandError, CodeAuth, "logout", err, nil)
				}
				if a.out.JSON() {
					return a.out.Success(a.sessions.Current())
				}
				a.out.Printf("Logged out\n")
				return nil
			})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the signed-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, false, func(ctx context.Context, a *app) error {
				s := a.sessions.Current()
				if !s.IsAuthenticated {
					return a.out.Fail(ExitFailure, CodeAuth, "not logged in", nil, nil)
				}
				if a.out.JSON() {
					return a.out.Success(s)
				}
				email := ""
				if s.User != nil {
					email = s.User.Email
				}
				a.out.Printf("Welcome back, %s!\n", email)
				return nil
			})
		},
	}
}

func authError(a *app, action string, err error) error {
	if errors.Is(err, session.ErrEmailRequired) {
		return a.out.Fail(ExitFailure, CodeValidation, action, err, nil)
	}
	return a.out.Fail(ExitCommandError, CodeAuth, action, err, nil)
}
