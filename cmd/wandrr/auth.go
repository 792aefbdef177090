package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/wandrr/internal/client"
)

func newSignupCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				pw, err := passwordOrPrompt(password, w)
				if err != nil {
					return err
				}
				resp, err := app.Signup(ctx, args[0], pw)
				if err != nil {
					return fmt.Errorf("app.Signup() > %w", err)
				}
				_, _ = fmt.Fprintln(w, resp.Message)
				if resp.Optimistic {
					_, _ = color.New(color.FgYellow).Fprintln(w, "The account could not be confirmed yet. If login fails, try again later.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newLoginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and save the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				pw, err := passwordOrPrompt(password, w)
				if err != nil {
					return err
				}
				session, err := app.Login(ctx, args[0], pw)
				if err != nil {
					if errors.Is(err, client.ErrUnauthorized) {
						return errors.New("invalid email or password")
					}
					return fmt.Errorf("app.Login() > %w", err)
				}
				_, _ = fmt.Fprintf(w, "Logged in as %s\n", session.Email)
				if session.IsLocalMode {
					printLocalBanner(w)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				if err := app.Logout(ctx); err != nil {
					return fmt.Errorf("app.Logout() > %w", err)
				}
				_, _ = fmt.Fprintln(w, "Logged out")
				return nil
			})
		},
	}
}

func passwordOrPrompt(password string, w io.Writer) (string, error) {
	if password != "" {
		return password, nil
	}
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("readPassword() > %w", err)
	}
	if strings.TrimSpace(string(pw)) == "" {
		return "", errors.New("password is required")
	}
	return string(pw), nil
}

func printLocalBanner(w io.Writer) {
	_, _ = color.New(color.FgYellow, color.Bold).Fprintln(w, "Local mode: the server store is unavailable, progress is saved on this device.")
}
