package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/wandrr/internal/client"
)

func newProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				u, session, err := app.Profile(ctx)
				if err != nil {
					return fmt.Errorf("app.Profile() > %w", err)
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(tw, "User\t%s\n", u.Username)
				_, _ = fmt.Fprintf(tw, "Email\t%s\n", session.Email)
				_, _ = fmt.Fprintf(tw, "XP\t%d\n", u.XP)
				_, _ = fmt.Fprintf(tw, "Streak\t%d\n", u.Streak)
				_, _ = fmt.Fprintf(tw, "Lessons\t%d\n", len(u.CompletedLessons))
				_, _ = fmt.Fprintf(tw, "Mistakes\t%d\n", len(u.Mistakes))
				if err := tw.Flush(); err != nil {
					return err
				}
				if session.IsLocalMode {
					printLocalBanner(w)
				}
				return nil
			})
		},
	}
}

func newLeaderboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top learners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				users, err := app.Leaderboard(ctx)
				if err != nil {
					return fmt.Errorf("app.Leaderboard() > %w", err)
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "#\tUser\tXP\tStreak")
				for i, u := range users {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, u.Username, u.XP, u.Streak)
				}
				return tw.Flush()
			})
		},
	}
}
