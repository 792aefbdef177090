package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/wandrr/internal/client"
)

func newLocalCommand() *cobra.Command {
	localCmd := &cobra.Command{
		Use:   "local",
		Short: "Inspect or clear data saved on this device",
	}
	localCmd.AddCommand(newLocalShowCommand(), newLocalClearCommand())
	return localCmd
}

func newLocalShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List local users and their lesson history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				users, lessons := app.LocalData(ctx)
				if len(users) == 0 {
					_, _ = fmt.Fprintln(w, "No local data")
					return nil
				}

				ids := make([]string, 0, len(users))
				for id := range users {
					ids = append(ids, id)
				}
				slices.Sort(ids)

				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tEmail\tXP\tStreak\tLessons")
				for _, id := range ids {
					u := users[id]
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", id, u.Email, u.XP, u.Streak, len(lessons[id]))
				}
				return tw.Flush()
			})
		},
	}
}

func newLocalClearCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete local data of one user, or of every user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				if !app.ClearLocal(ctx, userID) {
					return fmt.Errorf("failed to clear local data")
				}
				if userID == "" {
					_, _ = fmt.Fprintln(w, "Cleared all local data")
				} else {
					_, _ = fmt.Fprintf(w, "Cleared local data of %s\n", userID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "local user id (all users when omitted)")
	return cmd
}
