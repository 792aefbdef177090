package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/wandrr/internal/client"
	"github.com/at-ishikawa/wandrr/internal/lesson"
)

func newLessonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lesson",
		Short: "Show today's lesson",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				l, err := app.Lesson(ctx)
				if err != nil {
					return fmt.Errorf("app.Lesson() > %w", err)
				}
				printLesson(w, l)
				return nil
			})
		},
	}
}

func newCustomCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "custom <request>",
		Short: "Generate a lesson about a topic of your choice",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				l, err := app.CustomLesson(ctx, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("app.CustomLesson() > %w", err)
				}
				printLesson(w, l)
				return nil
			})
		},
	}
}

func newAnswerCommand() *cobra.Command {
	var questionID string
	cmd := &cobra.Command{
		Use:   "answer <answer>",
		Short: "Answer a question of the current lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App, w io.Writer) error {
				result, err := app.Answer(ctx, args[0], questionID)
				if err != nil {
					return fmt.Errorf("app.Answer() > %w", err)
				}
				printAnswer(w, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&questionID, "question", "", "question id (defaults to the first question)")
	return cmd
}

func printLesson(w io.Writer, l lesson.Lesson) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%s: %s\n", l.Country, l.Topic)
	if l.Difficulty != "" {
		_, _ = fmt.Fprintf(w, "Difficulty: %s\n", l.Difficulty)
	}

	questions := l.Questions
	if len(questions) == 0 {
		q, err := l.FindQuestion("")
		if err != nil {
			return
		}
		questions = []lesson.Question{q}
	}
	for i, q := range questions {
		_, _ = fmt.Fprintln(w)
		if len(questions) > 1 {
			_, _ = fmt.Fprintf(w, "[%s] ", q.ID)
		}
		_, _ = fmt.Fprintf(w, "%d. %s (%d XP)\n", i+1, q.Question, q.XP)
		if q.Type == lesson.TrueFalse && len(q.Options) == 0 {
			_, _ = fmt.Fprintln(w, "   true / false")
			continue
		}
		for _, option := range q.Options {
			_, _ = fmt.Fprintf(w, "   - %s\n", option)
		}
	}
}

func printAnswer(w io.Writer, result client.AnswerResult) {
	if result.Correct {
		_, _ = color.New(color.FgGreen).Fprintln(w, "Correct!")
	} else {
		_, _ = color.New(color.FgRed).Fprintf(w, "Not quite. The answer is %q\n", result.CorrectAnswer)
	}
	if result.Explanation != "" {
		_, _ = color.New(color.Italic).Fprintln(w, result.Explanation)
	}
	_, _ = fmt.Fprintf(w, "+%d XP (total %d, streak %d)\n", result.XPGained, result.User.XP, result.User.Streak)
	if result.LocalMode {
		printLocalBanner(w)
	}
}
