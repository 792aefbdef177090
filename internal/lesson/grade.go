package lesson

import (
	"slices"
	"time"

	"github.com/at-ishikawa/wandrr/internal/user"
)

// XP acknowledged for a local submission. The client applies it to its shadow store.
const (
	LocalCorrectXP   = 15
	LocalIncorrectXP = 5
)

type Result struct {
	Correct       bool      `json:"correct"`
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation,omitempty"`
	XPGained      int       `json:"xpGained"`
	UpdatedUser   user.User `json:"updatedUser"`
}

// Grade applies an answer to a remote user. A correct answer adds the question xp, extends
// the streak and records the lesson; an incorrect one resets the streak and records a
// mistake.
func Grade(u user.User, l Lesson, questionID, answer string, now time.Time) (Result, error) {
	q, err := l.FindQuestion(questionID)
	if err != nil {
		return Result{}, err
	}

	updated := u
	updated.CompletedLessons = slices.Clone(u.CompletedLessons)
	updated.CompletedQuestions = slices.Clone(u.CompletedQuestions)
	updated.Mistakes = slices.Clone(u.Mistakes)

	trackingID := l.TrackingID()
	result := Result{
		Correct:       q.Matches(answer),
		CorrectAnswer: string(q.Answer),
		Explanation:   q.Explanation,
	}
	if result.Correct {
		xp := q.XP
		if xp <= 0 {
			xp = DefaultQuestionXP
		}
		updated.XP += xp
		updated.Streak++
		updated.CompletedLessons = append(updated.CompletedLessons, trackingID)
		if len(l.Questions) > 0 {
			updated.CompletedQuestions = append(updated.CompletedQuestions, q.ID)
		}
		result.XPGained = xp
	} else {
		updated.Streak = 0
		updated.Mistakes = append(updated.Mistakes, user.Mistake{
			LessonID:        trackingID,
			QuestionID:      q.ID,
			SubmittedAnswer: answer,
			Timestamp:       now,
		})
	}
	updated.LastUpdated = now
	result.UpdatedUser = updated
	return result, nil
}

// LocalXP returns the xp acknowledged for a local submission.
func LocalXP(correct bool) int {
	if correct {
		return LocalCorrectXP
	}
	return LocalIncorrectXP
}
