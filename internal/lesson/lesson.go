// Package lesson generates, grades and serves etiquette lessons.
package lesson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Collection = "lessons"

	DefaultQuestionXP = 10
)

var ErrQuestionNotFound = errors.New("question not found in lesson")

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

// Answer accepts strings, booleans and numbers since generated lessons are not consistent
// about how they encode answers.
type Answer string

func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Answer(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case bool:
		*a = Answer(strconv.FormatBool(value))
	case float64:
		*a = Answer(strconv.FormatFloat(value, 'f', -1, 64))
	case nil:
		*a = ""
	default:
		return fmt.Errorf("unsupported answer: %s", string(data))
	}
	return nil
}

type Question struct {
	ID          string       `json:"id,omitempty" yaml:"id"`
	Type        QuestionType `json:"type" yaml:"type"`
	Question    string       `json:"question" yaml:"question"`
	Options     []string     `json:"options,omitempty" yaml:"options"`
	Answer      Answer       `json:"answer" yaml:"answer"`
	Explanation string       `json:"explanation" yaml:"explanation"`
	XP          int          `json:"xp" yaml:"xp"`
}

// Matches reports whether answer is the correct answer to q.
func (q Question) Matches(answer string) bool {
	expected := strings.TrimSpace(string(q.Answer))
	answer = strings.TrimSpace(answer)
	if q.Type == TrueFalse {
		return strings.EqualFold(expected, answer)
	}
	return expected == answer
}

// Lesson is either a single question stored inline, or a set of questions.
type Lesson struct {
	ID         string `json:"id" yaml:"id"`
	ShovID     string `json:"shovId,omitempty" yaml:"-"`
	Country    string `json:"country" yaml:"country"`
	Topic      string `json:"topic" yaml:"topic"`
	Level      int    `json:"level,omitempty" yaml:"-"`
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty"`
	CreatedAt  string `json:"created_at,omitempty" yaml:"-"`
	XP         int    `json:"xp" yaml:"xp"`
	IsCustom   bool   `json:"isCustom,omitempty" yaml:"-"`
	IsLocal    bool   `json:"isLocal,omitempty" yaml:"-"`

	Type        QuestionType `json:"type,omitempty" yaml:"type"`
	Question    string       `json:"question,omitempty" yaml:"question"`
	Options     []string     `json:"options,omitempty" yaml:"options"`
	Answer      Answer       `json:"answer,omitempty" yaml:"answer"`
	Explanation string       `json:"explanation,omitempty" yaml:"explanation"`

	Questions []Question `json:"questions,omitempty" yaml:"questions"`
}

// NewID returns an id of the form lesson-<unixMillis>-<9 random characters>.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("lesson-%d-%s", now.UnixMilli(), suffix)
}

// Normalize assigns question ids derived from the lesson id, defaults question xp and sets
// the lesson xp to the total. A lesson without questions is wrapped as a single question.
func (l *Lesson) Normalize() {
	if len(l.Questions) == 0 {
		l.Questions = []Question{l.inlineQuestion()}
		l.Questions[0].XP = DefaultQuestionXP
		l.Type, l.Question, l.Options, l.Answer, l.Explanation = "", "", nil, "", ""
	}

	total := 0
	for i := range l.Questions {
		l.Questions[i].ID = fmt.Sprintf("%s-q%d", l.ID, i)
		if l.Questions[i].XP <= 0 {
			l.Questions[i].XP = DefaultQuestionXP
		}
		total += l.Questions[i].XP
	}
	l.XP = total
}

func (l Lesson) inlineQuestion() Question {
	return Question{
		ID:          l.ID,
		Type:        l.Type,
		Question:    l.Question,
		Options:     l.Options,
		Answer:      l.Answer,
		Explanation: l.Explanation,
		XP:          l.XP,
	}
}

// FindQuestion returns the question with the given id. An empty id selects the inline
// question, or the first question of a multi-question lesson.
func (l Lesson) FindQuestion(questionID string) (Question, error) {
	if len(l.Questions) == 0 {
		if questionID != "" && questionID != l.ID {
			return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
		}
		return l.inlineQuestion(), nil
	}
	if questionID == "" {
		return l.Questions[0], nil
	}
	for _, q := range l.Questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
}

// TrackingID is the id recorded in a user's history for this lesson.
func (l Lesson) TrackingID() string {
	if l.ShovID != "" {
		return l.ShovID
	}
	return l.ID
}
