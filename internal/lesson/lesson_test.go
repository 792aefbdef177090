package lesson

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1717000000000)
	id := NewID(now)
	assert.Regexp(t, regexp.MustCompile(`^lesson-1717000000000-[0-9a-f]{9}$`), id)
	assert.NotEqual(t, id, NewID(now))
}

func TestAnswer_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Answer
		wantErr bool
	}{
		{name: "string", data: `"Bow deeply"`, want: "Bow deeply"},
		{name: "boolean", data: `false`, want: "false"},
		{name: "number", data: `9`, want: "9"},
		{name: "null", data: `null`, want: ""},
		{name: "object", data: `{"a":1}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Answer
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLesson_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		lesson        Lesson
		wantQuestions []Question
		wantXP        int
	}{
		{
			name: "multi question lesson",
			lesson: Lesson{
				ID: "lesson-1",
				Questions: []Question{
					{Type: MultipleChoice, Question: "q0", Answer: "a", XP: 20},
					{Type: TrueFalse, Question: "q1", Answer: "true"},
				},
			},
			wantQuestions: []Question{
				{ID: "lesson-1-q0", Type: MultipleChoice, Question: "q0", Answer: "a", XP: 20},
				{ID: "lesson-1-q1", Type: TrueFalse, Question: "q1", Answer: "true", XP: 10},
			},
			wantXP: 30,
		},
		{
			name: "single question lesson is wrapped",
			lesson: Lesson{
				ID:       "lesson-2",
				Type:     TrueFalse,
				Question: "q",
				Answer:   "false",
				XP:       50,
			},
			wantQuestions: []Question{
				{ID: "lesson-2-q0", Type: TrueFalse, Question: "q", Answer: "false", XP: 10},
			},
			wantXP: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.lesson
			l.Normalize()
			assert.Equal(t, tt.wantQuestions, l.Questions)
			assert.Equal(t, tt.wantXP, l.XP)
			assert.Empty(t, l.Question)
		})
	}
}

func TestLesson_FindQuestion(t *testing.T) {
	multi := Lesson{
		ID: "lesson-1",
		Questions: []Question{
			{ID: "lesson-1-q0", Answer: "a"},
			{ID: "lesson-1-q1", Answer: "b"},
		},
	}
	single := Lesson{ID: "local-lesson-japan-greetings-1", Question: "q", Answer: "Konnichiwa", XP: 15}

	tests := []struct {
		name       string
		lesson     Lesson
		questionID string
		wantAnswer Answer
		wantXP     int
		wantErr    bool
	}{
		{name: "by id", lesson: multi, questionID: "lesson-1-q1", wantAnswer: "b"},
		{name: "first question by default", lesson: multi, wantAnswer: "a"},
		{name: "unknown id", lesson: multi, questionID: "lesson-1-q9", wantErr: true},
		{name: "inline question", lesson: single, wantAnswer: "Konnichiwa", wantXP: 15},
		{name: "inline question by lesson id", lesson: single, questionID: single.ID, wantAnswer: "Konnichiwa", wantXP: 15},
		{name: "inline question with other id", lesson: single, questionID: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.lesson.FindQuestion(tt.questionID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrQuestionNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAnswer, q.Answer)
			assert.Equal(t, tt.wantXP, q.XP)
		})
	}
}

func TestQuestion_Matches(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		answer   string
		want     bool
	}{
		{name: "exact", question: Question{Type: MultipleChoice, Answer: "Namaste"}, answer: "Namaste", want: true},
		{name: "surrounding spaces", question: Question{Type: MultipleChoice, Answer: "Namaste"}, answer: " Namaste ", want: true},
		{name: "case matters for choices", question: Question{Type: MultipleChoice, Answer: "Namaste"}, answer: "namaste", want: false},
		{name: "true false ignores case", question: Question{Type: TrueFalse, Answer: "false"}, answer: "False", want: true},
		{name: "wrong", question: Question{Type: TrueFalse, Answer: "false"}, answer: "true", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.question.Matches(tt.answer))
		})
	}
}
