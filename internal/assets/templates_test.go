package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLessonPromptTemplate(t *testing.T) {
	tests := []struct {
		name         string
		templatePath string

		wantTemplateName string
	}{
		{
			name: "uses filesystem template when available",
			templatePath: func(t *testing.T) string {
				templatePath := filepath.Join(t.TempDir(), "custom.go.tmpl")
				content := `{{ define "system" }}custom system{{ end }}{{ define "lesson" }}{{ .Country }}/{{ .Topic }}{{ end }}`
				require.NoError(t, os.WriteFile(templatePath, []byte(content), 0644))
				return templatePath
			}(t),
			wantTemplateName: "custom.go.tmpl",
		},
		{
			name:             "uses embedded template when file doesn't exist",
			templatePath:     "/non/existent/invalid.go.tmpl",
			wantTemplateName: lessonPromptTemplateName,
		},
		{
			name:             "uses embedded template when path is empty",
			wantTemplateName: lessonPromptTemplateName,
		},
		{
			name: "uses embedded template when file cannot be parsed",
			templatePath: func(t *testing.T) string {
				templatePath := filepath.Join(t.TempDir(), "broken.go.tmpl")
				require.NoError(t, os.WriteFile(templatePath, []byte(`{{ define "system" }}`), 0644))
				return templatePath
			}(t),
			wantTemplateName: lessonPromptTemplateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseLessonPromptTemplate(tt.templatePath, logger.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTemplateName, tmpl.Name())
			assert.NotNil(t, tmpl.Lookup(SystemPrompt))
			assert.NotNil(t, tmpl.Lookup(LessonPrompt))
		})
	}
}

func TestEmbeddedLessonPrompt(t *testing.T) {
	tmpl, err := ParseLessonPromptTemplate("", nil)
	require.NoError(t, err)

	data := LessonPromptData{
		Country:         "Japan",
		Topic:           "Dining Etiquette",
		Difficulty:      2,
		DifficultyGuide: "INTERMEDIATE",
		Scenario:        "At a business meeting...",
		Seed:            42,
		Mistakes:        []string{"lesson-1", "lesson-2"},
	}

	var system bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&system, SystemPrompt, data))
	assert.Contains(t, system.String(), "RANDOM SEED: 42")

	var lesson bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&lesson, LessonPrompt, data))
	assert.Contains(t, lesson.String(), "travelers visiting Japan, focusing on Dining Etiquette")
	assert.Contains(t, lesson.String(), "Difficulty: 2/3 (INTERMEDIATE)")
	assert.Contains(t, lesson.String(), "mistakes on these topics: lesson-1, lesson-2")

	var custom bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&custom, CustomPrompt, LessonPromptData{
		Request:    "tipping in Japan",
		Difficulty: 1,
		LessonType: "true_false",
	}))
	assert.Contains(t, custom.String(), `specific request: "tipping in Japan"`)
	assert.Contains(t, custom.String(), `"type": "true_false"`)
	assert.NotContains(t, custom.String(), `"options"`)
}
