package assets

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/at-ishikawa/wandrr/internal/logger"
)

//go:embed templates/lesson-prompt.go.tmpl
var fallbackLessonPromptTemplate string

const lessonPromptTemplateName = "lesson-prompt.go.tmpl"

// Names of the templates defined in a lesson prompt template
const (
	SystemPrompt = "system"
	LessonPrompt = "lesson"
	CustomPrompt = "custom"
)

// LessonPromptData is the data passed to every lesson prompt template
type LessonPromptData struct {
	Country         string
	Topic           string
	Difficulty      int
	DifficultyGuide string
	Scenario        string
	Seed            int64
	Mistakes        []string

	// Request and LessonType are only used by the custom prompt
	Request    string
	LessonType string
}

// ParseLessonPromptTemplate parses the template at templatePath, falling back to the embedded
// template when the path is empty or cannot be parsed.
func ParseLessonPromptTemplate(templatePath string, log *logger.Logger) (*template.Template, error) {
	return parseTemplateWithFallback(templatePath, fallbackLessonPromptTemplate, log)
}

func parseTemplateWithFallback(templatePath string, fallbackTemplate string, log *logger.Logger) (*template.Template, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			fileName := filepath.Base(templatePath)
			tmpl, err := template.New(fileName).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			if log != nil {
				log.Warn("failed to parse a template, using the embedded one",
					"templatePath", templatePath,
					"error", err,
				)
			}
		}
	}

	tmpl, err := template.New(lessonPromptTemplateName).
		Funcs(funcMap).
		Parse(fallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}
