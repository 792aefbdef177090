package assets

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content/*.yaml
var content embed.FS

// Embedded content files
const (
	LocalLessonsFile      = "local-lessons.yaml"
	FallbackScenariosFile = "fallback-scenarios.yaml"
	LessonPairsFile       = "lesson-pairs.yaml"
	PromptFile            = "prompt.yaml"
)

// DecodeContent decodes the embedded YAML file name into v
func DecodeContent(name string, v any) error {
	data, err := content.ReadFile("content/" + name)
	if err != nil {
		return fmt.Errorf("content.ReadFile(%s) > %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yaml.Unmarshal(%s) > %w", name, err)
	}
	return nil
}
