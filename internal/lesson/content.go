package lesson

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/at-ishikawa/wandrr/internal/assets"
	"github.com/at-ishikawa/wandrr/internal/user"
)

const (
	MaxDifficulty  = 3
	xpPerLevel     = 50
	pairRandomSpan = 5

	defaultScenario = "default"
)

type Pair struct {
	Country string `yaml:"country"`
	Topic   string `yaml:"topic"`
}

// Params selects what a generated lesson is about
type Params struct {
	Country    string `json:"country"`
	Topic      string `json:"topic"`
	Difficulty int    `json:"difficulty"`
}

type scenario struct {
	Topic     string     `yaml:"topic"`
	Questions []Question `yaml:"questions"`
}

type promptSettings struct {
	Scenarios    []string       `yaml:"scenarios"`
	Difficulties map[int]string `yaml:"difficulties"`
}

// Content is the static lesson material shipped with the binary
type Content struct {
	Pairs        []Pair
	Pool         []Lesson
	Scenarios    []string
	Difficulties map[int]string

	fallbacks map[string]scenario
}

func LoadContent() (*Content, error) {
	var c Content
	if err := assets.DecodeContent(assets.LessonPairsFile, &c.Pairs); err != nil {
		return nil, fmt.Errorf("assets.DecodeContent() > %w", err)
	}
	if err := assets.DecodeContent(assets.LocalLessonsFile, &c.Pool); err != nil {
		return nil, fmt.Errorf("assets.DecodeContent() > %w", err)
	}
	if err := assets.DecodeContent(assets.FallbackScenariosFile, &c.fallbacks); err != nil {
		return nil, fmt.Errorf("assets.DecodeContent() > %w", err)
	}
	var settings promptSettings
	if err := assets.DecodeContent(assets.PromptFile, &settings); err != nil {
		return nil, fmt.Errorf("assets.DecodeContent() > %w", err)
	}
	c.Scenarios = settings.Scenarios
	c.Difficulties = settings.Difficulties

	if len(c.Pairs) == 0 || len(c.Pool) == 0 || len(c.Scenarios) == 0 {
		return nil, fmt.Errorf("lesson content is incomplete")
	}
	if _, ok := c.fallbacks[defaultScenario]; !ok {
		return nil, fmt.Errorf("fallback scenarios have no %q entry", defaultScenario)
	}
	return &c, nil
}

// Difficulty grows by one level every 50 xp, up to 3.
func Difficulty(xp int) int {
	return min(xp/xpPerLevel+1, MaxDifficulty)
}

// PersonalizedParams rotates through the lesson pairs by the number of completed lessons,
// offset by a random 0..4 so consecutive lessons vary.
func (c *Content) PersonalizedParams(u user.User, intn func(int) int) Params {
	base := len(u.CompletedLessons) % len(c.Pairs)
	index := (base + intn(pairRandomSpan)) % len(c.Pairs)
	pair := c.Pairs[index]
	return Params{
		Country:    pair.Country,
		Topic:      pair.Topic,
		Difficulty: Difficulty(u.XP),
	}
}

// Fallback builds a lesson from the predefined scenario that best matches the topic.
func (c *Content) Fallback(id string, p Params) Lesson {
	s := c.matchScenario(p.Topic)
	replacer := strings.NewReplacer(
		"{country}", p.Country,
		"{topic_lower}", strings.ToLower(p.Topic),
		"{topic}", p.Topic,
	)

	questions := make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Question = replacer.Replace(q.Question)
		q.Explanation = replacer.Replace(q.Explanation)
		q.Answer = Answer(replacer.Replace(string(q.Answer)))
		options := make([]string, len(q.Options))
		for j, o := range q.Options {
			options[j] = replacer.Replace(o)
		}
		if len(q.Options) == 0 {
			options = nil
		}
		q.Options = options
		questions[i] = q
	}

	l := Lesson{
		ID:        id,
		Country:   p.Country,
		Topic:     replacer.Replace(s.Topic),
		Level:     p.Difficulty,
		Questions: questions,
	}
	l.Normalize()
	return l
}

// matchScenario tries an exact topic match, then a case-insensitive match where either
// name contains the other.
func (c *Content) matchScenario(topic string) scenario {
	if s, ok := c.fallbacks[topic]; ok {
		return s
	}
	lowerTopic := strings.ToLower(topic)
	if lowerTopic != "" {
		keys := make([]string, 0, len(c.fallbacks))
		for key := range c.fallbacks {
			if key != defaultScenario {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			lowerKey := strings.ToLower(key)
			if strings.Contains(lowerKey, lowerTopic) || strings.Contains(lowerTopic, lowerKey) {
				return c.fallbacks[key]
			}
		}
	}
	return c.fallbacks[defaultScenario]
}

// PickLocal returns a random pool lesson the user has not completed. Once every lesson is
// completed, any pool lesson may be returned.
func (c *Content) PickLocal(completed []string, intn func(int) int) Lesson {
	available := make([]Lesson, 0, len(c.Pool))
	for _, l := range c.Pool {
		if !slices.Contains(completed, l.ID) {
			available = append(available, l)
		}
	}
	if len(available) == 0 {
		available = c.Pool
	}
	picked := available[intn(len(available))]
	picked.Options = slices.Clone(picked.Options)
	picked.IsLocal = true
	return picked
}

// DifficultyGuide describes a difficulty level for the prompt
func (c *Content) DifficultyGuide(difficulty int) string {
	if guide, ok := c.Difficulties[difficulty]; ok {
		return guide
	}
	return c.Difficulties[1]
}
