package lesson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"text/template"
	"time"

	"github.com/at-ishikawa/wandrr/internal/assets"
	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/inference"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/metrics"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/avast/retry-go"
	"github.com/juju/clock"
)

const (
	DefaultCustomAttempts = 3
	DefaultCustomInterval = 800 * time.Millisecond
)

// Sources reported when a lesson is produced
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceCustom   = "custom"
)

// RecordStore persists lessons
type RecordStore interface {
	Add(ctx context.Context, op degrade.Operation, collection, localID string, value any) (string, error)
}

type GeneratorOptions struct {
	CustomAttempts uint
	CustomInterval time.Duration
}

type Generator struct {
	llm     inference.Client
	prompts *template.Template
	content *Content
	store   RecordStore
	log     *logger.Logger
	metrics *metrics.Recorder
	opts    GeneratorOptions

	clock clock.Clock
	intn  func(int) int
}

func NewGenerator(
	llm inference.Client,
	prompts *template.Template,
	content *Content,
	recordStore RecordStore,
	log *logger.Logger,
	m *metrics.Recorder,
	opts GeneratorOptions,
) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.CustomAttempts == 0 {
		opts.CustomAttempts = DefaultCustomAttempts
	}
	return &Generator{
		llm:     llm,
		prompts: prompts,
		content: content,
		store:   recordStore,
		log:     log.With("component", "lesson"),
		metrics: m,
		opts:    opts,
		clock:   clock.WallClock,
		intn:    rand.IntN,
	}
}

// PersonalizedParams picks the next lesson parameters for u.
func (g *Generator) PersonalizedParams(u user.User) Params {
	return g.content.PersonalizedParams(u, g.intn)
}

// Generate asks the model for a lesson and falls back to a predefined scenario when the
// model fails or returns something unusable. The lesson is persisted before it is returned;
// when persisting fails it carries a placeholder store id.
func (g *Generator) Generate(ctx context.Context, p Params, mistakes []user.Mistake) (Lesson, error) {
	now := g.clock.Now()
	l, err := g.generate(ctx, p, mistakes, now)
	source := SourceLLM
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Lesson{}, ctxErr
		}
		g.log.Warn("lesson generation failed, using fallback scenario",
			"country", p.Country,
			"topic", p.Topic,
			"error", err,
		)
		l = g.content.Fallback(fmt.Sprintf("lesson-%d-fallback", now.UnixMilli()), p)
		l.CreatedAt = now.UTC().Format(time.RFC3339)
		source = SourceFallback
	}

	g.persist(ctx, &l)
	g.metrics.LessonGenerated(source)
	return l, nil
}

func (g *Generator) generate(ctx context.Context, p Params, mistakes []user.Mistake, now time.Time) (Lesson, error) {
	data := assets.LessonPromptData{
		Country:         p.Country,
		Topic:           p.Topic,
		Difficulty:      p.Difficulty,
		DifficultyGuide: g.content.DifficultyGuide(p.Difficulty),
		Scenario:        g.content.Scenarios[g.intn(len(g.content.Scenarios))],
		Seed:            now.Unix() + int64(g.intn(1000)),
		Mistakes:        mistakeLessons(mistakes),
	}
	content, err := g.complete(ctx, assets.LessonPrompt, data)
	if err != nil {
		return Lesson{}, err
	}

	var l Lesson
	if err := json.Unmarshal([]byte(inference.RepairJSON(content)), &l); err != nil {
		return Lesson{}, fmt.Errorf("json.Unmarshal() > %w", err)
	}
	if len(l.Questions) == 0 && l.Question == "" {
		return Lesson{}, fmt.Errorf("generated lesson has no questions")
	}

	l.ID = NewID(now)
	l.Level = p.Difficulty
	l.CreatedAt = now.UTC().Format(time.RFC3339)
	if l.Country == "" {
		l.Country = p.Country
	}
	if l.Topic == "" {
		l.Topic = p.Topic
	}
	l.Normalize()
	return l, nil
}

// GenerateCustom builds a single-question lesson from a traveler's request. The whole
// generation is retried a few times with a fixed pause.
func (g *Generator) GenerateCustom(ctx context.Context, request string, u user.User) (Lesson, error) {
	var l Lesson
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			generated, err := g.generateCustom(ctx, request, u)
			if err != nil {
				return err
			}
			l = generated
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.opts.CustomAttempts),
		retry.Delay(g.opts.CustomInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.log.Warn("custom lesson attempt failed", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return Lesson{}, fmt.Errorf("failed to generate custom lesson after %d attempts: %w", attempt, err)
	}
	g.metrics.LessonGenerated(SourceCustom)
	return l, nil
}

func (g *Generator) generateCustom(ctx context.Context, request string, u user.User) (Lesson, error) {
	now := g.clock.Now()
	difficulty := Difficulty(u.XP)
	lessonType := []QuestionType{MultipleChoice, TrueFalse}[g.intn(2)]

	content, err := g.complete(ctx, assets.CustomPrompt, assets.LessonPromptData{
		Request:         request,
		Difficulty:      difficulty,
		DifficultyGuide: g.content.DifficultyGuide(difficulty),
		LessonType:      string(lessonType),
	})
	if err != nil {
		return Lesson{}, err
	}

	var l Lesson
	if err := json.Unmarshal([]byte(inference.RepairJSON(content)), &l); err != nil {
		return Lesson{}, fmt.Errorf("json.Unmarshal() > %w", err)
	}
	if l.Question == "" && len(l.Questions) == 0 {
		return Lesson{}, fmt.Errorf("generated lesson has no question")
	}
	l.ID = NewID(now)
	l.Level = difficulty
	l.CreatedAt = now.UTC().Format(time.RFC3339)
	l.IsCustom = true
	l.XP = DefaultQuestionXP
	if len(l.Questions) > 0 {
		l.Normalize()
	}

	shovID, err := g.store.Add(ctx, degrade.OpGenerateLesson, Collection, l.ID, l)
	if err != nil {
		return Lesson{}, fmt.Errorf("store.Add() > %w", err)
	}
	l.ShovID = shovID
	return l, nil
}

func (g *Generator) complete(ctx context.Context, name string, data assets.LessonPromptData) (string, error) {
	var system, prompt bytes.Buffer
	if err := g.prompts.ExecuteTemplate(&system, assets.SystemPrompt, data); err != nil {
		return "", fmt.Errorf("prompts.ExecuteTemplate(%s) > %w", assets.SystemPrompt, err)
	}
	if err := g.prompts.ExecuteTemplate(&prompt, name, data); err != nil {
		return "", fmt.Errorf("prompts.ExecuteTemplate(%s) > %w", name, err)
	}

	content, err := g.llm.Generate(ctx, []inference.Message{
		{Role: inference.RoleSystem, Content: system.String()},
		{Role: inference.RoleUser, Content: prompt.String()},
	})
	if err != nil {
		return "", fmt.Errorf("llm.Generate() > %w", err)
	}
	return content, nil
}

// persist stores the lesson and records the store id on it. A write the store gave up on
// leaves a temporary id; a write abandoned before the store answered leaves an emergency id.
// Either way the lesson can still be answered.
func (g *Generator) persist(ctx context.Context, l *Lesson) {
	shovID, err := g.store.Add(ctx, degrade.OpGenerateLesson, Collection, l.ID, l)
	var gaveUp *degrade.Failure
	switch {
	case errors.As(err, &gaveUp):
		shovID = store.TempID(l.ID)
		g.log.Warn("failed to store lesson, using a temporary id", "lessonId", l.ID, "state", gaveUp.State.String(), "error", err)
	case err != nil:
		shovID = store.EmergencyID(l.ID)
		g.log.Warn("lesson write abandoned, using an emergency id", "lessonId", l.ID, "error", err)
	}
	l.ShovID = shovID
}

func mistakeLessons(mistakes []user.Mistake) []string {
	if len(mistakes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(mistakes))
	for _, m := range mistakes {
		id := m.LessonID
		if id == "" {
			id = "unknown"
		}
		ids = append(ids, id)
	}
	return ids
}
