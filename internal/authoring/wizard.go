package authoring

import (
	"context"
	"log"

	"github.com/bryan-buckman/sentio/internal/model"
)

// Step is a stage of the AI wizard.
type Step int

const (
	StepCategory Step = iota + 1
	StepTheme
	StepPoll
)

func (s Step) String() string {
	switch s {
	case StepCategory:
		return "category"
	case StepTheme:
		return "theme"
	case StepPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Generator is the AI part of the backend.
type Generator interface {
	Themes(ctx context.Context, category string) ([]model.Theme, error)
	Suggestions(ctx context.Context, category, theme string) ([]model.Suggestion, error)
}

// Wizard is the render state of the AI builder.
type Wizard struct {
	Step        Step
	Category    string
	Theme       string
	Themes      []model.Theme
	Suggestions []model.Suggestion
}

// Builder runs the AI wizard against a Generator.
type Builder struct {
	gen Generator
}

// NewBuilder returns a Builder using gen.
func NewBuilder(gen Generator) *Builder {
	return &Builder{gen: gen}
}

// Themes returns the generated themes for category. Failures are logged
// and yield an empty list.
func (b *Builder) Themes(ctx context.Context, category string) []model.Theme {
	themes, err := b.gen.Themes(ctx, category)
	if err != nil {
		log.Printf("Theme generation for %q failed: %v", category, err)
		return []model.Theme{}
	}
	return themes
}

// Suggestions returns the generated polls for category and theme. Failures
// are logged and yield an empty list.
func (b *Builder) Suggestions(ctx context.Context, category, theme string) []model.Suggestion {
	polls, err := b.gen.Suggestions(ctx, category, theme)
	if err != nil {
		log.Printf("Poll generation for %q/%q failed: %v", category, theme, err)
		return []model.Suggestion{}
	}
	return polls
}

// Step advances the wizard as far as the given choices allow: no category
// shows the category picker, a category alone shows its themes, and both
// show the generated polls.
func (b *Builder) Step(ctx context.Context, category, theme string) Wizard {
	if category == "" || category == model.CategoryAll || !model.IsCategory(category) {
		return Wizard{Step: StepCategory}
	}
	if theme == "" {
		return Wizard{
			Step:     StepTheme,
			Category: category,
			Themes:   b.Themes(ctx, category),
		}
	}
	return Wizard{
		Step:        StepPoll,
		Category:    category,
		Theme:       theme,
		Suggestions: b.Suggestions(ctx, category, theme),
	}
}

// Handoff turns the chosen suggestion into a draft for the manual form,
// tagged with the wizard's category.
func Handoff(category string, s model.Suggestion) Draft {
	d := Draft{
		Question:    s.Question,
		Description: s.Description,
	}
	if category != "" {
		d.Categories = []string{category}
	}
	d.Normalize()
	return d
}
