// Package authoring implements poll creation: the manual form and the
// AI-assisted wizard that pre-fills it.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bryan-buckman/sentio/internal/model"
)

// ErrEmptyQuestion is returned when a draft is submitted without a question.
var ErrEmptyQuestion = errors.New("question is required")

// ErrTooManyCategories is returned when a draft carries more than
// model.MaxPollCategories categories.
var ErrTooManyCategories = fmt.Errorf("at most %d categories", model.MaxPollCategories)

// Draft is the content of the authoring form.
type Draft struct {
	Question    string
	Description string
	Categories  []string
}

// Normalize trims the text fields and drops unknown or duplicate categories.
func (d *Draft) Normalize() {
	d.Question = strings.TrimSpace(d.Question)
	d.Description = strings.TrimSpace(d.Description)

	seen := make(map[string]bool, len(d.Categories))
	cats := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		c = strings.TrimSpace(c)
		if c == "" || c == model.CategoryAll || !model.IsCategory(c) || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	d.Categories = cats
}

// Valid reports whether the draft may be submitted.
func (d Draft) Valid() bool {
	return strings.TrimSpace(d.Question) != "" && len(d.Categories) <= model.MaxPollCategories
}

// HasCategory reports whether category is selected.
func (d Draft) HasCategory(category string) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ToggleCategory selects or deselects category. Selecting beyond
// model.MaxPollCategories is refused and reported as false.
func (d *Draft) ToggleCategory(category string) bool {
	for i, c := range d.Categories {
		if c == category {
			d.Categories = append(d.Categories[:i], d.Categories[i+1:]...)
			return true
		}
	}
	if len(d.Categories) >= model.MaxPollCategories {
		return false
	}
	d.Categories = append(d.Categories, category)
	return true
}

// Creator is the backend call the composer needs.
type Creator interface {
	CreatePoll(ctx context.Context, p model.NewPoll) (*model.Poll, error)
}

// Composer submits drafts.
type Composer struct {
	creator Creator
}

// NewComposer returns a Composer posting through creator.
func NewComposer(creator Creator) *Composer {
	return &Composer{creator: creator}
}

// Submit validates and posts the draft. On failure the error is logged and
// returned; the caller keeps the form populated.
func (c *Composer) Submit(ctx context.Context, d Draft) (*model.Poll, error) {
	d.Normalize()
	if d.Question == "" {
		return nil, ErrEmptyQuestion
	}
	if len(d.Categories) > model.MaxPollCategories {
		return nil, ErrTooManyCategories
	}

	p, err := c.creator.CreatePoll(ctx, model.NewPoll{
		Question:    d.Question,
		Description: d.Description,
		Categories:  d.Categories,
	})
	if err != nil {
		log.Printf("Error creating poll %q: %v", d.Question, err)
		return nil, fmt.Errorf("create poll: %w", err)
	}
	log.Printf("Created poll %s", p.ID)
	return p, nil
}
