// Package prompts owns the authoritative in-memory prompt collection.
//
// Every mutation writes the whole collection through to the persister
// immediately afterwards. A failed write leaves the in-memory change in
// place and returns the error. Model is not safe for concurrent use; the
// owning service serializes access.
package prompts

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/query"
)

// Persister saves the full prompt collection.
type Persister interface {
	SavePrompts(ctx context.Context, prompts []models.Prompt) error
}

// Edit carries the user-editable fields of a prompt.
type Edit struct {
	Text     string
	Tags     []string
	FolderID *string
}

// Model is the prompt collection.
type Model struct {
	items []models.Prompt
	store Persister
	now   func() time.Time
}

// NewModel creates a model seeded with initial.
func NewModel(store Persister, initial []models.Prompt) *Model {
	return &Model{items: slices.Clone(initial), store: store, now: time.Now}
}

// Len returns the number of prompts.
func (m *Model) Len() int { return len(m.items) }

// All returns a copy of the collection in its canonical order.
func (m *Model) All() []models.Prompt {
	return query.Filter(m.items, models.Filter{})
}

// Filtered runs the filter/sort query over the collection.
func (m *Model) Filtered(f models.Filter) []models.Prompt {
	return query.Filter(m.items, f)
}

// Get returns the prompt with id.
func (m *Model) Get(id string) (models.Prompt, bool) {
	i := m.index(id)
	if i < 0 {
		return models.Prompt{}, false
	}
	p := m.items[i]
	p.Tags = slices.Clone(p.Tags)
	return p, true
}

// Add appends p. Callers supply a unique id and the timestamps.
func (m *Model) Add(ctx context.Context, p models.Prompt) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	m.items = append(m.items, p)
	return m.save(ctx)
}

// Edit overwrites text, tags and folder of the prompt with id and refreshes UpdatedAt.
func (m *Model) Edit(ctx context.Context, id string, e Edit) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("prompts: edit %s: %w", id, apperr.ErrNotFound)
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	p := &m.items[i]
	p.Text = e.Text
	p.Tags = tags
	p.FolderID = e.FolderID
	p.UpdatedAt = m.now().UnixMilli()
	return m.save(ctx)
}

// Delete removes the prompt with id.
func (m *Model) Delete(ctx context.Context, id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("prompts: delete %s: %w", id, apperr.ErrNotFound)
	}
	m.items = slices.Delete(m.items, i, i+1)
	return m.save(ctx)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (m *Model) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	i := m.index(id)
	if i < 0 {
		return false, fmt.Errorf("prompts: toggle favorite %s: %w", id, apperr.ErrNotFound)
	}
	m.items[i].Favorite = !m.items[i].Favorite
	return m.items[i].Favorite, m.save(ctx)
}

// IncrementUsage adds one to the usage counter.
func (m *Model) IncrementUsage(ctx context.Context, id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("prompts: increment usage %s: %w", id, apperr.ErrNotFound)
	}
	m.items[i].UsageCount++
	return m.save(ctx)
}

// Replace swaps the whole collection for a copy of prompts.
func (m *Model) Replace(ctx context.Context, prompts []models.Prompt) error {
	m.items = query.Filter(prompts, models.Filter{})
	return m.save(ctx)
}

// CountInFolder returns how many prompts reference folder id.
func (m *Model) CountInFolder(id string) int {
	n := 0
	for i := range m.items {
		if m.items[i].InFolder(id) {
			n++
		}
	}
	return n
}

func (m *Model) index(id string) int {
	return slices.IndexFunc(m.items, func(p models.Prompt) bool { return p.ID == id })
}

func (m *Model) save(ctx context.Context) error {
	return m.store.SavePrompts(ctx, m.items)
}
