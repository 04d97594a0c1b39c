package prompts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/models"
)

type memPersister struct {
	saved [][]models.Prompt
	err   error
}

func (p *memPersister) SavePrompts(_ context.Context, prompts []models.Prompt) error {
	snapshot := make([]models.Prompt, len(prompts))
	copy(snapshot, prompts)
	p.saved = append(p.saved, snapshot)
	return p.err
}

func (p *memPersister) last() []models.Prompt {
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

func newModel(t *testing.T, initial ...models.Prompt) (*Model, *memPersister) {
	t.Helper()
	store := &memPersister{}
	m := NewModel(store, initial)
	m.now = func() time.Time { return time.UnixMilli(5000) }
	return m, store
}

func TestAddPersists(t *testing.T) {
	m, store := newModel(t)
	if err := m.Add(context.Background(), models.Prompt{ID: "a", Text: "hello"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d", m.Len())
	}
	if got := store.last(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("persisted = %+v", got)
	}
	if p, _ := m.Get("a"); p.Tags == nil {
		t.Error("tags should default to empty slice")
	}
}

func TestEdit(t *testing.T) {
	m, store := newModel(t, models.Prompt{ID: "a", Text: "old", CreatedAt: 1, UpdatedAt: 1})
	folder := models.StringPtr("f")
	err := m.Edit(context.Background(), "a", Edit{Text: "new", Tags: []string{"t"}, FolderID: folder})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	p, _ := m.Get("a")
	if p.Text != "new" || len(p.Tags) != 1 || !p.InFolder("f") {
		t.Errorf("prompt = %+v", p)
	}
	if p.UpdatedAt != 5000 || p.CreatedAt != 1 {
		t.Errorf("timestamps = %d/%d", p.CreatedAt, p.UpdatedAt)
	}
	if len(store.saved) != 1 {
		t.Errorf("saves = %d, want 1", len(store.saved))
	}
}

func TestMissingIDIsNoOp(t *testing.T) {
	m, store := newModel(t, models.Prompt{ID: "a", Text: "x"})
	ctx := context.Background()

	checks := map[string]error{
		"edit":   m.Edit(ctx, "zz", Edit{Text: "y"}),
		"delete": m.Delete(ctx, "zz"),
		"usage":  m.IncrementUsage(ctx, "zz"),
	}
	_, favErr := m.ToggleFavorite(ctx, "zz")
	checks["favorite"] = favErr

	for name, err := range checks {
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", name, err)
		}
	}
	if len(store.saved) != 0 {
		t.Errorf("no-op calls persisted %d times", len(store.saved))
	}
	if p, _ := m.Get("a"); p.Text != "x" {
		t.Errorf("prompt changed: %+v", p)
	}
}

func TestDelete(t *testing.T) {
	m, store := newModel(t, models.Prompt{ID: "a"}, models.Prompt{ID: "b"}, models.Prompt{ID: "c"})
	if err := m.Delete(context.Background(), "b"); err != nil {
		t.Fatal(err)
	}
	got := store.last()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("persisted = %+v", got)
	}
}

func TestToggleFavoriteAndUsage(t *testing.T) {
	m, _ := newModel(t, models.Prompt{ID: "a"})
	ctx := context.Background()
	on, err := m.ToggleFavorite(ctx, "a")
	if err != nil || !on {
		t.Fatalf("toggle on = %v, %v", on, err)
	}
	on, _ = m.ToggleFavorite(ctx, "a")
	if on {
		t.Error("second toggle should clear favorite")
	}
	_ = m.IncrementUsage(ctx, "a")
	_ = m.IncrementUsage(ctx, "a")
	if p, _ := m.Get("a"); p.UsageCount != 2 {
		t.Errorf("usage = %d, want 2", p.UsageCount)
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	m, store := newModel(t)
	store.err = apperr.ErrQuotaExceeded
	err := m.Add(context.Background(), models.Prompt{ID: "a"})
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := m.Get("a"); !ok {
		t.Error("in-memory add should survive a failed save")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	m, _ := newModel(t, models.Prompt{ID: "a", Text: "x", Tags: []string{"t"}})
	all := m.All()
	all[0].Text = "mutated"
	all[0].Tags[0] = "mutated"
	p, _ := m.Get("a")
	if p.Text != "x" || p.Tags[0] != "t" {
		t.Errorf("model mutated through All(): %+v", p)
	}
}

func TestCountInFolder(t *testing.T) {
	f := models.StringPtr("f")
	m, _ := newModel(t, models.Prompt{ID: "a", FolderID: f}, models.Prompt{ID: "b"}, models.Prompt{ID: "c", FolderID: f})
	if n := m.CountInFolder("f"); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if n := m.CountInFolder("other"); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
