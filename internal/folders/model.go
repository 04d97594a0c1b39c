// Package folders owns the authoritative in-memory folder collection.
//
// Names are unique case-insensitively after trimming. Deleting a folder
// does not check whether prompts still reference it; that guard belongs to
// the caller, which can see both collections.
package folders

import (
	"context"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/models"
)

// MaxNameLength bounds folder names.
const MaxNameLength = 255

// Persister saves the full folder collection.
type Persister interface {
	SaveFolders(ctx context.Context, folders []models.Folder) error
}

// Model is the folder collection. Not safe for concurrent use.
type Model struct {
	items []models.Folder
	store Persister
}

// NewModel creates a model seeded with initial.
func NewModel(store Persister, initial []models.Folder) *Model {
	return &Model{items: slices.Clone(initial), store: store}
}

// All returns a copy of the collection.
func (m *Model) All() []models.Folder {
	out := slices.Clone(m.items)
	if out == nil {
		out = []models.Folder{}
	}
	return out
}

// Len returns the number of folders.
func (m *Model) Len() int { return len(m.items) }

// Add appends f after validating its name.
func (m *Model) Add(ctx context.Context, f models.Folder) error {
	name, err := ValidateName(f.Name)
	if err != nil {
		return err
	}
	if m.nameTaken(name, "") {
		return fmt.Errorf("folders: add %q: %w", name, apperr.ErrAlreadyExists)
	}
	f.Name = name
	m.items = append(m.items, f)
	return m.save(ctx)
}

// Rename changes the name of folder id.
func (m *Model) Rename(ctx context.Context, id, newName string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("folders: rename %s: %w", id, apperr.ErrNotFound)
	}
	name, err := ValidateName(newName)
	if err != nil {
		return err
	}
	if m.nameTaken(name, id) {
		return fmt.Errorf("folders: rename to %q: %w", name, apperr.ErrAlreadyExists)
	}
	m.items[i].Name = name
	return m.save(ctx)
}

// Delete removes folder id unconditionally.
func (m *Model) Delete(ctx context.Context, id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("folders: delete %s: %w", id, apperr.ErrNotFound)
	}
	m.items = slices.Delete(m.items, i, i+1)
	return m.save(ctx)
}

// Replace swaps the whole collection for a copy of folders.
func (m *Model) Replace(ctx context.Context, folders []models.Folder) error {
	m.items = slices.Clone(folders)
	if m.items == nil {
		m.items = []models.Folder{}
	}
	return m.save(ctx)
}

// Get returns the folder with id.
func (m *Model) Get(id string) (models.Folder, bool) {
	i := m.index(id)
	if i < 0 {
		return models.Folder{}, false
	}
	return m.items[i], true
}

// Name returns the name of folder id, or "" when it does not exist.
func (m *Model) Name(id string) string {
	f, _ := m.Get(id)
	return f.Name
}

// FindByName returns the folder whose name matches case-insensitively.
func (m *Model) FindByName(name string) (models.Folder, bool) {
	key := models.FolderKey(name)
	for _, f := range m.items {
		if models.FolderKey(f.Name) == key {
			return f, true
		}
	}
	return models.Folder{}, false
}

func (m *Model) nameTaken(name, exceptID string) bool {
	key := models.FolderKey(name)
	for _, f := range m.items {
		if f.ID != exceptID && models.FolderKey(f.Name) == key {
			return true
		}
	}
	return false
}

func (m *Model) index(id string) int {
	return slices.IndexFunc(m.items, func(f models.Folder) bool { return f.ID == id })
}

func (m *Model) save(ctx context.Context) error {
	return m.store.SaveFolders(ctx, m.items)
}

// ValidateName trims name and checks it against the folder name rules.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name,
		validation.Required.Error("folder name is required"),
		validation.RuneLength(1, MaxNameLength),
	); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return name, nil
}
