// Package promptservice is the application context: it owns the storage,
// both entity models, the event bus and the current view, and serializes
// every operation behind one mutex.
package promptservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/folders"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/prompts"
	"github.com/starford/promptbox/internal/query"
	"github.com/starford/promptbox/internal/storage"
	"github.com/starford/promptbox/internal/transfer"
)

// UnknownFolder is shown for prompts whose folder no longer exists.
const UnknownFolder = "unknown folder"

// Publisher receives change events and user-facing notices.
type Publisher interface {
	events.Notifier
	Publish(ev events.Event)
}

// Config holds the tunables of the service.
type Config struct {
	MaxTextLength   int
	PageSize        int
	DefaultLanguage string
}

// PromptInput carries user-entered prompt fields. Tags is the raw
// comma-separated input.
type PromptInput struct {
	Text     string
	Tags     string
	FolderID string
}

// Preferences are the persisted UI settings.
type Preferences struct {
	DarkMode bool   `json:"darkMode"`
	Language string `json:"language"`
}

// ImportResult summarizes an applied import.
type ImportResult struct {
	Mode    transfer.Mode `json:"mode"`
	Prompts int           `json:"prompts"`
	Folders int           `json:"folders"`
}

// Service coordinates storage, models and events.
type Service struct {
	mu      sync.Mutex
	store   *storage.Storage
	prompts *prompts.Model
	folders *folders.Model
	bus     Publisher
	logger  *slog.Logger
	cfg     Config

	view     models.Filter
	page     int
	pageSize int

	now   func() time.Time
	newID func() string
}

// New loads (and on first run seeds) the collections and returns a ready service.
func New(ctx context.Context, store *storage.Storage, bus Publisher, logger *slog.Logger, cfg Config) (*Service, error) {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 10000
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = query.DefaultPageSize
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "es"
	}

	ps, fs, err := store.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("promptservice: bootstrap: %w", err)
	}
	logger.Info("promptservice: loaded",
		slog.Int("prompts", len(ps)), slog.Int("folders", len(fs)))

	return &Service{
		store:   store,
		prompts: prompts.NewModel(store, ps),
		folders: folders.NewModel(store, fs),
		bus:     bus,
		logger:  logger,
		cfg:     cfg,
		page:    1,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// --- prompts ---

// CreatePrompt validates in and appends a new prompt.
func (s *Service) CreatePrompt(ctx context.Context, in PromptInput) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validatePrompt(in); err != nil {
		return models.Prompt{}, err
	}
	now := s.now().UnixMilli()
	p := models.Prompt{
		ID:        s.newID(),
		Text:      in.Text,
		Tags:      models.ParseTags(in.Tags),
		FolderID:  models.StringPtr(in.FolderID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.prompts.Add(ctx, p)
	s.settle(err, events.PromptsChanged, "create", p.ID)
	return p, err
}

// EditPrompt overwrites text, tags and folder of the prompt with id. A
// dangling folder reference passed back unchanged is kept.
func (s *Service) EditPrompt(ctx context.Context, id string, in PromptInput) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	check := in
	if cur, ok := s.prompts.Get(id); ok && cur.FolderID != nil && *cur.FolderID == in.FolderID {
		check.FolderID = ""
	}
	if err := s.validatePrompt(check); err != nil {
		return models.Prompt{}, err
	}
	err := s.prompts.Edit(ctx, id, prompts.Edit{
		Text:     in.Text,
		Tags:     models.ParseTags(in.Tags),
		FolderID: models.StringPtr(in.FolderID),
	})
	if !s.settle(err, events.PromptsChanged, "edit", id) {
		return models.Prompt{}, err
	}
	p, _ := s.prompts.Get(id)
	return p, err
}

// DeletePrompt removes the prompt with id.
func (s *Service) DeletePrompt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.prompts.Delete(ctx, id)
	s.settle(err, events.PromptsChanged, "delete", id)
	return err
}

// ToggleFavorite flips the favorite flag and returns the updated prompt.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.prompts.ToggleFavorite(ctx, id)
	if !s.settle(err, events.PromptsChanged, "favorite", id) {
		return models.Prompt{}, err
	}
	p, _ := s.prompts.Get(id)
	return p, err
}

// CopyPrompt returns the prompt text and counts the use.
func (s *Service) CopyPrompt(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts.Get(id)
	if !ok {
		return "", fmt.Errorf("promptservice: copy %s: %w", id, apperr.ErrNotFound)
	}
	err := s.prompts.IncrementUsage(ctx, id)
	s.settle(err, events.PromptsChanged, "copy", id)
	return p.Text, err
}

// GetPrompt returns the prompt with id.
func (s *Service) GetPrompt(id string) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts.Get(id)
	if !ok {
		return models.Prompt{}, fmt.Errorf("promptservice: get %s: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

// Search runs an ad-hoc query without touching the view state.
func (s *Service) Search(f models.Filter) []models.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts.Filtered(f)
}

// Tags lists the distinct tags in use.
func (s *Service) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.Tags(s.prompts.All())
}

// --- folders ---

// Folders returns every folder.
func (s *Service) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders.All()
}

// CreateFolder adds a folder with a unique name.
func (s *Service) CreateFolder(ctx context.Context, name string) (models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFolder(ctx, name)
}

func (s *Service) createFolder(ctx context.Context, name string) (models.Folder, error) {
	f := models.Folder{ID: s.newID(), Name: name}
	err := s.folders.Add(ctx, f)
	if !s.settle(err, events.FoldersChanged, "create", f.ID) {
		s.reject(err)
		return models.Folder{}, err
	}
	f, _ = s.folders.Get(f.ID)
	return f, err
}

// RenameFolder changes the name of folder id.
func (s *Service) RenameFolder(ctx context.Context, id, name string) (models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.folders.Rename(ctx, id, name)
	if !s.settle(err, events.FoldersChanged, "rename", id) {
		s.reject(err)
		return models.Folder{}, err
	}
	f, _ := s.folders.Get(id)
	return f, err
}

// DeleteFolder removes folder id. Folders still referenced by a prompt are
// rejected with apperr.ErrFolderInUse and left untouched.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders.Get(id)
	if !ok {
		return fmt.Errorf("promptservice: delete folder %s: %w", id, apperr.ErrNotFound)
	}
	if n := s.prompts.CountInFolder(id); n > 0 {
		s.bus.Notify(events.LevelWarn,
			fmt.Sprintf("Folder %q still contains %d prompt(s); move or delete them first.", f.Name, n))
		return fmt.Errorf("promptservice: delete folder %s: %w", id, apperr.ErrFolderInUse)
	}
	err := s.folders.Delete(ctx, id)
	s.settle(err, events.FoldersChanged, "delete", id)
	return err
}

// FolderName renders a prompt's folder reference for display: empty for no
// folder, UnknownFolder for a dangling reference.
func (s *Service) FolderName(folderID *string) string {
	if folderID == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name := s.folders.Name(*folderID); name != "" {
		return name
	}
	return UnknownFolder
}

// FindFolder returns the folder named name, compared case-insensitively.
func (s *Service) FindFolder(name string) (models.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders.FindByName(name)
}

// --- view ---

// SetView replaces the current filter and page and returns the resulting
// page. A pageSize of zero or less keeps the configured size.
func (s *Service) SetView(f models.Filter, page, pageSize int) query.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = f
	s.page = page
	s.pageSize = pageSize
	return s.currentPage()
}

// ClearFilters resets the view to every prompt, first page.
func (s *Service) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearFilters()
}

func (s *Service) clearFilters() {
	s.view = models.Filter{}
	s.page = 1
}

// View returns the current page of the current view.
func (s *Service) View() query.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage()
}

// CurrentFilter returns the active filter.
func (s *Service) CurrentFilter() models.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Service) currentPage() query.Page {
	size := s.pageSize
	if size <= 0 {
		size = s.cfg.PageSize
	}
	p := query.Paginate(s.prompts.Filtered(s.view), s.page, size)
	s.page = p.Page
	return p
}

// --- preferences ---

// Preferences returns the stored UI settings.
func (s *Service) Preferences(ctx context.Context) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Preferences{
		DarkMode: s.store.DarkMode(ctx),
		Language: s.store.Language(ctx, s.cfg.DefaultLanguage),
	}
}

// SetDarkMode stores the theme preference.
func (s *Service) SetDarkMode(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetDarkMode(ctx, on); err != nil {
		return fmt.Errorf("promptservice: set dark mode: %w", err)
	}
	s.bus.Publish(events.Event{Type: events.PreferencesChanged, Data: events.ChangeData{Op: "darkMode"}})
	return nil
}

// SetLanguage stores the UI language.
func (s *Service) SetLanguage(ctx context.Context, lang string) error {
	if err := validateLanguage(lang); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetLanguage(ctx, lang); err != nil {
		return fmt.Errorf("promptservice: set language: %w", err)
	}
	s.bus.Publish(events.Event{Type: events.PreferencesChanged, Data: events.ChangeData{Op: "language"}})
	return nil
}

// --- helpers ---

// settle publishes a change when the mutation reached the in-memory model,
// including when persisting it failed, and reports whether it did.
func (s *Service) settle(err error, typ events.Type, op, id string) bool {
	if err != nil && rejected(err) {
		return false
	}
	s.bus.Publish(events.Event{Type: typ, Data: events.ChangeData{Op: op, ID: id}})
	return true
}

// rejected reports errors raised before any state change.
func rejected(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrAlreadyExists)
}

// reject surfaces a rejected folder operation as a notice.
func (s *Service) reject(err error) {
	switch {
	case errors.Is(err, apperr.ErrAlreadyExists):
		s.bus.Notify(events.LevelWarn, "A folder with that name already exists.")
	case errors.Is(err, apperr.ErrValidation):
		s.bus.Notify(events.LevelWarn, "Folder name is invalid.")
	}
}

func (s *Service) exportBundle(f models.Filter) transfer.Bundle {
	return transfer.Bundle{
		Folders: s.folders.All(),
		Prompts: s.prompts.Filtered(f),
	}
}

// Export writes the current view as an export bundle: all folders and the
// prompts the active filter shows.
func (s *Service) Export(w io.Writer) error {
	s.mu.Lock()
	b := s.exportBundle(s.view)
	s.mu.Unlock()
	return transfer.Encode(w, b)
}

// ExportAll writes every folder and prompt regardless of the view.
func (s *Service) ExportAll(w io.Writer) error {
	s.mu.Lock()
	b := s.exportBundle(models.Filter{})
	s.mu.Unlock()
	return transfer.Encode(w, b)
}

// ExportFilename returns today's export file name.
func (s *Service) ExportFilename() string {
	return transfer.Filename(s.now())
}
