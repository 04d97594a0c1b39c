// Package storage persists the prompt and folder collections and the user
// preferences into named key/value slots.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/kvstore"
	"github.com/starford/promptbox/internal/models"
)

// Slot keys.
const (
	KeyPrompts  = "prompts"
	KeyFolders  = "folders"
	KeyLanguage = "appLang"
	KeyDarkMode = "darkMode"
)

const (
	DefaultFolderName = "General"
	ExamplePromptText = "Welcome to promptbox! Edit or delete this example prompt, then start building your own collection."
)

// Storage reads and writes the persisted slots. Write failures are reported
// through the notifier and returned, never panicked; the caller's in-memory
// state stays authoritative until the next successful save.
type Storage struct {
	kv     kvstore.Store
	notify events.Notifier
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Storage over kv.
func New(kv kvstore.Store, notify events.Notifier, logger *slog.Logger) *Storage {
	return &Storage{kv: kv, notify: notify, logger: logger, now: time.Now}
}

// LoadPrompts returns the stored prompts. A missing slot yields an empty list.
// A corrupt slot yields an empty list, a surfaced warning and an error
// wrapping apperr.ErrCorrupt; callers may keep going with the empty list.
func (s *Storage) LoadPrompts(ctx context.Context) ([]models.Prompt, error) {
	prompts, _, err := loadSlot[models.Prompt](ctx, s, KeyPrompts)
	if err != nil && !errors.Is(err, apperr.ErrCorrupt) {
		return nil, err
	}
	for i := range prompts {
		normalizePrompt(&prompts[i])
	}
	return prompts, err
}

// SavePrompts writes the whole prompt collection.
func (s *Storage) SavePrompts(ctx context.Context, prompts []models.Prompt) error {
	return s.saveSlot(ctx, KeyPrompts, prompts)
}

// LoadFolders returns the stored folders with the same degradation policy as LoadPrompts.
func (s *Storage) LoadFolders(ctx context.Context) ([]models.Folder, error) {
	folders, _, err := loadSlot[models.Folder](ctx, s, KeyFolders)
	return folders, err
}

// SaveFolders writes the whole folder collection.
func (s *Storage) SaveFolders(ctx context.Context, folders []models.Folder) error {
	return s.saveSlot(ctx, KeyFolders, folders)
}

// DarkMode returns the theme preference; absent or unparsable values mean false.
func (s *Storage) DarkMode(ctx context.Context) bool {
	raw, ok, err := s.kv.Get(ctx, KeyDarkMode)
	if err != nil || !ok {
		return false
	}
	v, err := strconv.ParseBool(string(raw))
	return err == nil && v
}

// SetDarkMode stores the theme preference as "true"/"false".
func (s *Storage) SetDarkMode(ctx context.Context, on bool) error {
	return s.kv.Set(ctx, KeyDarkMode, []byte(strconv.FormatBool(on)))
}

// Language returns the stored UI language, or fallback when unset.
func (s *Storage) Language(ctx context.Context, fallback string) string {
	raw, ok, err := s.kv.Get(ctx, KeyLanguage)
	if err != nil || !ok || len(raw) == 0 {
		return fallback
	}
	return string(raw)
}

// SetLanguage stores the UI language code.
func (s *Storage) SetLanguage(ctx context.Context, lang string) error {
	return s.kv.Set(ctx, KeyLanguage, []byte(lang))
}

// Bootstrap loads both collections, seeding a default folder when the
// folders slot has never been written and an example prompt when the prompt
// collection is absent or empty.
func (s *Storage) Bootstrap(ctx context.Context) ([]models.Prompt, []models.Folder, error) {
	folders, foldersPresent, err := loadSlot[models.Folder](ctx, s, KeyFolders)
	if err != nil && !errors.Is(err, apperr.ErrCorrupt) {
		return nil, nil, err
	}
	if !foldersPresent {
		folders = []models.Folder{{ID: uuid.NewString(), Name: DefaultFolderName}}
		if err := s.SaveFolders(ctx, folders); err != nil {
			s.logger.Warn("storage: seed folders failed", slog.String("error", err.Error()))
		}
		s.logger.Info("storage: seeded default folder", slog.String("name", DefaultFolderName))
	}

	prompts, err := s.LoadPrompts(ctx)
	if err != nil && !errors.Is(err, apperr.ErrCorrupt) {
		return nil, nil, err
	}
	if len(prompts) == 0 {
		if len(folders) == 0 {
			folders = append(folders, models.Folder{ID: uuid.NewString(), Name: DefaultFolderName})
			if err := s.SaveFolders(ctx, folders); err != nil {
				s.logger.Warn("storage: seed folders failed", slog.String("error", err.Error()))
			}
		}
		now := s.now().UnixMilli()
		prompts = []models.Prompt{{
			ID:        uuid.NewString(),
			Text:      ExamplePromptText,
			Tags:      []string{},
			FolderID:  models.StringPtr(folders[0].ID),
			CreatedAt: now,
			UpdatedAt: now,
		}}
		if err := s.SavePrompts(ctx, prompts); err != nil {
			s.logger.Warn("storage: seed prompts failed", slog.String("error", err.Error()))
		}
		s.logger.Info("storage: seeded example prompt")
	}
	return prompts, folders, nil
}

// loadSlot decodes a JSON array slot. present reports whether the slot exists.
func loadSlot[T any](ctx context.Context, s *Storage, key string) (items []T, present bool, err error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("storage: load %s: %w", key, err)
	}
	if !ok {
		return []T{}, false, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		cerr := fmt.Errorf("storage: load %s: %w: %v", key, apperr.ErrCorrupt, err)
		s.logger.Warn("storage: corrupt slot, using empty collection",
			slog.String("key", key), slog.String("error", cerr.Error()))
		s.notify.Notify(events.LevelWarn,
			fmt.Sprintf("Saved %s could not be read and were reset.", key))
		return []T{}, true, cerr
	}
	if items == nil {
		items = []T{}
	}
	return items, true, nil
}

func (s *Storage) saveSlot(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.Error("storage: save failed", slog.String("key", key), slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrQuotaExceeded) {
			s.notify.Notify(events.LevelError,
				"Storage is full: your changes were not saved. Export your prompts and delete some to free space, then try again.")
		} else {
			s.notify.Notify(events.LevelError, "Your changes could not be saved. Please try again.")
		}
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

// normalizePrompt fills defaults for optional fields that may be missing from
// older or imported data.
func normalizePrompt(p *models.Prompt) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.UsageCount < 0 {
		p.UsageCount = 0
	}
	if p.FolderID != nil && *p.FolderID == "" {
		p.FolderID = nil
	}
}

// Normalize applies the same defaults to prompts arriving from other sources.
func Normalize(prompts []models.Prompt) {
	for i := range prompts {
		normalizePrompt(&prompts[i])
	}
}
