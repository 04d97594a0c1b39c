package promptservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/folders"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/storage"
	"github.com/starford/promptbox/internal/transfer"
)

// PrepareImport clears the active filters, then reads, parses and validates
// an import file. Invalid files are reported and leave the collections as
// they were.
func (s *Service) PrepareImport(r io.Reader) (*transfer.Bundle, error) {
	s.ClearFilters()
	return s.decode(r)
}

func (s *Service) decode(r io.Reader) (*transfer.Bundle, error) {
	b, err := transfer.Decode(r, s.now())
	if err != nil {
		s.logger.Warn("promptservice: import rejected", slog.String("error", err.Error()))
		s.bus.Notify(events.LevelError, "Import failed: "+err.Error())
		return nil, fmt.Errorf("promptservice: prepare import: %w", err)
	}
	return b, nil
}

// ApplyImport reconciles b with the current collections. Replace adopts the
// bundle wholesale; merge overlays it by id with the import winning; cancel
// changes nothing. The active filters are cleared.
func (s *Service) ApplyImport(ctx context.Context, b *transfer.Bundle, mode transfer.Mode) (ImportResult, error) {
	return s.apply(ctx, b, mode, true)
}

func (s *Service) apply(ctx context.Context, b *transfer.Bundle, mode transfer.Mode, clearView bool) (ImportResult, error) {
	res := ImportResult{Mode: mode}
	if mode == transfer.ModeCancel || b == nil {
		s.logger.Info("promptservice: import cancelled")
		res.Mode = transfer.ModeCancel
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		nextPrompts []models.Prompt
		nextFolders []models.Folder
	)
	switch mode {
	case transfer.ModeReplace:
		nextPrompts = b.Prompts
		nextFolders = b.Folders
	case transfer.ModeMerge:
		nextPrompts = transfer.MergePrompts(s.prompts.All(), b.Prompts)
		nextFolders = transfer.MergeFolders(s.folders.All(), b.Folders)
	default:
		return res, fmt.Errorf("promptservice: apply import: unknown mode %q", mode)
	}
	storage.Normalize(nextPrompts)

	perr := s.prompts.Replace(ctx, nextPrompts)
	ferr := s.folders.Replace(ctx, nextFolders)
	if clearView {
		s.clearFilters()
	}

	res.Prompts = s.prompts.Len()
	res.Folders = s.folders.Len()
	s.bus.Publish(events.Event{Type: events.PromptsChanged, Data: events.ChangeData{Op: "import"}})
	s.bus.Publish(events.Event{Type: events.FoldersChanged, Data: events.ChangeData{Op: "import"}})

	if dups := transfer.DuplicateFolderNames(nextFolders); len(dups) > 0 {
		msg := "The imported file has several folders with the same name: "
		if mode == transfer.ModeMerge {
			msg = "Merged folders share names with existing ones: "
		}
		s.bus.Notify(events.LevelWarn, msg+strings.Join(dups, ", "))
	}
	if err := errors.Join(perr, ferr); err != nil {
		return res, fmt.Errorf("promptservice: apply import: %w", err)
	}

	s.bus.Publish(events.Event{Type: events.ImportCompleted, Data: events.ImportData{
		Mode: string(mode), Prompts: res.Prompts, Folders: res.Folders,
	}})
	s.bus.Notify(events.LevelInfo,
		fmt.Sprintf("Import complete: %d prompts, %d folders.", res.Prompts, res.Folders))
	s.logger.Info("promptservice: import applied",
		slog.String("mode", string(mode)), slog.Int("prompts", res.Prompts), slog.Int("folders", res.Folders))
	return res, nil
}

// Import prepares and applies r in one step.
func (s *Service) Import(ctx context.Context, r io.Reader, mode transfer.Mode) (ImportResult, error) {
	b, err := s.PrepareImport(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ApplyImport(ctx, b, mode)
}

// Merge overlays the bundle read from r onto the collections without
// touching the current view. It serves imports nobody asked for
// interactively, such as inbox drops.
func (s *Service) Merge(ctx context.Context, r io.Reader) (ImportResult, error) {
	b, err := s.decode(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.apply(ctx, b, transfer.ModeMerge, false)
}

// IngestPrompt is a prompt arriving from a dropped file. Folder is a folder
// name; it is created when no folder has that name.
type IngestPrompt struct {
	Text     string
	Tags     []string
	Folder   string
	Favorite bool
}

// Ingest validates and adds an externally authored prompt.
func (s *Service) Ingest(ctx context.Context, in IngestPrompt) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validatePrompt(PromptInput{Text: in.Text}); err != nil {
		return models.Prompt{}, err
	}

	var folderID string
	if name := strings.TrimSpace(in.Folder); name != "" {
		if f, ok := s.folders.FindByName(name); ok {
			folderID = f.ID
		} else {
			if _, err := folders.ValidateName(name); err != nil {
				return models.Prompt{}, err
			}
			f, err := s.createFolder(ctx, name)
			if err != nil && f.ID == "" {
				return models.Prompt{}, err
			}
			folderID = f.ID
		}
	}

	now := s.now().UnixMilli()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	p := models.Prompt{
		ID:        s.newID(),
		Text:      in.Text,
		Tags:      tags,
		Favorite:  in.Favorite,
		FolderID:  models.StringPtr(folderID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.prompts.Add(ctx, p)
	s.settle(err, events.PromptsChanged, "create", p.ID)
	return p, err
}
