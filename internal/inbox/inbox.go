// Package inbox turns files dropped into a directory into prompts.
//
// *.json files are merged as export bundles; *.md files become single
// prompts. A processed file is renamed with a ".done" suffix and its
// checksum is remembered so the same content is never ingested twice.
// Files that fail stay in place and the failure is surfaced as a notice.
package inbox

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/kvstore"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/parser"
	"github.com/starford/promptbox/internal/promptservice"
)

// DoneSuffix is appended to processed files.
const DoneSuffix = ".done"

const seenPrefix = "inbox:"

// Ingester is the part of the prompt service the inbox drives.
type Ingester interface {
	Ingest(ctx context.Context, in promptservice.IngestPrompt) (models.Prompt, error)
	Merge(ctx context.Context, r io.Reader) (promptservice.ImportResult, error)
}

// Inbox processes files in one directory.
type Inbox struct {
	dir    string
	svc    Ingester
	kv     kvstore.Store
	notify events.Notifier
	logger *slog.Logger
}

// New creates an Inbox over dir, creating the directory when missing.
func New(dir string, svc Ingester, kv kvstore.Store, notify events.Notifier, logger *slog.Logger) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("inbox: create dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve dir: %w", err)
	}
	return &Inbox{dir: abs, svc: svc, kv: kv, notify: notify, logger: logger}, nil
}

// Dir returns the absolute inbox directory.
func (in *Inbox) Dir() string { return in.dir }

// Accepts reports whether path is a file the inbox handles.
func Accepts(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".md":
		return true
	default:
		return false
	}
}

// Sync processes every pending file already in the directory.
func (in *Inbox) Sync(ctx context.Context) error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("inbox: list: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !Accepts(e.Name()) {
			continue
		}
		if err := in.Process(ctx, filepath.Join(in.dir, e.Name())); err != nil {
			in.logger.Warn("inbox: sync failed", slog.String("file", e.Name()), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Process ingests a single file.
func (in *Inbox) Process(ctx context.Context, path string) error {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inbox: read %s: %w", name, err)
	}
	key := seenKey(data)

	_, seen, err := in.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("inbox: lookup %s: %w", name, err)
	}
	if seen {
		in.logger.Info("inbox: already processed", slog.String("file", name), slog.String("key", key))
		return in.markDone(path)
	}

	var summary string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		res, ierr := in.svc.Merge(ctx, bytes.NewReader(data))
		err = ierr
		summary = fmt.Sprintf("merged %s (%d prompts, %d folders)", name, res.Prompts, res.Folders)
	case ".md":
		err = in.ingestMarkdown(ctx, data)
		summary = "added prompt from " + name
	default:
		return nil
	}
	if err != nil {
		in.notify.Notify(events.LevelError, fmt.Sprintf("Inbox: could not import %s: %v", name, err))
		return fmt.Errorf("inbox: process %s: %w", name, err)
	}

	if err := in.kv.Set(ctx, key, []byte(name)); err != nil {
		in.logger.Warn("inbox: remember checksum failed", slog.String("file", name), slog.String("error", err.Error()))
	}
	in.notify.Notify(events.LevelInfo, "Inbox: "+summary)
	in.logger.Info("inbox: processed", slog.String("file", name))
	return in.markDone(path)
}

// seenKey is the store key remembering content already ingested.
func seenKey(data []byte) string {
	h := sha256.Sum256(data)
	return seenPrefix + hex.EncodeToString(h[:])
}

func (in *Inbox) ingestMarkdown(ctx context.Context, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	_, err = in.svc.Ingest(ctx, promptservice.IngestPrompt{
		Text:     res.Text,
		Tags:     res.Tags,
		Folder:   res.Folder,
		Favorite: res.Favorite,
	})
	return err
}

func (in *Inbox) markDone(path string) error {
	if err := os.Rename(path, path+DoneSuffix); err != nil {
		return fmt.Errorf("inbox: mark done: %w", err)
	}
	return nil
}
