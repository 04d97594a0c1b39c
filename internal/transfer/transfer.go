// Package transfer serializes prompt bundles to portable JSON files and
// reconciles imported bundles with the current collections.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/starford/promptbox/internal/models"
)

// Bundle is the exported file layout.
type Bundle struct {
	Folders []models.Folder `json:"folders"`
	Prompts []models.Prompt `json:"prompts"`
}

// Mode is the user's choice after a bundle validated.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeMerge   Mode = "merge"
	ModeCancel  Mode = "cancel"
)

// ParseMode accepts replace, merge or cancel (and their first letters).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace", "r":
		return ModeReplace, nil
	case "merge", "m":
		return ModeMerge, nil
	case "cancel", "c", "":
		return ModeCancel, nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want replace, merge or cancel)", s)
	}
}

// Filename returns the export file name for the given day.
func Filename(now time.Time) string {
	return "prompts-export-" + now.Format("2006-01-02") + ".json"
}

// Encode writes b as indented JSON.
func Encode(w io.Writer, b Bundle) error {
	if b.Folders == nil {
		b.Folders = []models.Folder{}
	}
	if b.Prompts == nil {
		b.Prompts = []models.Prompt{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("transfer: encode: %w", err)
	}
	return nil
}
