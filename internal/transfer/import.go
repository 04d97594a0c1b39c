package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/models"
)

// Decode reads, parses and validates an import file. Nothing is returned
// unless the whole file is valid. Optional prompt fields that are missing or
// mistyped get defaults; missing timestamps become now.
func Decode(r io.Reader, now time.Time) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("transfer: read: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformed, err)
	}

	root, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.ErrInvalidShape
	}
	rawPrompts, ok := root["prompts"].([]any)
	if !ok {
		return nil, apperr.ErrInvalidShape
	}
	rawFolders, ok := root["folders"].([]any)
	if !ok {
		return nil, apperr.ErrInvalidShape
	}

	b := &Bundle{
		Prompts: make([]models.Prompt, 0, len(rawPrompts)),
		Folders: make([]models.Folder, 0, len(rawFolders)),
	}
	for i, item := range rawPrompts {
		p, ok := decodePrompt(item, now.UnixMilli())
		if !ok {
			return nil, fmt.Errorf("%w (entry %d)", apperr.ErrInvalidPrompt, i)
		}
		b.Prompts = append(b.Prompts, p)
	}
	for i, item := range rawFolders {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w (entry %d)", apperr.ErrInvalidFolder, i)
		}
		id, idOK := m["id"].(string)
		name, nameOK := m["name"].(string)
		if !idOK || !nameOK {
			return nil, fmt.Errorf("%w (entry %d)", apperr.ErrInvalidFolder, i)
		}
		b.Folders = append(b.Folders, models.Folder{ID: id, Name: name})
	}
	return b, nil
}

func decodePrompt(item any, nowMillis int64) (models.Prompt, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return models.Prompt{}, false
	}
	id, idOK := m["id"].(string)
	text, textOK := m["text"].(string)
	if !idOK || !textOK {
		return models.Prompt{}, false
	}

	p := models.Prompt{ID: id, Text: text, Tags: []string{}}
	if tags, ok := m["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok && s != "" {
				p.Tags = append(p.Tags, s)
			}
		}
	}
	p.Favorite, _ = m["favorite"].(bool)
	if folder, ok := m["folderId"].(string); ok && folder != "" {
		p.FolderID = &folder
	}
	p.CreatedAt = millis(m["createdAt"], nowMillis)
	p.UpdatedAt = millis(m["updatedAt"], p.CreatedAt)
	if n, ok := m["usageCount"].(float64); ok && n > 0 {
		p.UsageCount = int(n)
	}
	return p, true
}

func millis(v any, fallback int64) int64 {
	if n, ok := v.(float64); ok && n > 0 {
		return int64(n)
	}
	return fallback
}
