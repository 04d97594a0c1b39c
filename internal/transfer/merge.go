package transfer

import (
	"github.com/starford/promptbox/internal/models"
)

// MergeByID overlays imported onto current keyed by id: imported entries win
// on collision and keep the position of the entry they replace; new ids are
// appended in import order.
func MergeByID[T any](current, imported []T, id func(T) string) []T {
	out := make([]T, 0, len(current)+len(imported))
	pos := make(map[string]int, len(current)+len(imported))
	for _, item := range current {
		if i, ok := pos[id(item)]; ok {
			out[i] = item
			continue
		}
		pos[id(item)] = len(out)
		out = append(out, item)
	}
	for _, item := range imported {
		if i, ok := pos[id(item)]; ok {
			out[i] = item
			continue
		}
		pos[id(item)] = len(out)
		out = append(out, item)
	}
	return out
}

// MergePrompts merges prompt collections by id.
func MergePrompts(current, imported []models.Prompt) []models.Prompt {
	return MergeByID(current, imported, func(p models.Prompt) string { return p.ID })
}

// MergeFolders merges folder collections by id. Names are not deduplicated.
func MergeFolders(current, imported []models.Folder) []models.Folder {
	return MergeByID(current, imported, func(f models.Folder) string { return f.ID })
}

// DuplicateFolderNames lists names (normalised) held by more than one folder.
func DuplicateFolderNames(folders []models.Folder) []string {
	count := make(map[string]int, len(folders))
	var out []string
	for _, f := range folders {
		key := models.FolderKey(f.Name)
		count[key]++
		if count[key] == 2 {
			out = append(out, key)
		}
	}
	return out
}
