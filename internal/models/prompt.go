// Package models defines the domain types for promptbox.
package models

import "strings"

// Prompt is a user-authored text entry.
type Prompt struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Favorite   bool     `json:"favorite"`
	FolderID   *string  `json:"folderId"`
	CreatedAt  int64    `json:"createdAt"` // epoch milliseconds
	UpdatedAt  int64    `json:"updatedAt"` // epoch milliseconds
	UsageCount int      `json:"usageCount"`
}

// InFolder reports whether the prompt references folder id.
func (p *Prompt) InFolder(id string) bool {
	return p.FolderID != nil && *p.FolderID == id
}

// Folder groups prompts under a unique name.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Order selects how filtered prompts are sorted.
type Order string

const (
	OrderNone    Order = ""
	OrderCreated Order = "created"
	OrderUpdated Order = "updated"
	OrderUsage   Order = "usage"
)

// Filter is the ephemeral query controlling which prompts are visible.
// Zero values disable the corresponding predicate.
type Filter struct {
	Text     string `json:"text,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Folder   string `json:"folder,omitempty"`
	Order    Order  `json:"order,omitempty"`
}

// IsZero reports whether no predicate or order is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// ParseTags splits comma-separated input into trimmed, non-empty tags.
// Order and duplicates are kept.
func ParseTags(csv string) []string {
	out := []string{}
	for _, part := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FolderKey normalises a folder name for uniqueness comparisons.
func FolderKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
