// Package query turns the prompt collection and a filter into the displayed slice.
package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/promptbox/internal/models"
)

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

// Filter returns the prompts matching every predicate in f, sorted by
// f.Order when set and otherwise in collection order. The source slice is
// never reordered; the result is a fresh slice of copies.
func Filter(prompts []models.Prompt, f models.Filter) []models.Prompt {
	needle := strings.ToLower(f.Text)

	out := make([]models.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if needle != "" && !strings.Contains(strings.ToLower(p.Text), needle) {
			continue
		}
		if f.Favorite && !p.Favorite {
			continue
		}
		if f.Tag != "" && !slices.Contains(p.Tags, f.Tag) {
			continue
		}
		if f.Folder != "" && !p.InFolder(f.Folder) {
			continue
		}
		p.Tags = slices.Clone(p.Tags)
		out = append(out, p)
	}

	if key := sortKey(f.Order); key != nil {
		slices.SortStableFunc(out, func(a, b models.Prompt) int {
			ka, kb := key(a), key(b)
			switch {
			case ka > kb:
				return -1
			case ka < kb:
				return 1
			default:
				return 0
			}
		})
	}
	return out
}

func sortKey(o models.Order) func(models.Prompt) int64 {
	switch o {
	case models.OrderCreated:
		return func(p models.Prompt) int64 { return p.CreatedAt }
	case models.OrderUpdated:
		return func(p models.Prompt) int64 { return p.UpdatedAt }
	case models.OrderUsage:
		return func(p models.Prompt) int64 { return int64(p.UsageCount) }
	default:
		return nil
	}
}

// ParseOrder maps user input to an Order. The empty string means no ordering.
func ParseOrder(s string) (models.Order, error) {
	switch o := models.Order(strings.ToLower(strings.TrimSpace(s))); o {
	case models.OrderNone, models.OrderCreated, models.OrderUpdated, models.OrderUsage:
		return o, nil
	default:
		return models.OrderNone, fmt.Errorf("unknown order %q (want created, updated or usage)", s)
	}
}

// Page is one page of a result list.
type Page struct {
	Items      []models.Prompt `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

// Paginate slices items into 1-based pages. TotalPages is at least 1 and
// page is clamped into [1, TotalPages].
func Paginate(items []models.Prompt, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := (len(items) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)

	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))

	window := items[start:end:end]
	if window == nil {
		window = []models.Prompt{}
	}
	return Page{
		Items:      window,
		Page:       page,
		PageSize:   size,
		Total:      len(items),
		TotalPages: totalPages,
	}
}

// Tags returns the distinct tags used across prompts in first-seen order.
func Tags(prompts []models.Prompt) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range prompts {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
