package api

import (
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
)

// PromptRequest is the request body for creating or editing a prompt.
type PromptRequest struct {
	Text     string `json:"text" example:"Summarize the following text" validate:"required"`
	Tags     string `json:"tags" example:"writing, summary"`
	FolderID string `json:"folderId" example:"9b2f..."`
}

// PromptView is a prompt with its folder name resolved for display.
type PromptView struct {
	models.Prompt
	FolderName string `json:"folderName"`
}

// PromptListResponse is one page of the current view.
type PromptListResponse struct {
	Prompts    []PromptView  `json:"prompts" validate:"required"`
	Filter     models.Filter `json:"filter"`
	Page       int           `json:"page" example:"1"`
	PageSize   int           `json:"pageSize" example:"10"`
	Total      int           `json:"total" example:"42"`
	TotalPages int           `json:"totalPages" example:"5"`
}

// FolderRequest is the request body for creating or renaming a folder.
type FolderRequest struct {
	Name string `json:"name" example:"Work" validate:"required"`
}

// CopyResponse carries the text of a copied prompt.
type CopyResponse struct {
	Text string `json:"text"`
}

// PreferencesRequest updates any subset of the preferences.
type PreferencesRequest struct {
	DarkMode *bool   `json:"darkMode"`
	Language *string `json:"language" example:"en"`
}

// Preferences is the preferences response type (aliased from the domain layer).
type Preferences = promptservice.Preferences

// ImportResult is the import response type (aliased from the domain layer).
type ImportResult = promptservice.ImportResult
