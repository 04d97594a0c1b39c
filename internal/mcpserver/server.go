// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes promptbox tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/promptbox/internal/apperr"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/query"
)

const (
	exportURI = "promptbox://export"
	formatURI = "promptbox://prompt-format"

	maxSearchResults = 50
)

// Server wraps the MCP server with promptbox tools.
type Server struct {
	mcp *server.MCPServer
	svc *promptservice.Service
}

// New creates a new MCP server with all promptbox tools registered.
func New(svc *promptservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"promptbox",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_prompts",
		mcp.WithDescription("Search saved prompts. All criteria are optional and combined with AND."),
		mcp.WithString("text", mcp.Description("Case-insensitive substring of the prompt text")),
		mcp.WithString("tag", mcp.Description("Exact tag")),
		mcp.WithString("folder", mcp.Description("Folder name")),
		mcp.WithBoolean("favorite", mcp.Description("Only favorites")),
		mcp.WithString("order", mcp.Description("Sort descending by field"), mcp.Enum("created", "updated", "usage")),
	), s.searchPrompts)

	s.mcp.AddTool(mcp.NewTool("read_prompt",
		mcp.WithDescription("Read a prompt with its metadata as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id")),
	), s.readPrompt)

	s.mcp.AddTool(mcp.NewTool("create_prompt",
		mcp.WithDescription("Save a new prompt. Read the promptbox://prompt-format resource for limits."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Prompt text")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("folder", mcp.Description("Existing folder name")),
	), s.createPrompt)

	s.mcp.AddTool(mcp.NewTool("copy_prompt",
		mcp.WithDescription("Return the text of a prompt for use and count the use."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id")),
	), s.copyPrompt)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List folders with their ids."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder. Names are unique ignoring case."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	), s.createFolder)

	s.mcp.AddResource(
		mcp.NewResource(exportURI, "Prompt Export",
			mcp.WithResourceDescription("Every folder and prompt as an export bundle."),
			mcp.WithMIMEType("application/json"),
		),
		s.readExportResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Prompt Formats",
			mcp.WithResourceDescription("Markdown prompt and JSON bundle formats accepted by promptbox."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type promptSummary struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Favorite   bool     `json:"favorite"`
	Folder     string   `json:"folder"`
	UsageCount int      `json:"usageCount"`
}

func (s *Server) summarize(p models.Prompt) promptSummary {
	return promptSummary{
		ID:         p.ID,
		Text:       p.Text,
		Tags:       p.Tags,
		Favorite:   p.Favorite,
		Folder:     s.svc.FolderName(p.FolderID),
		UsageCount: p.UsageCount,
	}
}

func (s *Server) folderID(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if f, ok := s.svc.FindFolder(name); ok {
		return f.ID, nil
	}
	return "", fmt.Errorf("unknown folder: %s", name)
}

func (s *Server) searchPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	order, err := query.ParseOrder(req.GetString("order", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder, err := s.folderID(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found := s.svc.Search(models.Filter{
		Text:     req.GetString("text", ""),
		Tag:      req.GetString("tag", ""),
		Folder:   folder,
		Favorite: req.GetBool("favorite", false),
		Order:    order,
	})
	if len(found) == 0 {
		return mcp.NewToolResultText("no prompts found"), nil
	}
	if len(found) > maxSearchResults {
		found = found[:maxSearchResults]
	}
	out := make([]promptSummary, len(found))
	for i, p := range found {
		out[i] = s.summarize(p)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPrompt(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	data, _ := json.MarshalIndent(s.summarize(p), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder, err := s.folderID(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.CreatePrompt(ctx, promptservice.PromptInput{
		Text:     text,
		Tags:     req.GetString("tags", ""),
		FolderID: folder,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", p.ID)), nil
}

func (s *Server) copyPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.CopyPrompt(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	// A failed save still counted the use in memory; the text is valid.
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders := s.svc.Folders()
	if len(folders) == 0 {
		return mcp.NewToolResultText("no folders"), nil
	}
	lines := make([]string, len(folders))
	for i, f := range folders {
		lines[i] = f.ID + "\t" + f.Name
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.svc.CreateFolder(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s\t%s", f.ID, f.Name)), nil
}

func (s *Server) readExportResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var buf bytes.Buffer
	if err := s.svc.ExportAll(&buf); err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      exportURI,
			MIMEType: "application/json",
			Text:     buf.String(),
		},
	}, nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     PromptFormatContract,
		},
	}, nil
}
