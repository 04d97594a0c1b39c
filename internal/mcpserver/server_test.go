package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/testutil"
	"github.com/starford/promptbox/internal/transfer"
)

func testServer(t *testing.T) (*Server, *promptservice.Service) {
	t.Helper()
	svc, _ := testutil.TestService(t, 0)
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_prompts":
		result, err = srv.searchPrompts(ctx, req)
	case "read_prompt":
		result, err = srv.readPrompt(ctx, req)
	case "create_prompt":
		result, err = srv.createPrompt(ctx, req)
	case "copy_prompt":
		result, err = srv.copyPrompt(ctx, req)
	case "list_folders":
		result, err = srv.listFolders(ctx, req)
	case "create_folder":
		result, err = srv.createFolder(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPrompt(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_prompt", map[string]interface{}{
		"text":   "Explain like I'm five",
		"tags":   "eli5, teaching",
		"folder": "general",
	})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_prompt", map[string]interface{}{"id": id})
	var got promptSummary
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if got.Text != "Explain like I'm five" || got.Folder != "General" || len(got.Tags) != 2 {
		t.Errorf("read = %+v", got)
	}
	if _, err := svc.GetPrompt(id); err != nil {
		t.Errorf("prompt not stored: %v", err)
	}
}

func TestCreatePrompt_Rejected(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_prompt", map[string]interface{}{"text": "   "})
	if !r.IsError {
		t.Error("expected error for blank text")
	}
	r = callTool(t, srv, "create_prompt", map[string]interface{}{"text": "x", "folder": "Nowhere"})
	if !r.IsError {
		t.Error("expected error for unknown folder")
	}
	r = callTool(t, srv, "create_prompt", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing text")
	}
}

func TestSearchPrompts(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	a, _ := svc.CreatePrompt(ctx, promptservice.PromptInput{Text: "alpha draft", Tags: "a"})
	_, _ = svc.CreatePrompt(ctx, promptservice.PromptInput{Text: "beta draft", Tags: "b"})
	_, _ = svc.ToggleFavorite(ctx, a.ID)

	r := callTool(t, srv, "search_prompts", map[string]interface{}{"text": "DRAFT"})
	var got []promptSummary
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("search result: %v (%q)", err, resultText(r))
	}
	if len(got) != 2 {
		t.Errorf("text search = %d results, want 2", len(got))
	}

	r = callTool(t, srv, "search_prompts", map[string]interface{}{"favorite": true})
	got = nil
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("favorite search = %+v", got)
	}

	r = callTool(t, srv, "search_prompts", map[string]interface{}{"tag": "nope"})
	if resultText(r) != "no prompts found" {
		t.Errorf("empty search = %q", resultText(r))
	}

	r = callTool(t, srv, "search_prompts", map[string]interface{}{"order": "alphabetical"})
	if !r.IsError {
		t.Error("expected error for unknown order")
	}
}

func TestCopyPrompt_CountsUse(t *testing.T) {
	srv, svc := testServer(t)
	p, _ := svc.CreatePrompt(context.Background(), promptservice.PromptInput{Text: "use me"})

	r := callTool(t, srv, "copy_prompt", map[string]interface{}{"id": p.ID})
	if resultText(r) != "use me" {
		t.Errorf("copy = %q", resultText(r))
	}
	got, _ := svc.GetPrompt(p.ID)
	if got.UsageCount != 1 {
		t.Errorf("usageCount = %d, want 1", got.UsageCount)
	}

	r = callTool(t, srv, "copy_prompt", map[string]interface{}{"id": "missing"})
	if !r.IsError {
		t.Error("expected error for missing prompt")
	}
}

func TestFolders(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_folder", map[string]interface{}{"name": "Research"})
	if r.IsError {
		t.Fatalf("create folder: %s", resultText(r))
	}
	r = callTool(t, srv, "create_folder", map[string]interface{}{"name": "research"})
	if !r.IsError {
		t.Error("expected duplicate folder error")
	}

	r = callTool(t, srv, "list_folders", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "\tGeneral") || !strings.Contains(text, "\tResearch") {
		t.Errorf("list = %q", text)
	}
}

func TestExportResource(t *testing.T) {
	srv, svc := testServer(t)
	svc.SetView(models.Filter{Tag: "nothing-matches"}, 1, 0)

	contents, err := srv.readExportResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	b, err := transfer.Decode(strings.NewReader(tc.Text), time.Now())
	if err != nil {
		t.Fatalf("export is not a valid bundle: %v", err)
	}
	if len(b.Prompts) != 1 || len(b.Folders) != 1 {
		t.Errorf("export ignores the view: got %d prompts, %d folders", len(b.Prompts), len(b.Folders))
	}
}

func TestFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if tc := contents[0].(mcp.TextResourceContents); !strings.Contains(tc.Text, "folder:") {
		t.Error("format contract missing frontmatter description")
	}
}
