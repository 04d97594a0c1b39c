package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/testutil"
	"github.com/starford/promptbox/internal/transfer"
)

// testEnv sets up a bootstrapped service over a temp store and a router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*promptservice.Service, http.Handler) {
	t.Helper()
	svc, _ := testutil.TestService(t, 0)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func TestCreateAndGetPrompt(t *testing.T) {
	svc, router := testEnv(t, "")
	folder := svc.Folders()[0]

	w := do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "Draft email", Tags: "mail, work", FolderID: folder.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[PromptView](t, w)
	if created.FolderName != folder.Name {
		t.Errorf("folderName = %q, want %q", created.FolderName, folder.Name)
	}
	if len(created.Tags) != 2 || created.Tags[1] != "work" {
		t.Errorf("tags = %v", created.Tags)
	}

	w = do(t, router, http.MethodGet, "/prompts/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[PromptView](t, w)
	if got.Text != "Draft email" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestCreatePrompt_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	for name, req := range map[string]PromptRequest{
		"blank":          {Text: "   "},
		"too long":       {Text: strings.Repeat("x", 10001)},
		"unknown folder": {Text: "ok", FolderID: "nope"},
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/prompts", req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/prompts", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestUpdateFavoriteCopyDelete(t *testing.T) {
	_, router := testEnv(t, "")
	created := decode[PromptView](t, do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "v1"}))

	w := do(t, router, http.MethodPut, "/prompts/"+created.ID, PromptRequest{Text: "v2", Tags: "t"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[PromptView](t, w); got.Text != "v2" {
		t.Errorf("text = %q, want v2", got.Text)
	}

	w = do(t, router, http.MethodPost, "/prompts/"+created.ID+"/favorite", nil)
	if got := decode[PromptView](t, w); !got.Favorite {
		t.Error("favorite not toggled")
	}

	w = do(t, router, http.MethodPost, "/prompts/"+created.ID+"/copy", nil)
	if got := decode[CopyResponse](t, w); got.Text != "v2" {
		t.Errorf("copy text = %q", got.Text)
	}
	w = do(t, router, http.MethodGet, "/prompts/"+created.ID, nil)
	if got := decode[PromptView](t, w); got.UsageCount != 1 {
		t.Errorf("usageCount = %d, want 1", got.UsageCount)
	}

	w = do(t, router, http.MethodDelete, "/prompts/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	w = do(t, router, http.MethodGet, "/prompts/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	_, router := testEnv(t, "")
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/prompts/ghost"},
		{http.MethodDelete, "/prompts/ghost"},
		{http.MethodPost, "/prompts/ghost/favorite"},
		{http.MethodPost, "/prompts/ghost/copy"},
		{http.MethodDelete, "/folders/ghost"},
	} {
		w := do(t, router, tc.method, tc.target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.target, w.Code)
		}
	}
	w := do(t, router, http.MethodPut, "/prompts/ghost", PromptRequest{Text: "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestListPrompts_FilterAndPage(t *testing.T) {
	_, router := testEnv(t, "")
	for i := range 5 {
		tags := "odd"
		if i%2 == 0 {
			tags = "even"
		}
		do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "item", Tags: tags})
	}

	w := do(t, router, http.MethodGet, "/prompts?tag=even&page_size=2&page=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[PromptListResponse](t, w)
	if resp.Total != 3 || resp.TotalPages != 2 || resp.Page != 2 || len(resp.Prompts) != 1 {
		t.Errorf("page = %+v", resp)
	}
	if resp.Filter.Tag != "even" {
		t.Errorf("filter = %+v", resp.Filter)
	}

	w = do(t, router, http.MethodGet, "/prompts?page=99", nil)
	resp = decode[PromptListResponse](t, w)
	if resp.Page != resp.TotalPages {
		t.Errorf("page = %d, want clamped to %d", resp.Page, resp.TotalPages)
	}
}

func TestListPrompts_BadParams(t *testing.T) {
	_, router := testEnv(t, "")
	for _, target := range []string{"/prompts?order=random", "/prompts?favorite=maybe"} {
		w := do(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, w.Code)
		}
	}
}

func TestFolders(t *testing.T) {
	svc, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", FolderRequest{Name: "Work"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create folder = %d, body = %s", w.Code, w.Body.String())
	}
	work := decode[models.Folder](t, w)

	w = do(t, router, http.MethodPost, "/folders", FolderRequest{Name: " work "})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate folder = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPost, "/folders", FolderRequest{Name: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty folder = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPut, "/folders/"+work.ID, FolderRequest{Name: "Office"})
	if w.Code != http.StatusOK {
		t.Errorf("rename = %d", w.Code)
	}

	do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "in office", FolderID: work.ID})
	w = do(t, router, http.MethodDelete, "/folders/"+work.ID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("delete used folder = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/folders", nil)
	list := decode[map[string][]models.Folder](t, w)
	if len(list["folders"]) != len(svc.Folders()) || len(list["folders"]) != 2 {
		t.Errorf("folders = %v", list["folders"])
	}
}

func TestTagsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "a", Tags: "x,y"})
	w := do(t, router, http.MethodGet, "/tags", nil)
	got := decode[map[string][]string](t, w)
	if len(got["tags"]) != 2 {
		t.Errorf("tags = %v", got["tags"])
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "keep me", Tags: "k"})
	want := svc.Search(models.Filter{})

	w := do(t, router, http.MethodGet, "/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "prompts-export-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := w.Body.Bytes()

	if _, err := svc.ApplyImport(context.Background(), &transfer.Bundle{}, transfer.ModeReplace); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/import?mode=replace", bytes.NewReader(exported))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[ImportResult](t, w)
	if res.Prompts != len(want) {
		t.Errorf("imported prompts = %d, want %d", res.Prompts, len(want))
	}
	if got := svc.Search(models.Filter{}); len(got) != len(want) || got[1].Text != "keep me" {
		t.Errorf("after import = %+v", got)
	}
}

func TestExport_UsesCurrentView(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: "tagged", Tags: "only"})
	do(t, router, http.MethodGet, "/prompts?tag=only", nil)

	b := decode[transfer.Bundle](t, do(t, router, http.MethodGet, "/export", nil))
	if len(b.Prompts) != 1 || b.Prompts[0].Text != "tagged" {
		t.Errorf("filtered export = %+v", b.Prompts)
	}
	b = decode[transfer.Bundle](t, do(t, router, http.MethodGet, "/export?all=true", nil))
	if len(b.Prompts) != 2 {
		t.Errorf("full export prompts = %d, want 2", len(b.Prompts))
	}
}

func TestImport_Multipart(t *testing.T) {
	svc, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bundle.json")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(`{"folders": [], "prompts": [{"id": "m1", "text": "merged"}]}`))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import?mode=merge", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("multipart import = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := svc.GetPrompt("m1"); err != nil {
		t.Errorf("merged prompt missing: %v", err)
	}
}

func TestImport_Rejections(t *testing.T) {
	svc, router := testEnv(t, "")
	before := len(svc.Search(models.Filter{}))

	cases := []struct {
		target, body string
	}{
		{"/import", `{"folders": [], "prompts": []}`},
		{"/import?mode=overwrite", `{"folders": [], "prompts": []}`},
		{"/import?mode=replace", `not json`},
		{"/import?mode=replace", `{"folders": [], "prompts": {}}`},
		{"/import?mode=replace", `{"folders": [], "prompts": [{"id": 1}]}`},
		{"/import?mode=replace", `{"folders": [{"id": "x"}], "prompts": []}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s = %d, want 400", tc.target, tc.body, w.Code)
		}
	}
	if got := len(svc.Search(models.Filter{})); got != before {
		t.Errorf("prompts = %d after rejected imports, want %d", got, before)
	}
}

func TestImport_Cancel(t *testing.T) {
	svc, router := testEnv(t, "")
	before := svc.Search(models.Filter{})

	req := httptest.NewRequest(http.MethodPost, "/import?mode=cancel", strings.NewReader(`{"folders": [], "prompts": []}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel = %d", w.Code)
	}
	if got := svc.Search(models.Filter{}); len(got) != len(before) {
		t.Errorf("cancel changed state: %d prompts, want %d", len(got), len(before))
	}
}

func TestPreferences(t *testing.T) {
	_, router := testEnv(t, "")

	got := decode[Preferences](t, do(t, router, http.MethodGet, "/preferences", nil))
	if got.Language != "es" || got.DarkMode {
		t.Errorf("defaults = %+v", got)
	}

	dark, lang := true, "en"
	w := do(t, router, http.MethodPut, "/preferences", PreferencesRequest{DarkMode: &dark, Language: &lang})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[Preferences](t, w); !got.DarkMode || got.Language != "en" {
		t.Errorf("updated = %+v", got)
	}

	bad := "xx"
	w = do(t, router, http.MethodPut, "/preferences", PreferencesRequest{Language: &bad})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad language = %d, want 400", w.Code)
	}
}

func TestQuotaExceeded(t *testing.T) {
	svc, _ := testutil.TestService(t, 2000)
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodPost, "/prompts", PromptRequest{Text: strings.Repeat("q", 1900)})
	if w.Code != http.StatusInsufficientStorage {
		t.Errorf("over quota = %d, want 507", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(PromptRequest{Text: "authed"})
	req := httptest.NewRequest(http.MethodPost, "/prompts", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/prompts", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/prompts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/prompts", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint tests.

func testEnvWithSSE(t *testing.T, token string) http.Handler {
	t.Helper()
	svc, _ := testutil.TestService(t, 0)
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	return NewRouter(svc, token != "", token, bus)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	router := testEnvWithSSE(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForEvents(t *testing.T) {
	_, router := testEnv(t, "tok")

	w := do(t, router, http.MethodGet, "/prompts?token=tok", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on /prompts = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}
