package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/gallery"
)

// testSetup creates a temporary gallery and config for testing.
func testSetup(t *testing.T) (*gallery.Store, *config.Config, string) {
	t.Helper()

	baseDir := t.TempDir()
	database, err := gallery.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init gallery: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return gallery.NewStore(database), config.DefaultConfig(), baseDir
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultJSON decodes a tool result's text content.
func resultJSON(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			var m map[string]any
			if err := json.Unmarshal([]byte(tc.Text), &m); err != nil {
				t.Fatalf("result is not JSON: %v\n%s", err, tc.Text)
			}
			return m
		}
	}
	t.Fatal("no text content in result")
	return nil
}

func errorCode(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if !r.IsError {
		t.Fatalf("expected error result, got %+v", r.Content)
	}
	return fmt.Sprint(resultJSON(t, r)["error"].(map[string]any)["code"])
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "pic.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleEncode(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)
	ctx := context.Background()
	path := writePNG(t, t.TempDir(), 1024, 512)

	r, err := h.HandleEncode(ctx, makeRequest(map[string]any{
		"path":       path,
		"max_size":   256,
		"chunk_size": 500,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("unexpected error: %+v", r.Content)
	}

	snap := resultJSON(t, r)["snapshot"].(map[string]any)
	desc := snap["descriptor"].(map[string]any)
	if desc["width"].(float64) != 256 || desc["height"].(float64) != 128 {
		t.Errorf("descriptor = %v", desc)
	}
	uri, _ := snap["data_uri"].(string)
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("data_uri missing or wrong: %.40s", uri)
	}
	if snap["digest"] != fragment.Digest(uri) {
		t.Error("digest does not match data_uri")
	}
}

func TestHandleEncode_Errors(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"missing path", map[string]any{}, "INVALID_ARGUMENT"},
		{"missing file", map[string]any{"path": filepath.Join(t.TempDir(), "none.png")}, "FILE_NOT_FOUND"},
		{"bad chunk size", map[string]any{"path": writePNG(t, t.TempDir(), 4, 4), "chunk_size": 0}, "INVALID_ARGUMENT"},
		{"bad quality", map[string]any{"path": writePNG(t, t.TempDir(), 4, 4), "quality": 3}, "INVALID_ARGUMENT"},
		{"wrong arg type", map[string]any{"path": 12}, "INVALID_ARGUMENT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := h.HandleEncode(ctx, makeRequest(tc.args))
			if err != nil {
				t.Fatal(err)
			}
			if got := errorCode(t, r); got != tc.code {
				t.Errorf("code = %s, want %s", got, tc.code)
			}
		})
	}
}

func TestHandleChunk(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)

	r, err := h.HandleChunk(context.Background(), makeRequest(map[string]any{
		"text": strings.Repeat("x", 45),
		"size": 20,
	}))
	if err != nil {
		t.Fatal(err)
	}
	out := resultJSON(t, r)
	if out["count"].(float64) != 3 {
		t.Errorf("count = %v", out["count"])
	}

	r, _ = h.HandleChunk(context.Background(), makeRequest(map[string]any{"text": "abc", "size": 0}))
	if got := errorCode(t, r); got != "INVALID_ARGUMENT" {
		t.Errorf("code = %s", got)
	}
}

func TestHandleInspect(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)

	r, _ := h.HandleInspect(context.Background(), makeRequest(map[string]any{
		"fragments": []any{"data:application/pdf;", "base64,JVBERg=="},
	}))
	out := resultJSON(t, r)
	if out["destination"] != "file" || out["extension"] != ".pdf" {
		t.Errorf("out = %v", out)
	}

	r, _ = h.HandleInspect(context.Background(), makeRequest(map[string]any{"text": "not-a-data-uri"}))
	if got := errorCode(t, r); got != "VALIDATION_ERROR" {
		t.Errorf("code = %s", got)
	}
}

func TestHandleSave(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)
	ctx := context.Background()

	// Image → gallery
	pngData, err := os.ReadFile(writePNG(t, t.TempDir(), 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	text := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	r, _ := h.HandleSave(ctx, makeRequest(map[string]any{"text": text, "digest": fragment.Digest(text)}))
	out := resultJSON(t, r)
	if r.IsError || out["destination"] != "gallery" || out["asset_id"] == "" {
		t.Fatalf("out = %v", out)
	}

	// Other → file under <base>/files
	r, _ = h.HandleSave(ctx, makeRequest(map[string]any{"text": "data:text/plain;base64,aGVsbG8="}))
	out = resultJSON(t, r)
	if r.IsError || out["destination"] != "file" {
		t.Fatalf("out = %v", out)
	}
	path := out["path"].(string)
	if filepath.Dir(path) != filepath.Join(baseDir, "files") || filepath.Ext(path) != ".txt" {
		t.Errorf("path = %q", path)
	}
	if got, _ := os.ReadFile(path); string(got) != "hello" {
		t.Errorf("file content = %q", got)
	}

	// Digest mismatch
	r, _ = h.HandleSave(ctx, makeRequest(map[string]any{"text": text, "digest": fragment.Digest("other")}))
	if got := errorCode(t, r); got != "INTEGRITY_MISMATCH" {
		t.Errorf("code = %s", got)
	}
}

func TestHandleGalleryTools(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)
	ctx := context.Background()

	pngData, _ := os.ReadFile(writePNG(t, t.TempDir(), 2, 2))
	r, _ := h.HandleSave(ctx, makeRequest(map[string]any{
		"text": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
	}))
	id := resultJSON(t, r)["asset_id"].(string)

	r, _ = h.HandleGalleryList(ctx, makeRequest(map[string]any{"limit": 5}))
	list := resultJSON(t, r)
	if items := list["items"].([]any); len(items) != 1 {
		t.Errorf("items = %v", items)
	}

	r, _ = h.HandleGalleryFetch(ctx, makeRequest(map[string]any{"id": id, "include_data": true}))
	if uri := resultJSON(t, r)["data_uri"].(string); !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("data_uri = %.40s", uri)
	}

	r, _ = h.HandleGalleryExport(ctx, makeRequest(map[string]any{"id": id}))
	exported := resultJSON(t, r)
	if r.IsError {
		t.Fatalf("export failed: %v", exported)
	}
	if _, err := os.Stat(exported["path"].(string)); err != nil {
		t.Errorf("exported file missing: %v", err)
	}

	r, _ = h.HandleGalleryDelete(ctx, makeRequest(map[string]any{"id": id}))
	if resultJSON(t, r)["deleted"] != true {
		t.Error("delete failed")
	}

	r, _ = h.HandleGalleryFetch(ctx, makeRequest(map[string]any{"id": id}))
	if got := errorCode(t, r); got != "NOT_FOUND" {
		t.Errorf("code = %s", got)
	}

	r, _ = h.HandleGalleryPurge(ctx, makeRequest(map[string]any{}))
	if resultJSON(t, r)["purged"].(float64) != 1 {
		t.Error("purge did not remove the deleted asset")
	}
}

func TestHandleGalleryBackupRestore(t *testing.T) {
	store, cfg, baseDir := testSetup(t)
	h := NewHandlers(store, cfg, baseDir)
	ctx := context.Background()

	pngData, _ := os.ReadFile(writePNG(t, t.TempDir(), 3, 3))
	r, _ := h.HandleSave(ctx, makeRequest(map[string]any{
		"text": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
	}))
	if r.IsError {
		t.Fatalf("save failed: %v", resultJSON(t, r))
	}

	r, _ = h.HandleGalleryBackup(ctx, makeRequest(map[string]any{}))
	backup := resultJSON(t, r)
	if r.IsError || backup["count"].(float64) != 1 {
		t.Fatalf("backup = %v", backup)
	}
	path := backup["path"].(string)

	r, _ = h.HandleGalleryRestore(ctx, makeRequest(map[string]any{"path": path}))
	restored := resultJSON(t, r)
	if r.IsError || restored["imported"].(float64) != 0 {
		t.Fatalf("restore over existing ids should import nothing: %v", restored)
	}
	if errs := restored["errors"].([]any); len(errs) != 1 ||
		errs[0].(map[string]any)["code"] != "ID_COLLISION" {
		t.Errorf("errors = %v", errs)
	}

	r, _ = h.HandleGalleryRestore(ctx, makeRequest(map[string]any{"path": path, "mode": "rename"}))
	if restored := resultJSON(t, r); restored["imported"].(float64) != 1 {
		t.Errorf("rename restore = %v", restored)
	}

	r, _ = h.HandleGalleryRestore(ctx, makeRequest(map[string]any{}))
	if got := errorCode(t, r); got != "INVALID_ARGUMENT" {
		t.Errorf("missing path code = %s", got)
	}
}

func TestServerRegistration(t *testing.T) {
	store, cfg, baseDir := testSetup(t)

	s := NewServer(store, cfg, baseDir, "test")
	tools := s.ListTools()

	expected := []string{
		"datauri_encode", "datauri_chunk", "datauri_inspect", "datauri_save",
		"gallery_list", "gallery_fetch", "gallery_export", "gallery_delete", "gallery_purge",
		"gallery_backup", "gallery_restore",
	}
	if len(tools) != len(expected) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expected))
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	store, cfg, baseDir := testSetup(t)

	cfg.DisabledTools = []string{"gallery_purge", "gallery_delete", "gallery_purge"}
	tools := NewServer(store, cfg, baseDir, "test").ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"gallery_purge", "gallery_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	store, cfg, baseDir := testSetup(t)

	cfg.DisabledTypes = []string{"gallery"}
	tools := NewServer(store, cfg, baseDir, "test").ListTools()

	if len(tools) != 4 {
		t.Errorf("registered tool count = %d, want 4", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) != "datauri" {
			t.Errorf("tool %q should be disabled", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	store, cfg, baseDir := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	if tools := NewServer(store, cfg, baseDir, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0", len(tools))
	}
}

func TestValidateDisabledToolsAndTypes(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"datauri_save", "fake_tool"}); len(unknown) != 1 || unknown[0] != "fake_tool" {
		t.Errorf("ValidateDisabledTools = %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"gallery", "images"}); len(unknown) != 1 || unknown[0] != "images" {
		t.Errorf("ValidateDisabledTypes = %v", unknown)
	}
	if unknown := ValidateDisabledTools(AllToolNames()); len(unknown) != 0 {
		t.Errorf("AllToolNames returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	errObj := resultJSON(t, r)["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	r := errorResult(fmt.Errorf("fragment 3: %w", errors.NewInvalidArgument("payload is not valid Base64")))
	errObj := resultJSON(t, r)["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInvalidArgument) {
		t.Errorf("code=%v", errObj["code"])
	}
	if msg := errObj["message"].(string); msg != "fragment 3: payload is not valid Base64" {
		t.Errorf("message = %q", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	errObj := resultJSON(t, r)["error"].(map[string]any)
	if errObj["code"] != "INTERNAL" {
		t.Errorf("code=%v", errObj["code"])
	}
}
