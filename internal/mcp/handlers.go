package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/gallery"
	"github.com/hpungsan/frag/internal/ops"
	"github.com/hpungsan/frag/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store     *gallery.Store
	cfg       *config.Config
	outputDir string
}

// NewHandlers creates a new Handlers instance. Generic files are written to
// cfg's output directory, resolved against baseDir.
func NewHandlers(store *gallery.Store, cfg *config.Config, baseDir string) *Handlers {
	return &Handlers{store: store, cfg: cfg, outputDir: cfg.ResolveOutputDir(baseDir)}
}

// Request types for each tool

// EncodeRequest represents the arguments for datauri_encode.
type EncodeRequest struct {
	Path           string   `json:"path"`
	Kind           string   `json:"kind,omitempty"`
	Quality        *float64 `json:"quality,omitempty"`
	MaxSize        *int     `json:"max_size,omitempty"`
	ChunkSize      *int     `json:"chunk_size,omitempty"`
	Compress       *bool    `json:"compress,omitempty"`
	IncludeDataURI *bool    `json:"include_data_uri,omitempty"`
}

// ChunkRequest represents the arguments for datauri_chunk.
type ChunkRequest struct {
	Text string `json:"text"`
	Size int    `json:"size"`
}

// PayloadRequest represents the arguments for datauri_inspect and datauri_save.
type PayloadRequest struct {
	Text      string   `json:"text,omitempty"`
	Fragments []string `json:"fragments,omitempty"`
	Digest    string   `json:"digest,omitempty"`
}

// GalleryListRequest represents the arguments for gallery_list.
type GalleryListRequest struct {
	Limit          int  `json:"limit,omitempty"`
	Offset         int  `json:"offset,omitempty"`
	IncludeDeleted bool `json:"include_deleted,omitempty"`
}

// GalleryFetchRequest represents the arguments for gallery_fetch.
type GalleryFetchRequest struct {
	ID          string `json:"id"`
	IncludeData bool   `json:"include_data,omitempty"`
	ChunkSize   int    `json:"chunk_size,omitempty"`
}

// GalleryExportRequest represents the arguments for gallery_export.
type GalleryExportRequest struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// GalleryDeleteRequest represents the arguments for gallery_delete.
type GalleryDeleteRequest struct {
	ID string `json:"id"`
}

// GalleryPurgeRequest represents the arguments for gallery_purge.
type GalleryPurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// GalleryBackupRequest represents the arguments for gallery_backup.
type GalleryBackupRequest struct {
	Path           string `json:"path,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// GalleryRestoreRequest represents the arguments for gallery_restore.
type GalleryRestoreRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// HandleEncode handles the datauri_encode tool. Each call uses a fresh
// workbench; nothing is kept between calls.
func (h *Handlers) HandleEncode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[EncodeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}
	if strings.TrimSpace(r.Path) == "" {
		return errorResult(errors.NewInvalidArgument("path is required")), nil
	}

	settings := session.SettingsFromConfig(h.cfg)
	if r.Quality != nil {
		settings.Quality = *r.Quality
	}
	if r.MaxSize != nil {
		settings.MaxSize = *r.MaxSize
	}
	if r.ChunkSize != nil {
		settings.ChunkSize = *r.ChunkSize
	}
	if r.Compress != nil {
		settings.Compress = *r.Compress
	}

	wb := session.New(settings,
		&collab.JPEGProcessor{MaxBytes: h.cfg.MaxInputBytes},
		collab.FSReader{MaxBytes: h.cfg.MaxInputBytes})

	result, err := ops.Encode(ctx, wb, collab.PathPicker{Path: r.Path}, ops.EncodeInput{
		Kind:           r.Kind,
		Settings:       &settings,
		IncludeDataURI: r.IncludeDataURI == nil || *r.IncludeDataURI,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleChunk handles the datauri_chunk tool.
func (h *Handlers) HandleChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[ChunkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.Chunk(ops.ChunkInput{Text: r.Text, Size: r.Size, MaxBytes: h.cfg.MaxInputBytes})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInspect handles the datauri_inspect tool.
func (h *Handlers) HandleInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[PayloadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.Inspect(ops.InspectInput{
		Text:      r.Text,
		Fragments: r.Fragments,
		Digest:    r.Digest,
		MaxBytes:  h.cfg.MaxInputBytes,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the datauri_save tool.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[PayloadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	savers := ops.Savers{
		Gallery: h.store,
		Files:   collab.DirWriter{Dir: h.outputDir},
	}
	result, err := ops.Save(ctx, savers, ops.SaveInput{
		Text:      r.Text,
		Fragments: r.Fragments,
		Digest:    r.Digest,
		MaxBytes:  h.cfg.MaxInputBytes,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryList handles the gallery_list tool.
func (h *Handlers) HandleGalleryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryList(ctx, h.store, ops.GalleryListInput{
		Limit:          r.Limit,
		Offset:         r.Offset,
		IncludeDeleted: r.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryFetch handles the gallery_fetch tool.
func (h *Handlers) HandleGalleryFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryShow(ctx, h.store, ops.GalleryShowInput{
		ID:          r.ID,
		IncludeData: r.IncludeData,
		ChunkSize:   r.ChunkSize,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryExport handles the gallery_export tool.
func (h *Handlers) HandleGalleryExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryExport(ctx, h.store, h.cfg, h.outputDir, ops.GalleryExportInput{
		ID:   r.ID,
		Path: r.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryDelete handles the gallery_delete tool.
func (h *Handlers) HandleGalleryDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryDelete(ctx, h.store, r.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryPurge handles the gallery_purge tool.
func (h *Handlers) HandleGalleryPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryPurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryPurge(ctx, h.store, ops.GalleryPurgeInput{OlderThanDays: r.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryBackup handles the gallery_backup tool.
func (h *Handlers) HandleGalleryBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryBackupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryBackup(ctx, h.store, h.cfg, h.outputDir, ops.GalleryBackupInput{
		Path:           r.Path,
		IncludeDeleted: r.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGalleryRestore handles the gallery_restore tool. Per-line problems
// are reported in the result, not as a tool error.
func (h *Handlers) HandleGalleryRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[GalleryRestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.GalleryRestore(ctx, h.store, ops.GalleryRestoreInput{
		Path: r.Path,
		Mode: gallery.RestoreMode(r.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult creates an MCP error result. Wrapping context added with
// fmt.Errorf("...: %w") is kept in the message.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := errors.As(err); ok {
		msg := fErr.Message
		if full := err.Error(); full != fErr.Error() {
			msg = strings.Replace(full, fErr.Error(), fErr.Message, 1)
		}
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": msg,
			"status":  fErr.Status,
		}
		// Internal details can carry file paths or SQL text.
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
