package web

import (
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/gallery"
	"github.com/hpungsan/frag/internal/ops"
	"github.com/hpungsan/frag/internal/session"
)

// maxFormOverhead is added to the input limit for multipart framing.
const maxFormOverhead = 1 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store     *gallery.Store
	cfg       *config.Config
	renderer  *Renderer
	workbench *session.Workbench
	clipboard collab.Clipboard
	outputDir string
	uploadDir string

	mu     sync.Mutex
	upload string // staging directory of the current pick
}

// HandleWorkbench handles GET /workbench: settings, pick form and the
// current snapshot.
func (h *Handlers) HandleWorkbench(w http.ResponseWriter, r *http.Request) {
	h.renderWorkbench(w, r, "")
}

// HandleUpload handles POST /workbench/upload: pick a file from the browser.
// Submitting without a file counts as a cancelled pick.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument(fmt.Sprintf("invalid upload: %v", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if stderrors.Is(err, http.ErrMissingFile) {
		h.renderWorkbench(w, r, "No file selected")
		return
	}
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument(fmt.Sprintf("invalid upload: %v", err)))
		return
	}
	defer file.Close()

	dir, path, err := h.stage(file, header.Filename)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Encode(r.Context(), h.workbench, collab.PathPicker{Path: path}, ops.EncodeInput{
		Kind: r.FormValue("kind"),
	})
	if err != nil {
		if stderrors.Is(err, session.ErrSuperseded) {
			// A settings change may have committed this upload in our place.
			if snap := h.workbench.Snapshot(); snap != nil && string(snap.Source.Ref) == path {
				h.swapUpload(dir)
			} else {
				os.RemoveAll(dir)
			}
			h.renderWorkbench(w, r, "")
			return
		}
		os.RemoveAll(dir)
		h.renderer.renderError(w, r, err)
		return
	}
	h.swapUpload(dir)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderWorkbench(w, r, "")
}

// HandleSettings handles POST /workbench/settings: change settings and
// recompute the current pick.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("invalid form data"))
		return
	}

	settings, err := parseSettings(r, h.workbench.Settings())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if _, err := h.workbench.SetSettings(r.Context(), settings); err != nil && !stderrors.Is(err, session.ErrSuperseded) {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"settings": h.workbench.Settings()})
		return
	}
	h.renderWorkbench(w, r, "")
}

// HandleClear handles POST /workbench/clear: drop the current pick.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.workbench.Clear()
	h.swapUpload("")

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/workbench")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/workbench", http.StatusFound)
}

// HandleCopy handles POST /workbench/copy: put the whole data URI, or the
// fragment named by the "index" field, on the clipboard.
func (h *Handlers) HandleCopy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("invalid form data"))
		return
	}

	snap := h.workbench.Snapshot()
	if snap == nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("nothing to copy; pick a file first"))
		return
	}

	input := ops.CopyInput{Text: snap.DataURI, ChunkSize: snap.Settings.ChunkSize}
	if s := r.FormValue("index"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidArgument("index must be an integer"))
			return
		}
		input.Index = &i
	}

	result, err := ops.Copy(h.clipboard, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: return HTML fragment
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="notice">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderWorkbench(w, r, result.Message)
}

// HandleFragment handles GET /workbench/fragments/{index}: the raw text of
// one fragment, or of the whole data URI for index "all".
func (h *Handlers) HandleFragment(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	if snap == nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("nothing picked yet"))
		return
	}

	text := snap.DataURI
	if idx := r.PathValue("index"); idx != "all" {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(snap.Fragments) {
			h.renderer.renderError(w, r, errors.NewInvalidArgument(fmt.Sprintf("fragment index %q out of range", idx)))
			return
		}
		text = snap.Fragments[i]
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, text)
}

// HandleDecodeForm handles GET /decode.
func (h *Handlers) HandleDecodeForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "decode", DecodePageData{PageData: h.renderer.page("Decode", "decode")})
}

// HandleDecode handles POST /decode: inspect a pasted data URI and, when
// action=save, persist it.
func (h *Handlers) HandleDecode(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("invalid form data"))
		return
	}

	data := DecodePageData{
		PageData: h.renderer.page("Decode", "decode"),
		Text:     strings.TrimSpace(r.FormValue("text")),
		Digest:   strings.TrimSpace(r.FormValue("digest")),
	}

	inspect, err := ops.Inspect(ops.InspectInput{Text: data.Text, Digest: data.Digest, MaxBytes: h.cfg.MaxInputBytes})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Inspect = inspect
	if inspect.IsImage {
		data.Preview = template.URL(data.Text)
	}

	if r.FormValue("action") == "save" {
		saved, err := ops.Save(r.Context(), ops.Savers{
			Gallery: h.store,
			Files:   collab.DirWriter{Dir: h.outputDir},
		}, ops.SaveInput{Text: data.Text, Digest: data.Digest, MaxBytes: h.cfg.MaxInputBytes})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Saved = saved
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"inspect": data.Inspect, "saved": data.Saved})
		return
	}
	if r.Header.Get("HX-Target") == "decode-result" {
		h.renderer.renderBlock(w, http.StatusOK, "decode", "decode-result", data)
		return
	}
	h.renderer.renderPage(w, r, "decode", data)
}

// HandleGallery handles GET /gallery: list saved images.
func (h *Handlers) HandleGallery(w http.ResponseWriter, r *http.Request) {
	input := ops.GalleryListInput{
		Limit:          parseIntParam(r, "limit", gallery.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.GalleryList(r.Context(), h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "gallery", GalleryPageData{
		PageData:   h.renderer.page("Gallery", "gallery"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleAsset handles GET /gallery/{id}: one asset with its fragments at
// the current chunk size.
func (h *Handlers) HandleAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("asset ID is required"))
		return
	}

	asset, err := ops.GalleryShow(r.Context(), h.store, ops.GalleryShowInput{
		ID:          id,
		IncludeData: true,
		ChunkSize:   h.workbench.Settings().ChunkSize,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "asset", AssetPageData{
		PageData:  h.renderer.page(shortID(asset.ID), "gallery"),
		Asset:     asset.Summary,
		Fragments: asset.Fragments,
	})
}

// HandleAssetRaw handles GET /gallery/{id}/raw: the stored image bytes.
func (h *Handlers) HandleAssetRaw(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	_, _ = w.Write(a.Data)
}

// HandleExport handles POST /gallery/{id}/export: write the asset to a file.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("invalid form data"))
		return
	}

	result, err := ops.GalleryExport(r.Context(), h.store, h.cfg, h.outputDir, ops.GalleryExportInput{
		ID:   r.PathValue("id"),
		Path: strings.TrimSpace(r.FormValue("path")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="notice">Exported to ` + template.HTMLEscapeString(result.Path) + `</div>`))
}

// HandleDelete handles DELETE /gallery/{id}: soft-delete an asset.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.GalleryDelete(r.Context(), h.store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/gallery")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/gallery", http.StatusFound)
}

// HandlePurge handles POST /gallery/purge: permanently delete soft-deleted assets.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidArgument("confirm parameter must be \"true\""))
		return
	}

	var input ops.GalleryPurgeInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidArgument("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.GalleryPurge(r.Context(), h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: return HTML fragment
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="purge-result">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/gallery?include_deleted=true", http.StatusFound)
}

// HandleHelp handles GET /help.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "help", HelpPageData{
		PageData:     h.renderer.page("Help", "help"),
		RenderedHTML: renderMarkdown(helpMarkdown),
	})
}

func (h *Handlers) renderWorkbench(w http.ResponseWriter, r *http.Request, notice string) {
	data := WorkbenchPageData{
		PageData:         h.renderer.page("Workbench", "workbench"),
		Settings:         h.workbench.Settings(),
		QualityPresets:   session.QualityPresets,
		MaxSizePresets:   session.MaxSizePresets,
		ChunkSizePresets: session.ChunkSizePresets,
		Notice:           notice,
	}
	if snap := h.workbench.Snapshot(); snap != nil {
		data.Snapshot = ops.NewSnapshotOutput(snap, false)
	}

	if r.Header.Get("HX-Target") == "snapshot" {
		h.renderer.renderBlock(w, http.StatusOK, "workbench", "snapshot", data)
		return
	}
	h.renderer.renderPage(w, r, "workbench", data)
}

func (h *Handlers) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxInputBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxInputBytes*2+maxFormOverhead)
	}
}

// stage copies an uploaded file into a fresh directory under uploadDir so
// the workbench can re-read it on recompute.
func (h *Handlers) stage(src io.Reader, filename string) (dir, path string, err error) {
	if err := os.MkdirAll(h.uploadDir, 0700); err != nil {
		return "", "", errors.WrapIO("create upload directory", err)
	}
	dir, err = os.MkdirTemp(h.uploadDir, "pick-")
	if err != nil {
		return "", "", errors.WrapIO("create upload directory", err)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		os.RemoveAll(dir)
		return "", "", errors.NewInvalidArgument(fmt.Sprintf("read upload: %v", err))
	}

	path = filepath.Join(dir, collab.SanitizeForFilename(filepath.Base(filename)))
	if err := collab.WriteFileAtomic(path, data); err != nil {
		os.RemoveAll(dir)
		return "", "", errors.WrapIO("stage upload", err)
	}
	return dir, path, nil
}

// swapUpload makes dir the current staging directory and removes the old one.
func (h *Handlers) swapUpload(dir string) {
	h.mu.Lock()
	old := h.upload
	h.upload = dir
	h.mu.Unlock()

	if old != "" && old != dir {
		if err := os.RemoveAll(old); err != nil {
			log.Printf("remove staged upload %s: %v", old, err)
		}
	}
}

// parseSettings overlays the submitted form fields on current.
// The compress checkbox is only read when the form says it carries one.
func parseSettings(r *http.Request, current session.Settings) (session.Settings, error) {
	s := current
	if v := r.FormValue("quality"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, errors.NewInvalidArgument("quality must be a number")
		}
		s.Quality = q
	}
	if v := r.FormValue("max_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, errors.NewInvalidArgument("max_size must be an integer")
		}
		s.MaxSize = n
	}
	if v := r.FormValue("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, errors.NewInvalidArgument("chunk_size must be an integer")
		}
		s.ChunkSize = n
	}
	if r.FormValue("has_compress") == "true" {
		c := r.FormValue("compress")
		s.Compress = c == "on" || c == "true" || c == "1"
	}
	return s, s.Validate()
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// shortID truncates an asset ID for titles.
func shortID(id string) string {
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
