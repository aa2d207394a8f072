package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/gallery"
	"github.com/hpungsan/frag/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed help.md
var helpMarkdown string

// uploadsDir holds files picked through the browser, under the base dir.
const uploadsDir = "uploads"

// NewServer creates and configures the HTTP server for the Frag web UI.
func NewServer(store *gallery.Store, cfg *config.Config, baseDir, version, bind string, port int) *http.Server {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	var clip collab.Clipboard = &collab.MemoryClipboard{}
	if sys := (collab.SystemClipboard{}); sys.Available() {
		clip = sys
	} else {
		log.Printf("no system clipboard found; copies are kept in memory")
	}

	h := &Handlers{
		store:     store,
		cfg:       cfg,
		renderer:  NewRenderer(templateSub, version),
		workbench: newWorkbench(cfg),
		clipboard: clip,
		outputDir: cfg.ResolveOutputDir(baseDir),
		uploadDir: filepath.Join(baseDir, uploadsDir),
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(routes(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newWorkbench(cfg *config.Config) *session.Workbench {
	return session.New(session.SettingsFromConfig(cfg),
		&collab.JPEGProcessor{MaxBytes: cfg.MaxInputBytes},
		collab.FSReader{MaxBytes: cfg.MaxInputBytes})
}

func routes(h *Handlers, staticSub fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/workbench", http.StatusFound)
	})
	mux.HandleFunc("GET /workbench", h.HandleWorkbench)
	mux.HandleFunc("POST /workbench/upload", h.HandleUpload)
	mux.HandleFunc("POST /workbench/settings", h.HandleSettings)
	mux.HandleFunc("POST /workbench/clear", h.HandleClear)
	mux.HandleFunc("POST /workbench/copy", h.HandleCopy)
	mux.HandleFunc("GET /workbench/fragments/{index}", h.HandleFragment)
	mux.HandleFunc("GET /decode", h.HandleDecodeForm)
	mux.HandleFunc("POST /decode", h.HandleDecode)
	mux.HandleFunc("GET /gallery", h.HandleGallery)
	mux.HandleFunc("GET /gallery/{id}", h.HandleAsset)
	mux.HandleFunc("GET /gallery/{id}/raw", h.HandleAssetRaw)
	mux.HandleFunc("POST /gallery/{id}/export", h.HandleExport)
	mux.HandleFunc("DELETE /gallery/{id}", h.HandleDelete)
	mux.HandleFunc("POST /gallery/purge", h.HandlePurge)
	mux.HandleFunc("GET /help", h.HandleHelp)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
// Inline data: images are allowed for decode previews.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("Frag UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
