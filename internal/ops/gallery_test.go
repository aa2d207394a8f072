package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
)

func TestGalleryShow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	data := pngBytes(t, 4, 4)
	id, err := store.SaveAsset(ctx, collab.Asset{MimeType: "image/png", Data: data})
	if err != nil {
		t.Fatal(err)
	}

	out, err := GalleryShow(ctx, store, GalleryShowInput{ID: id})
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != id || out.DataURI != "" || out.Width != 4 {
		t.Errorf("out = %+v", out)
	}

	out, err = GalleryShow(ctx, store, GalleryShowInput{ID: id, IncludeData: true, ChunkSize: 30})
	if err != nil {
		t.Fatal(err)
	}
	if out.DataURI == "" || out.DataDigest != fragment.Digest(out.DataURI) {
		t.Error("data URI or digest missing")
	}
	if len(out.Fragments) != fragment.Count(len(out.DataURI), 30) {
		t.Errorf("fragments = %d", len(out.Fragments))
	}
}

func TestGalleryExport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := config.DefaultConfig()
	outDir := t.TempDir()
	data := pngBytes(t, 2, 2)
	id, err := store.SaveAsset(ctx, collab.Asset{MimeType: "image/png", Data: data})
	if err != nil {
		t.Fatal(err)
	}

	out, err := GalleryExport(ctx, store, cfg, outDir, GalleryExportInput{ID: id})
	if err != nil {
		t.Fatalf("GalleryExport: %v", err)
	}
	if out.Path != filepath.Join(outDir, "asset_"+id+".png") {
		t.Errorf("Path = %q", out.Path)
	}
	if out.DetectedType != "image/png" {
		t.Errorf("DetectedType = %q", out.DetectedType)
	}
	got, err := os.ReadFile(out.Path)
	if err != nil || string(got) != string(data) {
		t.Errorf("exported bytes differ: %v", err)
	}

	// Same default path again: refuse to overwrite.
	if _, err := GalleryExport(ctx, store, cfg, outDir, GalleryExportInput{ID: id}); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument on existing file, got %v", err)
	}

	// Outside the output directory.
	other := filepath.Join(t.TempDir(), "x.png")
	if _, err := GalleryExport(ctx, store, cfg, outDir, GalleryExportInput{ID: id, Path: other}); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument outside output dir, got %v", err)
	}

	if _, err := GalleryExport(ctx, store, cfg, outDir, GalleryExportInput{ID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGalleryPurgeMessage(t *testing.T) {
	if got := formatPurgeMessage(0, nil); got != "No deleted assets to purge" {
		t.Errorf("got %q", got)
	}
	if got := formatPurgeMessage(2, intPtr(7)); got != "Permanently deleted 2 assets (deleted more than 7 days ago)" {
		t.Errorf("got %q", got)
	}
}
