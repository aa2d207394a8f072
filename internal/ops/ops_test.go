package ops

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/gallery"
)

type recordingGallery struct {
	assets []collab.Asset
	err    error
}

func (g *recordingGallery) SaveAsset(ctx context.Context, a collab.Asset) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.assets = append(g.assets, a)
	return fmt.Sprintf("asset-%d", len(g.assets)), nil
}

type recordingFiles struct {
	names    []string
	payloads []string
	err      error
}

func (f *recordingFiles) Write(ctx context.Context, name, payload string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	f.payloads = append(f.payloads, payload)
	return "/out/" + name, nil
}

type failingClipboard struct{}

func (failingClipboard) SetString(string) error { return fmt.Errorf("no clipboard utility") }

func newTestStore(t *testing.T) *gallery.Store {
	t.Helper()
	db, err := gallery.Init(t.TempDir())
	if err != nil {
		t.Fatalf("gallery.Init: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return gallery.NewStore(db)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func intPtr(i int) *int {
	return &i
}

func TestResolveText(t *testing.T) {
	got, err := resolveText("", []string{"data:", "text/plain;base64,", "aGk="})
	if err != nil || got != "data:text/plain;base64,aGk=" {
		t.Errorf("resolveText = %q, %v", got, err)
	}
	if _, err := resolveText("x", []string{"y"}); err == nil {
		t.Error("expected error when both text and fragments are given")
	}
}

func TestPlural(t *testing.T) {
	if plural(1, "asset") != "1 asset" || plural(3, "asset") != "3 assets" {
		t.Error("plural")
	}
}
