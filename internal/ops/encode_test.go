package ops

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/session"
)

func newTestWorkbench() *session.Workbench {
	return session.New(session.DefaultSettings(), &collab.JPEGProcessor{}, collab.FSReader{})
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncode_ImageAuto(t *testing.T) {
	path := writeTestPNG(t, 1200, 600)
	wb := newTestWorkbench()

	out, err := Encode(context.Background(), wb, collab.PathPicker{Path: path}, EncodeInput{IncludeDataURI: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	snap := out.Snapshot
	if out.Cancelled || snap == nil {
		t.Fatalf("out = %+v", out)
	}
	if snap.Kind != session.KindImage || snap.MimeType != "image/jpeg" {
		t.Errorf("kind=%s mime=%s", snap.Kind, snap.MimeType)
	}
	if snap.Descriptor.Width != 512 || snap.Descriptor.Height != 256 {
		t.Errorf("descriptor = %+v, want 512x256", snap.Descriptor)
	}
	if snap.Original == nil || snap.Original.Width != 1200 || snap.Original.Height != 600 {
		t.Errorf("original = %+v", snap.Original)
	}
	if !datauri.IsImage(snap.DataURI) || snap.Length != len(snap.DataURI) {
		t.Error("data URI missing or wrong length")
	}
	if snap.FragmentCount != fragment.Count(snap.Length, session.DefaultSettings().ChunkSize) {
		t.Errorf("FragmentCount = %d", snap.FragmentCount)
	}
	if snap.Size == "" || snap.OriginalSize == "" {
		t.Error("formatted sizes missing")
	}
}

func TestEncode_ExtremeAspectRatio(t *testing.T) {
	path := writeTestPNG(t, 2000, 1)

	out, err := Encode(context.Background(), newTestWorkbench(), collab.PathPicker{Path: path}, EncodeInput{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if d := out.Snapshot.Descriptor; d.Width != 512 || d.Height != 1 {
		t.Errorf("descriptor = %dx%d, want 512x1", d.Width, d.Height)
	}
}

func TestEncode_AutoUndecodableImageIsFile(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"/>`
	path := filepath.Join(t.TempDir(), "icon.svg")
	if err := os.WriteFile(path, []byte(svg), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := Encode(context.Background(), newTestWorkbench(), collab.PathPicker{Path: path}, EncodeInput{IncludeDataURI: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	snap := out.Snapshot
	if snap.Kind != session.KindFile || snap.MimeType != "image/svg+xml" {
		t.Errorf("kind=%s mime=%s, want file image/svg+xml", snap.Kind, snap.MimeType)
	}
	if snap.Original != nil {
		t.Error("undecodable image has an original descriptor")
	}
	_, raw, err := datauri.Decode(snap.DataURI)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != svg {
		t.Errorf("payload = %q", raw)
	}
}

func TestEncode_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text notes\n"), 0600); err != nil {
		t.Fatal(err)
	}
	settings := session.DefaultSettings()
	settings.ChunkSize = 10

	out, err := Encode(context.Background(), newTestWorkbench(), collab.PathPicker{Path: path},
		EncodeInput{Kind: KindFile, Settings: &settings})
	if err != nil {
		t.Fatal(err)
	}
	snap := out.Snapshot
	if snap.Kind != session.KindFile || snap.MimeType != "text/plain" || snap.Name != "notes.txt" {
		t.Errorf("snap = %+v", snap)
	}
	if snap.DataURI != "" {
		t.Error("data URI included without IncludeDataURI")
	}
	if snap.Original != nil {
		t.Error("file has an original descriptor")
	}
	if snap.FragmentCount != len(snap.Fragments) || snap.Fragments[0].Length != 10 {
		t.Errorf("fragments = %+v", snap.Fragments)
	}
}

func TestEncode_Cancelled(t *testing.T) {
	out, err := Encode(context.Background(), newTestWorkbench(), collab.PathPicker{}, EncodeInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Cancelled || out.Snapshot != nil {
		t.Errorf("out = %+v", out)
	}
}

func TestEncode_ImageKindRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("words"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Encode(context.Background(), newTestWorkbench(), collab.PathPicker{Path: path}, EncodeInput{Kind: KindImage})
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEncode_BadInput(t *testing.T) {
	wb := newTestWorkbench()
	if _, err := Encode(context.Background(), wb, collab.PathPicker{}, EncodeInput{Kind: "video"}); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("bad kind: %v", err)
	}
	bad := session.Settings{ChunkSize: 0}
	if _, err := Encode(context.Background(), wb, collab.PathPicker{}, EncodeInput{Settings: &bad}); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("bad settings: %v", err)
	}
}

func TestEncode_MissingFile(t *testing.T) {
	_, err := Encode(context.Background(), newTestWorkbench(),
		collab.PathPicker{Path: filepath.Join(t.TempDir(), "gone.png")}, EncodeInput{})
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}
