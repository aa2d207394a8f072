package collab

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/frag/internal/errors"
)

func TestDirWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "files")
	w := DirWriter{Dir: dir}

	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 hello"))
	path, err := w.Write(context.Background(), "file_1700000000000.pdf", payload)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != filepath.Join(dir, "file_1700000000000.pdf") {
		t.Errorf("path = %q", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "%PDF-1.4 hello" {
		t.Errorf("content = %q", got)
	}
}

func TestDirWriter_CollisionGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	w := DirWriter{Dir: dir}
	payload := base64.StdEncoding.EncodeToString([]byte("x"))

	first, err := w.Write(context.Background(), "a.txt", payload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Write(context.Background(), "a.txt", payload)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("expected distinct paths, both %q", first)
	}
	if filepath.Base(second) != "a-1.txt" {
		t.Errorf("second = %q, want a-1.txt", filepath.Base(second))
	}
}

func TestDirWriter_NameStaysInDir(t *testing.T) {
	dir := t.TempDir()
	w := DirWriter{Dir: dir}
	payload := base64.StdEncoding.EncodeToString([]byte("x"))

	path, err := w.Write(context.Background(), "../../escape.txt", payload)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file escaped output dir: %q", path)
	}
}

func TestDirWriter_BadPayload(t *testing.T) {
	w := DirWriter{Dir: t.TempDir()}
	_, err := w.Write(context.Background(), "a.bin", "%%%")
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestDirWriter_NoDir(t *testing.T) {
	w := DirWriter{}
	_, err := w.Write(context.Background(), "a.bin", "eA==")
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestWriteFileAtomic_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	if err := WriteFileAtomic(path, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [out.bin]", names)
	}
}
