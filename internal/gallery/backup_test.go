package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/errors"
)

func seedStore(t *testing.T, s *Store, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.SaveAsset(context.Background(), collab.Asset{MimeType: "image/png", Data: pngBytes(t, i+1, 2)})
		if err != nil {
			t.Fatalf("SaveAsset: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestBackup_HeaderAndRecords(t *testing.T) {
	s := newTestStore(t)
	ids := seedStore(t, s, 3)
	if err := s.Delete(context.Background(), ids[2]); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := s.Backup(context.Background(), &buf, false)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(lines))
	}
	var header BackupRecord
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatal(err)
	}
	if !header.FragBackup || header.SchemaVersion != BackupSchemaVersion || header.ExportedAt == 0 {
		t.Errorf("bad header: %+v", header)
	}

	buf.Reset()
	n, err = s.Backup(context.Background(), &buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count with deleted = %d, want 3", n)
	}
}

func TestBackup_Cancelled(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Backup(ctx, &bytes.Buffer{}, false)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRestore_IntoEmptyStore(t *testing.T) {
	src := newTestStore(t)
	ids := seedStore(t, src, 2)
	if err := src.Delete(context.Background(), ids[1]); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := src.Backup(context.Background(), &buf, true); err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t)
	res, err := dst.Restore(context.Background(), &buf, RestoreModeError)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.Imported != 2 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}

	a, err := dst.Get(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Get restored: %v", err)
	}
	if a.Width != 1 || a.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 1x2", a.Width, a.Height)
	}
	if _, err := dst.Get(context.Background(), ids[1]); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("deleted asset should stay deleted, got %v", err)
	}
}

func TestRestore_Modes(t *testing.T) {
	s := newTestStore(t)
	ids := seedStore(t, s, 2)
	var buf bytes.Buffer
	if _, err := s.Backup(context.Background(), &buf, false); err != nil {
		t.Fatal(err)
	}
	backup := buf.String()

	t.Run("error mode aborts on collision", func(t *testing.T) {
		res, err := s.Restore(context.Background(), strings.NewReader(backup), RestoreModeError)
		if err != nil {
			t.Fatal(err)
		}
		if res.Imported != 0 || len(res.Errors) != 1 || res.Errors[0].Code != "ID_COLLISION" {
			t.Fatalf("result = %+v", res)
		}
		if got := res.Errors[0]; got.Line != 2 || (got.ID != ids[0] && got.ID != ids[1]) {
			t.Errorf("collision reported at line %d id %s", got.Line, got.ID)
		}
	})

	t.Run("replace overwrites", func(t *testing.T) {
		if err := s.Delete(context.Background(), ids[0]); err != nil {
			t.Fatal(err)
		}
		res, err := s.Restore(context.Background(), strings.NewReader(backup), RestoreModeReplace)
		if err != nil {
			t.Fatal(err)
		}
		if res.Imported != 2 {
			t.Fatalf("result = %+v", res)
		}
		if _, err := s.Get(context.Background(), ids[0]); err != nil {
			t.Errorf("replaced asset should be live again: %v", err)
		}
	})

	t.Run("rename assigns new ids", func(t *testing.T) {
		res, err := s.Restore(context.Background(), strings.NewReader(backup), RestoreModeRename)
		if err != nil {
			t.Fatal(err)
		}
		if res.Imported != 2 {
			t.Fatalf("result = %+v", res)
		}
		_, page, err := s.List(context.Background(), 10, 0, false)
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 4 {
			t.Errorf("total = %d, want 4", page.Total)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := s.Restore(context.Background(), strings.NewReader(backup), "merge")
		if !errors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("expected INVALID_ARGUMENT, got %v", err)
		}
	})
}

func TestRestore_BadLines(t *testing.T) {
	good := AssetToBackupRecord(&Asset{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", MimeType: "image/png", Data: []byte("x"), CreatedAt: 1})
	goodLine, _ := json.Marshal(good)
	tampered := *good
	tampered.ID = "01HYYYYYYYYYYYYYYYYYYYYYYY"
	tampered.Digest = DigestBytes([]byte("y"))
	tamperedLine, _ := json.Marshal(tampered)

	input := strings.Join([]string{
		`{"_frag_backup":true,"schema_version":"1.0","exported_at":1}`,
		`not json`,
		`{"mime_type":"image/png"}`,
		string(tamperedLine),
		"",
		string(goodLine),
	}, "\n")

	t.Run("error mode writes nothing", func(t *testing.T) {
		s := newTestStore(t)
		res, err := s.Restore(context.Background(), strings.NewReader(input), RestoreModeError)
		if err != nil {
			t.Fatal(err)
		}
		if res.Imported != 0 || len(res.Errors) != 3 {
			t.Fatalf("result = %+v", res)
		}
		want := []struct {
			line int
			code string
		}{{2, "PARSE_ERROR"}, {3, "INVALID_RECORD"}, {4, string(errors.ErrIntegrityMismatch)}}
		for i, w := range want {
			if res.Errors[i].Line != w.line || res.Errors[i].Code != w.code {
				t.Errorf("error %d = line %d %s, want line %d %s", i, res.Errors[i].Line, res.Errors[i].Code, w.line, w.code)
			}
		}
		if ok, _ := Exists(context.Background(), s.DB, good.ID); ok {
			t.Error("error mode must not write on parse errors")
		}
	})

	t.Run("rename mode skips bad lines", func(t *testing.T) {
		s := newTestStore(t)
		res, err := s.Restore(context.Background(), strings.NewReader(input), RestoreModeRename)
		if err != nil {
			t.Fatal(err)
		}
		if res.Imported != 1 || res.Skipped != 3 {
			t.Fatalf("result = %+v", res)
		}
		a, err := s.Get(context.Background(), good.ID)
		if err != nil {
			t.Fatal(err)
		}
		if a.ByteSize != 1 || a.Digest != DigestBytes([]byte("x")) {
			t.Errorf("derived fields not recomputed: %+v", a.ToSummary())
		}
	})
}
