package ops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/gallery"
)

// GalleryBackupInput contains parameters for the GalleryBackup operation.
type GalleryBackupInput struct {
	// Path is optional; default: <output dir>/gallery-<timestamp>.jsonl.
	Path           string
	IncludeDeleted bool
}

// GalleryBackupOutput contains the result of the GalleryBackup operation.
type GalleryBackupOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// GalleryBackup writes every asset to a JSONL file that GalleryRestore can
// read back. The file is replaced atomically.
func GalleryBackup(ctx context.Context, store *gallery.Store, cfg *config.Config, outputDir string, input GalleryBackupInput) (*GalleryBackupOutput, error) {
	now := time.Now()
	path := input.Path
	if path == "" {
		if err := os.MkdirAll(outputDir, 0700); err != nil {
			return nil, errors.WrapIO("create output directory", err)
		}
		path = filepath.Join(outputDir, "gallery-"+now.Format("2006-01-02T150405")+".jsonl")
	}
	if err := collab.ValidateExportPath(path, outputDir, cfg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	count, err := store.Backup(ctx, &buf, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if err := collab.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return nil, errors.WrapIO("write backup", err)
	}

	return &GalleryBackupOutput{Path: path, Count: count, ExportedAt: now.Unix()}, nil
}

// GalleryRestoreInput contains parameters for the GalleryRestore operation.
type GalleryRestoreInput struct {
	Path string
	Mode gallery.RestoreMode // default: error
}

// GalleryRestoreOutput contains the result of the GalleryRestore operation.
type GalleryRestoreOutput struct {
	gallery.RestoreResult
	Message string `json:"message"`
}

// GalleryRestore loads a backup written by GalleryBackup.
func GalleryRestore(ctx context.Context, store *gallery.Store, input GalleryRestoreInput) (*GalleryRestoreOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidArgument("path is required")
	}

	f, err := os.Open(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(input.Path)
		}
		return nil, errors.WrapIO("open backup", err)
	}
	defer f.Close()

	res, err := store.Restore(ctx, f, input.Mode)
	if err != nil {
		return nil, err
	}
	return &GalleryRestoreOutput{RestoreResult: *res, Message: formatRestoreMessage(res)}, nil
}

func formatRestoreMessage(res *gallery.RestoreResult) string {
	msg := "Restored " + plural(res.Imported, "asset")
	if n := len(res.Errors); n > 0 {
		msg += fmt.Sprintf(", %s", plural(n, "error"))
	}
	return msg
}
