package collab

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/errors"
)

// maxNameAttempts bounds the "-1", "-2", ... suffixes tried on collision.
const maxNameAttempts = 100

// DirWriter writes decoded files into a single output directory.
type DirWriter struct {
	Dir string
}

// Write implements FileWriter. name is reduced to a single safe path
// component; if a file of that name exists a numeric suffix is added.
func (w DirWriter) Write(ctx context.Context, name, base64Payload string) (string, error) {
	data, err := datauri.DecodePayload(base64Payload)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := w.ensureDir(); err != nil {
		return "", err
	}

	name = SanitizeForFilename(filepath.Base(name))
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(w.Dir, candidate)
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		if err := WriteFileAtomic(path, data); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, w.Dir)
}

func (w DirWriter) ensureDir() error {
	if strings.TrimSpace(w.Dir) == "" {
		return errors.NewInvalidArgument("output directory is not configured")
	}
	if err := os.MkdirAll(w.Dir, 0700); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if info, err := os.Lstat(w.Dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidArgument("output directory must not be a symlink")
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path, syncs it, and
// renames it into place so a failed write never leaves a partial file.
func WriteFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp file name: %w", err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidArgument("destination is a symlink: " + path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidArgument("destination already exists; choose a new path")
			}
		}
		return fmt.Errorf("finalize %s: %w", path, err)
	}

	success = true
	return nil
}
