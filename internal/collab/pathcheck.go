package collab

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
)

// ValidateExportPath checks a user-supplied destination for a gallery export:
//  1. no ".." components
//  2. the file sits directly in outputDir or one of cfg.AllowedPaths
//     (no subdirectories), unless cfg.AllowUnsafePaths is set
//  3. neither the parent directory nor the file itself is a symlink
//
// Keeping files directly in an allowed directory leaves no intermediate
// component to swap for a symlink between this check and the open.
func ValidateExportPath(path, outputDir string, cfg *config.Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidArgument("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidArgument("path must not contain directory traversal (..)")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidArgument(fmt.Sprintf("invalid path: %v", err))
	}
	parentDir := filepath.Dir(absPath)

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(outputDir, cfg)
		if err != nil {
			return err
		}
		if !isDirectlyIn(parentDir, allowed) {
			return errors.NewInvalidArgument(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
		}
		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidArgument("parent directory must not be a symlink")
		}
	}

	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidArgument("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns outputDir plus absolute cfg.AllowedPaths, with symlinked
// entries resolved so they compare against real paths.
func allowedDirs(outputDir string, cfg *config.Config) ([]string, error) {
	dirs := []string{outputDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidArgument(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidArgument(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

func isDirectlyIn(parentDir string, dirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range dirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal reports whether any path component is "..", splitting on
// both the OS separator and '/'.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	for _, part := range strings.FieldsFunc(path, split) {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeForFilename makes s safe to use as a single path component:
// separators and ".." become dashes, control characters are dropped and
// runs of dashes collapse. An empty result becomes "unnamed".
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		s = "unnamed"
	}
	return s
}
