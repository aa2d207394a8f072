package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Default settings, matching the presets the UI starts on.
const (
	DefaultQuality       = 0.7
	DefaultMaxSize       = 512
	DefaultChunkSize     = 20000
	DefaultMaxInputBytes = 64 << 20
)

// Config holds application configuration.
type Config struct {
	// Quality is the JPEG quality factor in (0, 1] used when compression is on.
	Quality float64 `json:"quality,omitempty"`

	// MaxSize is the maximum long-edge pixel dimension of a compressed image.
	MaxSize int `json:"max_size,omitempty"`

	// ChunkSize is the fragment length in characters.
	ChunkSize int `json:"chunk_size,omitempty"`

	// DisableCompression turns off resizing; images are still re-encoded as
	// JPEG at their original dimensions.
	DisableCompression bool `json:"disable_compression,omitempty"`

	// OutputDir is where decoded non-image files are written.
	// Empty means ~/.frag/files.
	OutputDir string `json:"output_dir,omitempty"`

	// AllowedPaths is an allowlist of directories for gallery export.
	// Paths outside the output directory require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// MaxInputBytes caps source files and pasted data URIs.
	MaxInputBytes int64 `json:"max_input_bytes,omitempty"`

	// DBMaxOpenConns limits the maximum number of open gallery database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle gallery database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "datauri", "gallery". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Quality:       DefaultQuality,
		MaxSize:       DefaultMaxSize,
		ChunkSize:     DefaultChunkSize,
		MaxInputBytes: DefaultMaxInputBytes,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.frag.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.frag) and repo (.frag) directories.
// Repo config is found by walking upward from startDir to find the nearest .frag/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .frag/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".frag", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Quality = overlay.Quality
	if result.Quality == 0 {
		result.Quality = base.Quality
	}

	result.MaxSize = overlay.MaxSize
	if result.MaxSize == 0 {
		result.MaxSize = base.MaxSize
	}

	result.ChunkSize = overlay.ChunkSize
	if result.ChunkSize == 0 {
		result.ChunkSize = base.ChunkSize
	}

	result.OutputDir = overlay.OutputDir
	if result.OutputDir == "" {
		result.OutputDir = base.OutputDir
	}

	result.MaxInputBytes = overlay.MaxInputBytes
	if result.MaxInputBytes == 0 {
		result.MaxInputBytes = base.MaxInputBytes
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.DisableCompression = base.DisableCompression || overlay.DisableCompression
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// ResolveOutputDir returns OutputDir, or baseDir/files when unset.
func (c *Config) ResolveOutputDir(baseDir string) string {
	if c != nil && strings.TrimSpace(c.OutputDir) != "" {
		return filepath.Clean(c.OutputDir)
	}
	return filepath.Join(baseDir, "files")
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
