package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultContentMaxChars is the default limit on a drop's content, in characters.
const DefaultContentMaxChars = 20000

// Config holds application configuration.
type Config struct {
	// ContentMaxChars is the maximum character count for a drop's content
	ContentMaxChars int `json:"content_max_chars"`

	// AllowedPaths lists extra absolute directories for import and download files.
	// ~/.wisdom/exports is always allowed.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables the directory restriction (symlink checks still apply)
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "drop", "layers", "attribution".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "json" (default) or "console"
	LogFormat string `json:"log_format,omitempty"`

	// HTTPBind is the interface the HTTP server listens on
	HTTPBind string `json:"http_bind,omitempty"`

	// HTTPPort is the port the HTTP server listens on
	HTTPPort int `json:"http_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContentMaxChars: DefaultContentMaxChars,
		LogLevel:        "info",
		LogFormat:       "json",
		HTTPBind:        "127.0.0.1",
		HTTPPort:        8484,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.wisdom) and repo (.wisdom) directories.
// Repo config is found by walking upward from startDir to find the nearest .wisdom/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
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

// FindRepoConfig walks upward from startDir to find the nearest .wisdom/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".wisdom", "config.json")
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

// loadFileRaw returns zero-valued config (not defaults) if the file doesn't exist.
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

// loadFile returns default config if the file doesn't exist.
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
	return &Config{
		ContentMaxChars:  firstNonZero(overlay.ContentMaxChars, base.ContentMaxChars),
		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,
		AllowedPaths:     mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DBMaxOpenConns:   firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:   firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		HTTPPort:         firstNonZero(overlay.HTTPPort, base.HTTPPort),
		LogLevel:         firstNonEmpty(overlay.LogLevel, base.LogLevel),
		LogFormat:        firstNonEmpty(overlay.LogFormat, base.LogFormat),
		HTTPBind:         firstNonEmpty(overlay.HTTPBind, base.HTTPBind),
		DisabledTools:    mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes:    mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
	}
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
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
