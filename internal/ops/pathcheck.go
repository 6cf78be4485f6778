package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/errors"
)

// PathCheckMode selects the rule a path is checked against.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // drop seed import
	PathCheckWrite                      // document export
)

// pathRule is what a file path must satisfy for one mode.
type pathRule struct {
	kind       string   // used in error messages
	extensions []string // lower-case, with dot
	mustExist  bool
}

var pathRules = map[PathCheckMode]pathRule{
	PathCheckRead:  {kind: "seed file", extensions: []string{".yaml", ".yml"}, mustExist: true},
	PathCheckWrite: {kind: "export file", extensions: []string{".md"}},
}

// ValidatePath checks a user-supplied import or export path.
//
// The file must sit directly inside ~/.wisdom/exports or one of the
// configured allowed_paths, unless allow_unsafe_paths is set. Symlinks are
// refused in every mode, matching the O_NOFOLLOW used at open time.
// Nested directories are refused so no intermediate component can be swapped
// between this check and the open.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	rule, ok := pathRules[mode]
	if !ok {
		return errors.NewInternal(fmt.Errorf("unknown path check mode %d", mode))
	}
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if ext := strings.ToLower(filepath.Ext(abs)); !slices.Contains(rule.extensions, ext) {
		return errors.NewInvalidRequest(fmt.Sprintf("%s must end in one of %s", rule.kind, strings.Join(rule.extensions, ", ")))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkLocation(abs, cfg); err != nil {
			return err
		}
	}

	return checkTarget(path, abs, rule)
}

// checkLocation requires abs to be a direct child of an allowed directory
// that is not itself reached through a symlink.
func checkLocation(abs string, cfg *config.Config) error {
	dirs, err := allowedDirs(cfg)
	if err != nil {
		return err
	}

	parent := filepath.Dir(abs)
	if !slices.Contains(dirs, parent) {
		return errors.NewInvalidRequest(fmt.Sprintf("file must be directly in one of %v", dirs))
	}
	if isSymlink(parent) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// checkTarget applies the rule to the file itself.
func checkTarget(path, abs string, rule pathRule) error {
	info, err := os.Lstat(abs)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return errors.NewInvalidRequest("path must not be a symlink")
	case os.IsNotExist(err) && rule.mustExist:
		return errors.NewNotFound(rule.kind, path)
	}
	return nil
}

// allowedDirs returns ~/.wisdom/exports plus the absolute allowed_paths,
// cleaned and with symlinked entries resolved to their targets.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	for i, d := range dirs {
		if !isSymlink(d) {
			continue
		}
		resolved, err := filepath.EvalSymlinks(d)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
		}
		dirs[i] = resolved
	}
	return dirs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir returns ~/.wisdom/exports.
func DefaultExportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".wisdom", "exports"), nil
}

// containsTraversal reports whether any component of path is "..".
// Forward slashes count as separators on every platform.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
