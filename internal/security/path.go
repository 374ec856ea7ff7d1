package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines file access to the configured working directory.
type PathValidator struct {
	workDirectory string
}

// NewPathValidator creates a validator rooted at the given directory. The
// directory is not required to exist yet; validation is skipped until it does.
func NewPathValidator(workDirectory string) (*PathValidator, error) {
	if workDirectory == "" {
		return nil, fmt.Errorf("work directory cannot be empty")
	}

	return &PathValidator{workDirectory: workDirectory}, nil
}

// WorkDirectory returns the directory paths are confined to.
func (v *PathValidator) WorkDirectory() string {
	return v.workDirectory
}

// ValidatePath checks that a path resolves inside the work directory.
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// If the work directory does not exist yet, skip validation
	if _, err := os.Stat(v.workDirectory); os.IsNotExist(err) {
		return nil
	}

	within, err := v.isWithinWorkDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside the working directory: %s", path)
	}

	return nil
}

// NormalizePath resolves a path to an absolute path inside the work
// directory. Relative paths are taken relative to the work directory.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.workDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}

	return absPath, nil
}

func (v *PathValidator) isWithinWorkDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	absDir, err := filepath.Abs(v.workDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve work directory: %w", err)
	}

	// Symlinked paths are compared against the real directory as well, so
	// a link escaping the directory does not slip through
	realPath := filepath.Clean(absPath)
	if info, lerr := os.Lstat(realPath); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, rerr := filepath.EvalSymlinks(realPath); rerr == nil {
			realPath = resolved
		}
	}

	realDir := filepath.Clean(absDir)
	if resolved, rerr := filepath.EvalSymlinks(realDir); rerr == nil {
		realDir = resolved
	}

	return containsPath(filepath.Clean(absDir), filepath.Clean(absPath)) &&
		containsPath(realDir, realPath), nil
}

// containsPath reports whether path equals dir or sits below it.
func containsPath(dir, path string) bool {
	if path == dir {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
