// Package pathutil provides shared path helpers for sources, scripts and reports.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths, null bytes and ".." segments.
// Segments are checked before cleaning so "data/../../etc/passwd" is caught.
func ValidateFilePath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsRune(filePath, 0) {
		return fmt.Errorf("file path contains invalid characters")
	}
	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// FormatFromExtension maps a file extension to a data format name.
// ".xlsx" and ".xlsm" are "xlsx", ".db" and ".sqlite3" are "sqlite"; other
// extensions are returned lowercased without the dot.
func FormatFromExtension(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	switch ext {
	case "xlsm":
		return "xlsx"
	case "db", "sqlite3":
		return "sqlite"
	default:
		return ext
	}
}

// EnsureDir creates the parent directory of filePath if it does not exist.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
