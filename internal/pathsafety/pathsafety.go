// Package pathsafety validates that a configured log path is a real
// absolute path with no traversal tricks before the daemon ever opens it.
//
// Adapted from the wireguard panel's api/internal/helper.ValidateLogFilePath,
// generalized: that version pinned the allow-list to /var/log, /home and
// /var/lib/docker for a fixed deployment; sentryd observers can legitimately
// watch application logs anywhere on disk, so the allow-list is a
// configurable option rather than a constant, and callers that don't need
// one can pass nil to skip it.
package pathsafety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateLogFilePath checks that path is non-empty, absolute, free of ".."
// traversal segments, and — if allowedDirs is non-empty — rooted under one
// of allowedDirs. A nil/empty allowedDirs skips the allow-list check.
func ValidateLogFilePath(path string, allowedDirs []string) error {
	if path == "" {
		return fmt.Errorf("log file path is required")
	}

	clean := filepath.Clean(path)

	if !filepath.IsAbs(clean) {
		return fmt.Errorf("log file path %q must be absolute", path)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("log file path %q must not contain path traversal segments", path)
	}

	if len(allowedDirs) == 0 {
		return nil
	}

	for _, dir := range allowedDirs {
		if clean == dir || strings.HasPrefix(clean, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("log file path %q is not under any of %v", path, allowedDirs)
}
