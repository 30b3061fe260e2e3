package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths and paths with parent-directory
// segments. Absolute paths are allowed.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}

	for _, segment := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if segment == ".." {
			return fmt.Errorf("path contains directory traversal: %s", path)
		}
	}

	return nil
}

// ValidateConfigPath validates a configuration file path. Only JSON files
// are accepted.
func ValidateConfigPath(path string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return fmt.Errorf("config file must be a .json file: %s", path)
	}

	return nil
}
