// Package validation provides input validation functions for security-critical operations.
// These functions guard against path traversal and malformed repository names.
package validation

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Image name validation per the Docker reference grammar for a single path component:
// - Lowercase letters, digits, and separators (., _, -)
// - Separators must not be adjacent and cannot start/end the name
var imageNameRegex = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*$`)

// Repository name validation per the Docker reference grammar, allowing nested paths like "myorg/myapp".
var repoNameRegex = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)

// MaxRepositoryNameLength is the maximum allowed length for repository names.
const MaxRepositoryNameLength = 256

// ValidateImageName validates a single repository path component, such as a
// target name used both as a directory and as the last part of a repository.
func ValidateImageName(name string) error {
	if name == "" {
		return fmt.Errorf("image name cannot be empty")
	}

	if len(name) > MaxRepositoryNameLength {
		return fmt.Errorf("image name too long: %d chars (max %d)", len(name), MaxRepositoryNameLength)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("image name contains path traversal sequence")
	}

	if !imageNameRegex.MatchString(name) {
		return fmt.Errorf("invalid image name format: must contain only lowercase letters, digits, and separators (., _, -)")
	}

	return nil
}

// ValidateRepositoryName validates a Docker repository name.
// Returns an error if the name is invalid or could enable path traversal.
func ValidateRepositoryName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}

	if len(name) > MaxRepositoryNameLength {
		return fmt.Errorf("repository name too long: %d chars (max %d)", len(name), MaxRepositoryNameLength)
	}

	// Check for path traversal attempts
	if strings.Contains(name, "..") {
		return fmt.Errorf("repository name contains path traversal sequence")
	}

	if !repoNameRegex.MatchString(name) {
		return fmt.Errorf("invalid repository name format: must contain only lowercase letters, digits, and separators (., _, -)")
	}

	return nil
}

// ValidatePath sanitizes and validates a slash-separated relative path.
// Returns the cleaned path or an error if the path is unsafe.
func ValidatePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed")
	}

	cleanPath := path.Clean(p)

	if cleanPath == ".." || strings.HasPrefix(cleanPath, "../") {
		return "", fmt.Errorf("path traversal not allowed")
	}

	return cleanPath, nil
}

// ValidatePathWithinRoot validates that a constructed path stays within the root directory.
// This provides defense-in-depth after filepath.Join operations.
func ValidatePathWithinRoot(rootDir, fullPath string) error {
	cleanRoot := filepath.Clean(rootDir)
	cleanPath := filepath.Clean(fullPath)

	if cleanRoot == "." {
		if filepath.IsAbs(cleanPath) || cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path escapes root directory")
		}
		return nil
	}

	// Ensure the path starts with the root directory
	if !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) && cleanPath != cleanRoot {
		return fmt.Errorf("path escapes root directory")
	}

	return nil
}
