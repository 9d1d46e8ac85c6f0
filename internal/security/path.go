package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal = errors.New("path escapes output directory")
	ErrEmptyRoot     = errors.New("output directory is empty")

	reservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}

	filenameReplacer = strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", " ", "_",
		"*", "", "?", "", "\"", "", "'", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
)

// SanitizeFilename turns caller-influenced text (model names, S3 keys) into a
// single safe path element.
func SanitizeFilename(name string) string {
	sanitized := filenameReplacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	stem := strings.TrimSuffix(strings.ToLower(sanitized), filepath.Ext(sanitized))
	if reservedNames[stem] {
		sanitized += "_"
	}
	if sanitized == "" {
		sanitized = "file"
	}
	return sanitized
}

// ResolveWithin joins name onto root and rejects results outside root.
func ResolveWithin(root, name string) (string, error) {
	if root == "" {
		return "", ErrEmptyRoot
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathTraversal, name)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	full := filepath.Join(absRoot, name)
	rel, err := filepath.Rel(absRoot, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return full, nil
}
