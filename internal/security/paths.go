package security

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

var ErrUnsafePath = errors.New("path escapes storage root")

// ArchiveName turns an invoice id into a flat file name. Path separators
// become dashes so every label lands at the archive root.
func ArchiveName(invoice string) string {
	name := strings.TrimSpace(invoice)
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "label"
	}
	return name
}

// UploadName keeps the base name and extension of an uploaded file and
// drops everything a browser or client could smuggle in.
func UploadName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "upload"
	}
	return name
}

// Within resolves path and reports an error unless it lies inside root.
func Within(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", ErrUnsafePath
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return absPath, nil
}
