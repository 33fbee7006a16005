package storage

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const maxOriginalNameBytes = 255

// SanitizeOriginalName reduces a client supplied file name to a displayable base name
func SanitizeOriginalName(name string) string {
	// Clients on Windows send backslash paths
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return "document"
	}
	return truncateName(name, maxOriginalNameBytes)
}

// truncateName cuts name to max bytes on a rune boundary, keeping the extension
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	limit := max - len(ext)
	for limit > 0 && !utf8.RuneStart(base[limit]) {
		limit--
	}
	return base[:limit] + ext
}

// NewStorageName returns an opaque name keeping only the lower-cased extension
func NewStorageName(originalName string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
}

// ValidName reports whether name is a bare file name safe to join with the store root
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return false
	}
	return filepath.Base(name) == name && !strings.Contains(name, "..")
}
