package storage

import (
	"path/filepath"
	"strings"
)

// Kind selects how a stored file is delivered
type Kind int

const (
	KindDocument Kind = iota // downloaded as an attachment
	KindImage                // shown inline
	KindPDF                  // shown inline
)

// FileType is an allow-listed extension and the content type it is served with
type FileType struct {
	Ext         string
	ContentType string
	Kind        Kind
	// Sniff requires the leading bytes to match ContentType
	Sniff bool
}

var allowedTypes = map[string]FileType{
	".jpg":  {".jpg", "image/jpeg", KindImage, true},
	".jpeg": {".jpeg", "image/jpeg", KindImage, true},
	".png":  {".png", "image/png", KindImage, true},
	".gif":  {".gif", "image/gif", KindImage, true},
	".bmp":  {".bmp", "image/bmp", KindImage, true},
	".webp": {".webp", "image/webp", KindImage, true},
	".pdf":  {".pdf", "application/pdf", KindPDF, true},
	".doc":  {".doc", "application/msword", KindDocument, false},
	".docx": {".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDocument, false},
	".ppt":  {".ppt", "application/vnd.ms-powerpoint", KindDocument, false},
	".pptx": {".pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", KindDocument, false},
	".xls":  {".xls", "application/vnd.ms-excel", KindDocument, false},
	".xlsx": {".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", KindDocument, false},
	".txt":  {".txt", "text/plain; charset=utf-8", KindDocument, false},
}

// LookupType returns the allow-listed type of name's extension
func LookupType(name string) (FileType, bool) {
	ft, ok := allowedTypes[strings.ToLower(filepath.Ext(name))]
	return ft, ok
}

// AllowedExtensions lists every accepted extension
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedTypes))
	for ext := range allowedTypes {
		exts = append(exts, ext)
	}
	return exts
}

// Resizable reports whether thumbnails can be produced for ft
func (ft FileType) Resizable() bool {
	switch ft.Ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}
