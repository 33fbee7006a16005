package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedType  = errors.New("file type not allowed")
	ErrContentMismatch  = errors.New("file content does not match its extension")
	ErrInvalidName      = errors.New("invalid file name")
	ErrNotFound         = errors.New("file not found")
	errEmptyStorageRoot = errors.New("upload directory is empty")
)

// sniffLen is how many leading bytes are kept for content detection
const sniffLen = 3072

// Blob describes a file written by Save
type Blob struct {
	Name         string // opaque storage name
	OriginalName string
	Type         FileType
	DetectedType string
	Size         int64
	Checksum     string // sha256 hex
}

// LocalStore keeps blobs as flat files in one directory
type LocalStore struct {
	dir     string
	maxSize int64
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir string, maxSize int64) (*LocalStore, error) {
	if dir == "" {
		return nil, errEmptyStorageRoot
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the store root
func (s *LocalStore) Dir() string { return s.dir }

// MaxSize returns the upload limit in bytes
func (s *LocalStore) MaxSize() int64 { return s.maxSize }

// Save streams r into a new blob named after originalName's extension.
// Nothing is left on disk when it fails.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (*Blob, error) {
	ft, ok := LookupType(originalName)
	if !ok {
		return nil, ErrUnsupportedType
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	hasher := sha256.New()
	head := &prefixBuffer{limit: sniffLen}
	limited := io.LimitReader(&ctxReader{ctx: ctx, r: r}, s.maxSize+1)

	n, err := io.Copy(tmp, io.TeeReader(limited, io.MultiWriter(hasher, head)))
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if n > s.maxSize {
		return nil, ErrFileTooLarge
	}

	detected := mimetype.Detect(head.Bytes())
	if ft.Sniff && !detected.Is(ft.ContentType) {
		return nil, fmt.Errorf("%w: detected %s", ErrContentMismatch, detected.String())
	}

	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close blob: %w", err)
	}

	name := NewStorageName(originalName)
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("commit blob: %w", err)
	}
	committed = true

	return &Blob{
		Name:         name,
		OriginalName: SanitizeOriginalName(originalName),
		Type:         ft,
		DetectedType: detected.String(),
		Size:         n,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns the blob called name. The caller closes the file.
func (s *LocalStore) Open(name string) (*os.File, fs.FileInfo, error) {
	if !ValidName(name) {
		return nil, nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat blob: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// Exists reports whether a blob called name is stored
func (s *LocalStore) Exists(name string) (bool, error) {
	if !ValidName(name) {
		return false, ErrInvalidName
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Remove deletes a blob. Removing a missing blob is not an error.
func (s *LocalStore) Remove(name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// ListOlderThan returns regular files last modified before cutoff
func (s *LocalStore) ListOlderThan(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// prefixBuffer keeps the first limit bytes written to it
type prefixBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (p *prefixBuffer) Write(b []byte) (int, error) {
	if room := p.limit - p.buf.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		p.buf.Write(b[:room])
	}
	return len(b), nil
}

func (p *prefixBuffer) Bytes() []byte { return p.buf.Bytes() }

// ctxReader stops a copy when ctx is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
