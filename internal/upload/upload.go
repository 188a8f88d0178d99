// Package upload validates and stores profile images on local disk and
// builds the public URLs they are served from.
package upload

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
)

// DefaultMaxBytes is the 5 MB ceiling for a single image.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// PublicPrefix is the URL path uploads are served under.
const PublicPrefix = "/uploads"

// File describes a stored upload.
type File struct {
	Name        string // file name inside the upload directory
	Size        int64
	ContentType string
}

// RelPath is the URL path of the file relative to the host, e.g. "uploads/image-1-2.png".
func (f File) RelPath() string {
	return strings.TrimPrefix(path.Join(PublicPrefix, f.Name), "/")
}

// Storage writes images into a single flat directory.
type Storage struct {
	dir      string
	maxBytes int64
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStorage creates the upload directory if needed.
func NewStorage(dir string, maxBytes int64) (*Storage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Storage{
		dir:      dir,
		maxBytes: maxBytes,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Dir returns the directory files are written to.
func (s *Storage) Dir() string { return s.dir }

// MaxBytes returns the per-file size ceiling.
func (s *Storage) MaxBytes() int64 { return s.maxBytes }

func tooLarge(limit int64) error {
	return &apperrors.UploadError{
		Reason: fmt.Sprintf("Image size must be less than %dMB", limit/(1024*1024)),
		Status: http.StatusRequestEntityTooLarge,
	}
}

var errNotImage = &apperrors.UploadError{
	Reason: "Only image files are allowed",
	Status: http.StatusUnsupportedMediaType,
}

// TooLarge is the error reported when a request body exceeds the limit.
func (s *Storage) TooLarge() error { return tooLarge(s.maxBytes) }

// Save validates fh and writes it under a generated name derived from field.
func (s *Storage) Save(field string, fh *multipart.FileHeader) (File, error) {
	if fh.Size > s.maxBytes {
		return File{}, tooLarge(s.maxBytes)
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return File{}, errNotImage
	}

	src, err := fh.Open()
	if err != nil {
		return File{}, &apperrors.UploadError{Reason: "Failed to read uploaded file", Status: http.StatusBadRequest, Err: err}
	}
	defer src.Close()

	// The declared type is client-controlled; trust only the bytes.
	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return File{}, &apperrors.UploadError{Reason: "Failed to read uploaded file", Status: http.StatusBadRequest, Err: err}
	}
	ext, ok := imageExtension(detected)
	if !ok {
		return File{}, errNotImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return File{}, &apperrors.UploadError{Reason: "Failed to read uploaded file", Status: http.StatusBadRequest, Err: err}
	}

	name := s.generateName(field, ext)

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return File{}, &apperrors.UploadError{Reason: "Failed to store image", Status: http.StatusInternalServerError, Err: err}
	}

	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err == nil && n > s.maxBytes:
		err = tooLarge(s.maxBytes)
	case err == nil && closeErr != nil:
		err = &apperrors.UploadError{Reason: "Failed to store image", Status: http.StatusInternalServerError, Err: closeErr}
	case err != nil:
		err = &apperrors.UploadError{Reason: "Failed to store image", Status: http.StatusInternalServerError, Err: err}
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name)) // Clean up partial file
		return File{}, err
	}

	log.Debug().Str("file", name).Int64("size", n).Msg("Stored uploaded image")
	return File{Name: name, Size: n, ContentType: detected.String()}, nil
}

// imageExtensions are the accepted sniffed types. Stored files are served from
// the API origin, so the extension always comes from here and never from the
// client's filename.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func imageExtension(detected *mimetype.MIME) (string, bool) {
	ext, ok := imageExtensions[detected.String()]
	return ext, ok
}

// generateName returns "<field>-<unixmillis>-<random>.<ext>".
func (s *Storage) generateName(field, ext string) string {
	s.mu.Lock()
	suffix := s.rnd.Int63n(1e9)
	s.mu.Unlock()
	return fmt.Sprintf("%s-%d-%d%s", sanitize(field), s.now().UnixMilli(), suffix, ext)
}

func sanitize(field string) string {
	field = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return -1
		}
	}, field)
	if field == "" {
		return "file"
	}
	return field
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// NameFromURL extracts the stored file name from a public URL, or "" when the
// URL does not point into the upload directory.
func NameFromURL(raw string) string {
	i := strings.Index(raw, PublicPrefix+"/")
	if i < 0 {
		return ""
	}
	name := raw[i+len(PublicPrefix)+1:]
	if name == "" || strings.ContainsAny(name, "/?#") {
		return ""
	}
	return name
}
