package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/profileapp-be/internal/apperrors"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fileHeader builds a parsed multipart file header the way net/http would.
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func TestSave_StoresImageWithGeneratedName(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, DefaultMaxBytes)
	require.NoError(t, err)

	f, err := s.Save("image", fileHeader(t, "Me.PNG", "image/png", pngMagic))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^image-\d+-\d+\.png$`), f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, int64(len(pngMagic)), f.Size)
	assert.Equal(t, "uploads/"+f.Name, f.RelPath())

	stored, err := os.ReadFile(filepath.Join(dir, f.Name))
	require.NoError(t, err)
	assert.Equal(t, pngMagic, stored)
}

func TestSave_UsesDetectedExtensionWhenMissing(t *testing.T) {
	s, err := NewStorage(t.TempDir(), DefaultMaxBytes)
	require.NoError(t, err)

	f, err := s.Save("image", fileHeader(t, "avatar", "image/png", pngMagic))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(f.Name))
}

func TestSave_ExtensionComesFromContent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, DefaultMaxBytes)
	require.NoError(t, err)

	payload := append(append([]byte{}, pngMagic...), []byte("<script>alert(1)</script>")...)
	for _, filename := range []string{"x.html", "photo.jpg", "shell.php.png"} {
		f, err := s.Save("image", fileHeader(t, filename, "image/png", payload))
		require.NoError(t, err, filename)
		assert.Equal(t, ".png", filepath.Ext(f.Name), filename)
	}
}

func TestSave_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		limit       int64
		filename    string
		contentType string
		content     []byte
		status      int
	}{
		{"declared non-image", DefaultMaxBytes, "notes.txt", "text/plain", []byte("hello"), http.StatusUnsupportedMediaType},
		{"spoofed image type", DefaultMaxBytes, "evil.png", "image/png", []byte("#!/bin/sh\necho pwned\n"), http.StatusUnsupportedMediaType},
		{"svg", DefaultMaxBytes, "logo.svg", "image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`), http.StatusUnsupportedMediaType},
		{"bmp not allowed", DefaultMaxBytes, "a.bmp", "image/bmp", append([]byte("BM"), make([]byte, 64)...), http.StatusUnsupportedMediaType},
		{"too large", 16, "big.png", "image/png", append(append([]byte{}, pngMagic...), make([]byte, 64)...), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := NewStorage(dir, tt.limit)
			require.NoError(t, err)

			_, err = s.Save("image", fileHeader(t, tt.filename, tt.contentType, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUpload)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(err))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected uploads must not leave files behind")
		})
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, DefaultMaxBytes)
	require.NoError(t, err)

	f, err := s.Save("image", fileHeader(t, "a.png", "image/png", pngMagic))
	require.NoError(t, err)

	require.NoError(t, s.Remove(f.Name))
	_, err = os.Stat(filepath.Join(dir, f.Name))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(f.Name), "removing twice is fine")
	assert.Error(t, s.Remove("../etc/passwd"))
}

func TestBaseURLAndPublicURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://api.example.com/api/profiles", nil)
	assert.Equal(t, "http://api.example.com", BaseURL(r, ""))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://api.example.com", BaseURL(r, ""))

	assert.Equal(t, "https://cdn.example.com", BaseURL(r, "https://cdn.example.com/"))

	f := File{Name: "image-1700000000000-42.png"}
	assert.Equal(t, "https://api.example.com/uploads/image-1700000000000-42.png", PublicURL("https://api.example.com", f))
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "image-1-2.png", NameFromURL("http://localhost:8080/uploads/image-1-2.png"))
	assert.Equal(t, "", NameFromURL("https://images.unsplash.com/photo-1?w=500"))
	assert.Equal(t, "", NameFromURL("http://localhost/uploads/nested/x.png"))
}

func TestSweep_RemovesOnlyOldUnreferencedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, DefaultMaxBytes)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"kept.png", "orphan.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, pngMagic, 0o644))
		require.NoError(t, os.Chtimes(p, old, old))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.png"), pngMagic, 0o644))

	removed, err := s.Sweep(map[string]bool{"kept.png": true}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"kept.png", "fresh.png"}, names)
}
