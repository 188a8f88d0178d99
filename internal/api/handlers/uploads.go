package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/upload"
)

// imageUploads is the multipart and image plumbing shared by the profile and
// legacy upload handlers.
type imageUploads struct {
	storage       *upload.Storage
	publicBaseURL string
}

// parseForm parses a multipart body capped at the image limit plus overhead.
func (u imageUploads) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.storage.MaxBytes()+formOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return nil, u.storage.TooLarge()
		}
		return nil, apperrors.Invalid("Invalid multipart form")
	}
	return r.MultipartForm, nil
}

// save stores the "image" file when one was sent. At most one is accepted.
func (u imageUploads) save(form *multipart.Form) (*upload.File, error) {
	files := form.File[imageField]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, &apperrors.UploadError{Reason: "Only one image may be uploaded", Status: http.StatusBadRequest}
	}
	f, err := u.storage.Save(imageField, files[0])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// discard removes an upload whose profile write failed.
func (u imageUploads) discard(f *upload.File) {
	if f == nil {
		return
	}
	if err := u.storage.Remove(f.Name); err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("Failed to remove unused upload")
	}
}

// url is the public address of a stored file as seen by the client of r.
func (u imageUploads) url(r *http.Request, f upload.File) string {
	return upload.PublicURL(upload.BaseURL(r, u.publicBaseURL), f)
}
