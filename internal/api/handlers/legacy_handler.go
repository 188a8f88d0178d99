package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
	"github.com/isdelr/profileapp-be/internal/services"
	"github.com/isdelr/profileapp-be/internal/upload"
)

// LegacyResponse is the envelope the old upload endpoint answered with.
type LegacyResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *models.Profile `json:"data"`
	URL     string          `json:"url,omitempty"`
	Errors  interface{}     `json:"errors,omitempty"`
}

// legacyForm carries the stricter rules of the old endpoint.
type legacyForm struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Title string `validate:"required"`
	Bio   string `validate:"required,min=50"`
}

var legacyMessages = map[string]string{
	"Name.required":  "Name is required",
	"Email.required": "Email is required",
	"Email.email":    "Email format is invalid",
	"Title.required": "Professional title is required",
	"Bio.required":   "Bio is required",
	"Bio.min":        "Bio should be at least 50 characters",
}

var legacyValidate = validator.New()

// LegacyUploadHandler serves the old single-call upload contract on top of
// the same profile service as the REST API.
type LegacyUploadHandler struct {
	service services.ProfileServiceProvider
	images  imageUploads
}

// NewLegacyUploadHandler creates a new LegacyUploadHandler.
func NewLegacyUploadHandler(service services.ProfileServiceProvider, storage *upload.Storage, publicBaseURL string) *LegacyUploadHandler {
	return &LegacyUploadHandler{service: service, images: imageUploads{storage: storage, publicBaseURL: publicBaseURL}}
}

func writeLegacy(w http.ResponseWriter, status int, message string, errs interface{}) {
	writeJSON(w, status, LegacyResponse{Success: false, Message: message, Errors: errs})
}

// Reject answers an unauthenticated upload in the legacy envelope.
func (h *LegacyUploadHandler) Reject(w http.ResponseWriter, err error) {
	writeLegacy(w, apperrors.HTTPStatus(err), apperrors.ToResponse(err).Error, nil)
}

// Upload handles a multipart profile submission with a required image. It
// runs behind the auth guard; the session user owns the new profile.
func (h *LegacyUploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := currentUsername(r)
	if owner == "" {
		h.Reject(w, apperrors.ErrUnauthorized)
		return
	}
	if !isMultipart(r) {
		writeLegacy(w, http.StatusBadRequest, "Expected multipart/form-data", nil)
		return
	}
	form, err := h.images.parseForm(w, r)
	if err != nil {
		writeLegacy(w, apperrors.HTTPStatus(err), apperrors.ToResponse(err).Error, nil)
		return
	}
	defer form.RemoveAll()

	fields := legacyForm{
		Name:  strings.TrimSpace(formValue(form, "name")),
		Email: strings.TrimSpace(formValue(form, "email")),
		Title: strings.TrimSpace(formValue(form, "title")),
		Bio:   strings.TrimSpace(formValue(form, "bio")),
	}
	if msgs := legacyErrors(fields); len(msgs) > 0 {
		writeLegacy(w, http.StatusBadRequest, strings.Join(msgs, ", "), msgs)
		return
	}

	if len(form.File[imageField]) == 0 {
		writeLegacy(w, http.StatusBadRequest, "Profile image is required", map[string]string{"image": "Profile image is required"})
		return
	}
	stored, err := h.images.save(form)
	if err != nil {
		reason := apperrors.ToResponse(err).Error
		writeLegacy(w, apperrors.HTTPStatus(err), reason, map[string]string{"image": reason})
		return
	}

	profile, err := h.service.CreateProfile(r.Context(), owner, models.ProfileInput{
		Name:     fields.Name,
		Email:    fields.Email,
		Title:    fields.Title,
		Bio:      fields.Bio,
		ImageURL: h.images.url(r, *stored),
	})
	if err != nil {
		h.images.discard(stored)
		status := apperrors.HTTPStatus(err)
		message := apperrors.ToResponse(err).Error
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Legacy upload failed")
			message = "Failed to create profile"
		}
		writeLegacy(w, status, message, nil)
		return
	}

	writeJSON(w, http.StatusOK, LegacyResponse{
		Success: true,
		Message: "Profile created successfully",
		Data:    &profile,
		URL:     "/profile/" + profile.ID,
	})
}

// legacyErrors returns the old endpoint's messages in field order.
func legacyErrors(f legacyForm) []string {
	err := legacyValidate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := legacyMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
