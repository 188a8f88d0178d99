package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/auth"
	"github.com/isdelr/profileapp-be/internal/models"
	"github.com/isdelr/profileapp-be/internal/services"
	"github.com/isdelr/profileapp-be/internal/upload"
)

const (
	// imageField is the multipart field carrying the profile image.
	imageField = "image"

	// formOverhead is the allowance for text fields and multipart framing on
	// top of the image size limit.
	formOverhead = 1 << 20

	// maxFormMemory is how much of a multipart body is kept in memory
	// before spilling to temporary files.
	maxFormMemory = 8 << 20

	jsonBodyLimit = 1 << 20
)

// ProfileHandler handles HTTP requests for profiles.
type ProfileHandler struct {
	service services.ProfileServiceProvider
	images  imageUploads
}

// NewProfileHandler creates a new ProfileHandler. publicBaseURL may be empty,
// in which case image URLs are derived from the request.
func NewProfileHandler(service services.ProfileServiceProvider, storage *upload.Storage, publicBaseURL string) *ProfileHandler {
	return &ProfileHandler{service: service, images: imageUploads{storage: storage, publicBaseURL: publicBaseURL}}
}

// GetAll handles listing profiles, newest first. Optional query parameters
// "search" and "title" narrow the result.
func (h *ProfileHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	filter := models.ProfileFilter{
		Search: r.URL.Query().Get("search"),
		Title:  r.URL.Query().Get("title"),
	}
	profiles, err := h.service.ListProfiles(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list profiles")
		writeError(w, err, "Failed to fetch profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

// Get handles retrieving a single profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Error().Err(err).Str("profile_id", id).Msg("Failed to get profile")
		}
		writeError(w, err, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// Create handles creating a profile owned by the authenticated user. The body
// is multipart/form-data with an optional "image" file, or JSON.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := currentUsername(r)

	var input models.ProfileInput
	var stored *upload.File

	if isMultipart(r) {
		form, err := h.images.parseForm(w, r)
		if err != nil {
			writeError(w, err, "Failed to create profile")
			return
		}
		defer form.RemoveAll()

		input = models.ProfileInput{
			Name:    formValue(form, "name"),
			Email:   formValue(form, "email"),
			Title:   formValue(form, "title"),
			Bio:     formValue(form, "bio"),
			Website: formValue(form, "website"),
		}
		if stored, err = h.images.save(form); err != nil {
			log.Warn().Err(err).Str("username", username).Msg("Rejected profile image")
			writeError(w, err, "Failed to create profile")
			return
		}
	} else if err := decodeJSON(w, r, jsonBodyLimit, &input); err != nil {
		writeError(w, err, "Failed to create profile")
		return
	}

	// Images only come from uploads; the field is ignored when sent by clients.
	input.ImageURL = ""
	if stored != nil {
		input.ImageURL = h.images.url(r, *stored)
	}

	profile, err := h.service.CreateProfile(r.Context(), username, input)
	if err != nil {
		h.images.discard(stored)
		if apperrors.HTTPStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("username", username).Msg("Failed to create profile")
		}
		writeError(w, err, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"url":     "/profile/" + profile.ID,
		"profile": profile,
	})
}

// Update handles partial updates by the profile owner. Multipart fields that
// are missing or empty keep their stored value; JSON fields that are absent
// keep theirs.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	username := currentUsername(r)

	var patch models.ProfilePatch
	var stored *upload.File

	if isMultipart(r) {
		form, err := h.images.parseForm(w, r)
		if err != nil {
			writeError(w, err, "Failed to update profile")
			return
		}
		defer form.RemoveAll()

		patch = models.ProfilePatch{
			Name:    optionalValue(form, "name"),
			Email:   optionalValue(form, "email"),
			Title:   optionalValue(form, "title"),
			Bio:     optionalValue(form, "bio"),
			Website: optionalValue(form, "website"),
		}
		if stored, err = h.images.save(form); err != nil {
			log.Warn().Err(err).Str("profile_id", id).Msg("Rejected profile image")
			writeError(w, err, "Failed to update profile")
			return
		}
	} else if err := decodeJSON(w, r, jsonBodyLimit, &patch); err != nil {
		writeError(w, err, "Failed to update profile")
		return
	}

	patch.ImageURL = nil
	if stored != nil {
		url := h.images.url(r, *stored)
		patch.ImageURL = &url
	}

	profile, err := h.service.UpdateProfile(r.Context(), username, id, patch)
	if err != nil {
		h.images.discard(stored)
		if apperrors.HTTPStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("profile_id", id).Msg("Failed to update profile")
		}
		writeError(w, err, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "profile": profile})
}

// Delete handles removal of a profile by its owner.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProfile(r.Context(), currentUsername(r), id); err != nil {
		if apperrors.HTTPStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("profile_id", id).Msg("Failed to delete profile")
		}
		writeError(w, err, "Failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// currentUsername is the authenticated caller, or "" when none is attached.
func currentUsername(r *http.Request) string {
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		return claims.Username
	}
	return ""
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// optionalValue returns nil for missing or blank fields.
func optionalValue(form *multipart.Form, key string) *string {
	v := formValue(form, key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
