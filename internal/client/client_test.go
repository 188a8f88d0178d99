package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_LoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "username": body["username"], "token": "tok"})
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, models.User{ID: "u1", Username: "alice"})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	_, err := c.Login(ctx, "alice", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, c.Token())

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	session, err := c.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, "tok", c.Token())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())
}

func TestClient_ListProfilesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profiles", r.URL.Path)
		assert.Equal(t, "ada", r.URL.Query().Get("search"))
		assert.Equal(t, "Engineer", r.URL.Query().Get("title"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": []models.Profile{{ID: "2"}, {ID: "1"}}})
	}))
	defer srv.Close()

	profiles, err := New(srv.URL).ListProfiles(context.Background(), models.ProfileFilter{Search: "ada", Title: "Engineer"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "2", profiles[0].ID)
}

func TestClient_CreateProfileMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Ada", r.FormValue("name"))
		assert.Equal(t, "ada@example.com", r.FormValue("email"))
		_, hasWebsite := r.MultipartForm.Value["website"]
		assert.False(t, hasWebsite, "empty fields are not sent")

		files := r.MultipartForm.File["image"]
		require.Len(t, files, 1)
		assert.Equal(t, "me.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		f, err := files[0].Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		f.Close()
		assert.Equal(t, pngHeader, data)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"url":     "/profile/7",
			"profile": models.Profile{ID: "7", Name: "Ada"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	p, err := c.CreateProfile(context.Background(), ProfileForm{
		Name:  "Ada",
		Email: "ada@example.com",
		Title: "Engineer",
		Bio:   "Analytical engines.",
		Image: &Image{Filename: "me.png", Data: pngHeader},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusBadRequest, apperrors.ErrValidation},
		{http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{http.StatusForbidden, apperrors.ErrForbidden},
		{http.StatusNotFound, apperrors.ErrNotFound},
		{http.StatusRequestEntityTooLarge, apperrors.ErrUpload},
		{http.StatusUnsupportedMediaType, apperrors.ErrUpload},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": "nope"})
			}))
			defer srv.Close()

			err := New(srv.URL).DeleteProfile(context.Background(), "1")
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, "nope", ErrorMessage(err))
		})
	}

	t.Run("server error matches nothing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := New(srv.URL).DeleteProfile(context.Background(), "1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, ErrorMessage(err), "500")
	})
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL).GetProfile(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Request timed out", ErrorMessage(err))
}
