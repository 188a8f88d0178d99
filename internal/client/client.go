// Package client is the Go-side data layer for the profile API: a typed HTTP
// client, a state mirror with per-operation status, and a change-feed follower.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/isdelr/profileapp-be/internal/apperrors"
	"github.com/isdelr/profileapp-be/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	// Largest error body read back from the server.
	maxErrorBody = 64 << 10
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Is lets callers match responses against the apperrors sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == apperrors.ErrValidation
	case http.StatusUnauthorized:
		return target == apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return target == apperrors.ErrForbidden
	case http.StatusNotFound:
		return target == apperrors.ErrNotFound
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return target == apperrors.ErrUpload
	}
	return false
}

// Image is a file attached to a profile form.
type Image struct {
	Filename string
	Data     []byte
}

// ProfileForm is the multipart body for create and update. On update, empty
// strings are sent as absent and leave the stored value untouched.
type ProfileForm struct {
	Name    string
	Email   string
	Title   string
	Bio     string
	Website string
	Image   *Image
}

// Session is the result of a successful login.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to the profile API.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a Client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token held by the client, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (models.User, error) {
	var user models.User
	err := c.doJSON(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &user)
	return user, err
}

// Login authenticates and keeps the issued token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &session)
	if err != nil {
		return Session{}, err
	}
	c.setToken(session.Token)
	return session, nil
}

// Logout revokes the held token on the server and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.setToken("")
	return err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.doJSON(ctx, http.MethodGet, "/api/user", nil, &user)
	return user, err
}

// ListProfiles returns profiles newest first.
func (c *Client) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Title != "" {
		q.Set("title", filter.Title)
	}
	path := "/api/profiles"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var body struct {
		Profiles []models.Profile `json:"profiles"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	if body.Profiles == nil {
		body.Profiles = []models.Profile{}
	}
	return body.Profiles, nil
}

// GetProfile fetches one profile.
func (c *Client) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var body struct {
		Profile models.Profile `json:"profile"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(id), nil, &body)
	return body.Profile, err
}

// CreateProfile submits a new profile owned by the logged-in user.
func (c *Client) CreateProfile(ctx context.Context, form ProfileForm) (models.Profile, error) {
	return c.sendForm(ctx, http.MethodPost, "/api/profiles", form)
}

// UpdateProfile changes the non-empty fields of form on profile id.
func (c *Client) UpdateProfile(ctx context.Context, id string, form ProfileForm) (models.Profile, error) {
	return c.sendForm(ctx, http.MethodPut, "/api/profiles/"+url.PathEscape(id), form)
}

// DeleteProfile removes profile id.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/profiles/"+url.PathEscape(id), nil, nil)
}

func (c *Client) sendForm(ctx context.Context, method, path string, form ProfileForm) (models.Profile, error) {
	body, contentType, err := encodeForm(form)
	if err != nil {
		return models.Profile{}, err
	}

	var out struct {
		Profile models.Profile `json:"profile"`
	}
	err = c.do(ctx, method, path, contentType, body, &out)
	return out.Profile, err
}

func encodeForm(form ProfileForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"name", form.Name},
		{"email", form.Email},
		{"title", form.Title},
		{"bio", form.Bio},
		{"website", form.Website},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}

	if form.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, form.Image.Filename))
		h.Set("Content-Type", mimetype.Detect(form.Image.Data).String())
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(form.Image.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

// ErrorMessage extracts the text a user should see for err.
func ErrorMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	case err.Error() != "":
		return err.Error()
	default:
		return "Unknown error occurred"
	}
}
