package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/profileapp-be/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError reports err to the client. Internal failures are replaced by
// fallback so storage details never leak.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError && !errors.Is(err, apperrors.ErrUpload) {
		writeJSON(w, status, apperrors.ErrorResponse{Error: fallback})
		return
	}
	writeJSON(w, status, apperrors.ToResponse(err))
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Invalid("Invalid request body")
	}
	return nil
}
