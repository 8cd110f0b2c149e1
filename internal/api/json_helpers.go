package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cliptide/internal/auth"
	"cliptide/internal/storage"
)

// envelope is the uniform response body: success carries data, failure
// carries the message plus an errors list, and success always mirrors the
// status code class.
type envelope struct {
	StatusCode int       `json:"statusCode"`
	Data       any       `json:"data,omitempty"`
	Message    string    `json:"message"`
	Success    bool      `json:"success"`
	Errors     *[]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status >= 200 && status < 300,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	// The errors list is always present on failures, even when empty.
	errs := []string{}
	writeJSON(w, status, envelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     &errs,
	})
}

// WriteError is an exported helper for returning API errors from middleware.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

// writeDomainError maps sentinel errors from the storage and session layers
// onto the error taxonomy. Unrecognized errors are internal and their details
// stay out of the response.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrSessionRevoked):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
