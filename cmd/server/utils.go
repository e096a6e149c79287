package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 20

// APIResponse is the standard error response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, data)
}

// writeManagerError maps an engine error to a status code. Rejected
// submissions keep their per-field mapping in the body.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := formview.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"validation_errors": ve.Errors})
		return
	}

	status := http.StatusInternalServerError
	switch formview.TypeOf(err) {
	case formview.ErrorTypeValidation, formview.ErrorTypeReference, formview.ErrorTypeConfiguration:
		status = http.StatusBadRequest
	case formview.ErrorTypeNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}

	resp := APIResponse{Success: false, Error: err.Error()}
	if fe, ok := asError(err); ok {
		resp.Error = fe.Message
		resp.Code = fe.Code
	}
	writeJSON(w, status, resp)
}

func asError(err error) (*formview.Error, bool) {
	var fe *formview.Error
	ok := errors.As(err, &fe)
	return fe, ok
}

// uuidParam parses a chi URL parameter as a UUID
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
