package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteManagerError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        formview.NewNotFoundError(formview.ErrCodeViewNotFound, "View", "x"),
			wantStatus: http.StatusNotFound,
			wantCode:   formview.ErrCodeViewNotFound,
		},
		{
			name:       "wrapped configuration error",
			err:        fmt.Errorf("open: %w", formview.NewConfigurationError(formview.ErrCodeSchemaInvalid, "bad schema")),
			wantStatus: http.StatusBadRequest,
			wantCode:   formview.ErrCodeSchemaInvalid,
		},
		{
			name:       "unclassified error",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/views/x/data", nil)
			writeManagerError(rec, req, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			var resp APIResponse
			decodeBody(t, rec, &resp)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", resp.Error)
			}
		})
	}
}

func TestWriteManagerErrorValidation(t *testing.T) {
	errs := formview.FieldErrors{}
	errs.Set("fld_project", formview.MsgReferenceNotFound)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/x/submissions", nil)
	writeManagerError(rec, req, errs.Err(formview.ErrorTypeReference))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"validation_errors": {"fld_project": "Referenced submission not found"}}`, rec.Body.String())
}

func TestUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("formId", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := uuidParam(withParam(id.String()), "formId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = uuidParam(withParam("abc"), "formId")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid formId")
}
