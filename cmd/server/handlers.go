package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/export"
	"go.uber.org/zap"
)

type submissionRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) decodeSubmission(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var req submissionRequest
	if err := readJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return nil, false
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}
	return req.Data, true
}

// handleCreateSubmission handles POST /api/v1/forms/{formId}/submissions
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	sub, err := s.manager.CreateSubmission(r.Context(), formID, data)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, sub)
}

// handleUpdateSubmission handles PUT /api/v1/forms/{formId}/submissions/{submissionId}
func (s *Server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	submissionID, err := uuidParam(r, "submissionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	sub, err := s.manager.UpdateSubmission(r.Context(), formID, submissionID, data)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sub)
}

// handleValidateSubmission handles POST /api/v1/forms/{formId}/submissions/validate.
// It returns the normalized payload without storing it.
func (s *Server) handleValidateSubmission(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	normalized, err := s.manager.PrepareSubmission(r.Context(), formID, data)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, submissionRequest{Data: normalized})
}

// handleListSubmissions handles GET /api/v1/forms/{formId}/submissions?filter_key=...&filter_value=...
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	filter := formview.SubmissionFilter{
		Key:   query.Get("filter_key"),
		Value: query.Get("filter_value"),
	}

	subs, err := s.manager.ListSubmissions(r.Context(), formID, filter)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	if subs == nil {
		subs = []*formview.Submission{}
	}
	writeSuccess(w, http.StatusOK, subs)
}

// handleFieldValues handles GET /api/v1/forms/{formId}/fields/{fieldKey}/values
func (s *Server) handleFieldValues(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	values, err := s.manager.FieldValues(r.Context(), formID, chi.URLParam(r, "fieldKey"))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeSuccess(w, http.StatusOK, values)
}

// handleSubmissionOptions handles GET /api/v1/forms/{formId}/fields/{fieldKey}/submission-options
func (s *Server) handleSubmissionOptions(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	options, err := s.manager.SubmissionOptions(r.Context(), formID, chi.URLParam(r, "fieldKey"))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	if options == nil {
		options = []formview.SubmissionOption{}
	}
	writeSuccess(w, http.StatusOK, options)
}

// handleViewData handles GET /api/v1/views/{viewId}/data
func (s *Server) handleViewData(w http.ResponseWriter, r *http.Request) {
	viewID, err := uuidParam(r, "viewId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.manager.ViewRows(r.Context(), viewID)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	if rows == nil {
		rows = []formview.Row{}
	}
	writeSuccess(w, http.StatusOK, rows)
}

// handleViewExport handles GET /api/v1/views/{viewId}/export?format=csv|xlsx|json
func (s *Server) handleViewExport(w http.ResponseWriter, r *http.Request) {
	viewID, err := uuidParam(r, "viewId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := export.FormatCSV
	if raw := r.URL.Query().Get("format"); raw != "" {
		if format, err = export.ParseFormat(raw); err != nil {
			writeManagerError(w, r, err)
			return
		}
	}

	view, err := s.store.GetView(r.Context(), viewID)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	rows, err := s.manager.MaterializeView(r.Context(), view.Config)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="view-%s.%s"`, viewID, format.Extension()))
	// headers and part of the body may already be on the wire
	if err := export.Write(w, format, view.Config, rows); err != nil {
		zap.S().Errorw("view export failed", "viewID", viewID, "format", format, "error", err)
	}
}

// handleViewPreview handles POST /api/v1/views/preview with an unsaved view config
func (s *Server) handleViewPreview(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	cfg, err := internal.DecodeViewConfig(raw)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	rows, err := s.manager.MaterializeView(r.Context(), cfg)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rows)
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if hc, ok := s.store.(healthChecker); ok {
		if err := hc.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
