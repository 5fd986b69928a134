package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
	"github.com/danielpatrickdp/smartkyc/internal/kyc"
	"github.com/danielpatrickdp/smartkyc/internal/orchestrator"
)

const defaultCaptureLimit = 50

// #region applications

// StartApplicationHandler creates a new application.
func (s *Server) StartApplicationHandler(w http.ResponseWriter, r *http.Request) {
	app, err := s.svc.Start(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// GetApplicationHandler returns one application.
func (s *Server) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	app, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ListCapturesHandler returns the capture attempts of an application,
// newest first. ?limit= caps the count.
func (s *Server) ListCapturesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	limit := defaultCaptureLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", v))
			return
		}
		limit = n
	}
	captures, err := s.svc.Captures(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if captures == nil {
		captures = []kyc.CaptureAttempt{}
	}
	writeJSON(w, http.StatusOK, captures)
}

// #endregion

// #region document

// UploadDocumentHandler runs a document frame through the quality gate and,
// when accepted, document intelligence. Form fields: document_type, file.
func (s *Server) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	if _, err := s.svc.Get(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	frame, name, err := s.readUpload(w, r)
	docType := r.FormValue("document_type")
	if err != nil || docType == "" {
		writeError(w, http.StatusBadRequest, "Missing 'document_type' or 'file' in form-data")
		return
	}

	res, err := s.svc.CaptureDocument(r.Context(), id, intel.DocumentType(docType), name, frame)
	if err != nil {
		if errors.Is(err, kyc.ErrInvalidDocumentType) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'document_type': %s", docType))
			return
		}
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if !res.Verdict.Accepted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// #endregion

// #region selfie-analyze

// UploadSelfieHandler runs biometric verification. Form fields: file,
// optional trigger_fail=true.
func (s *Server) UploadSelfieHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	app, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if app.Status != kyc.StatusPendingSelfie {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Cannot upload selfie. Application status is '%s'.", app.Status))
		return
	}

	_, name, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'file' in form-data")
		return
	}
	triggerFail := strings.EqualFold(r.FormValue("trigger_fail"), "true")

	updated, err := s.svc.UploadSelfie(r.Context(), id, name, triggerFail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// AnalyzeApplicationHandler runs the final risk analysis.
func (s *Server) AnalyzeApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	app, err := s.svc.Analyze(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// #endregion

// #region quality

type evaluateRequest struct {
	Blur     *float64 `json:"blur"`
	Glare    *float64 `json:"glare"`
	Shadow   *float64 `json:"shadow"`
	Coverage *float64 `json:"coverage"`
}

// EvaluateQualityHandler runs JSON metrics through the gate.
func (s *Server) EvaluateQualityHandler(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Blur == nil || req.Glare == nil || req.Shadow == nil || req.Coverage == nil {
		writeError(w, http.StatusBadRequest, "blur, glare, shadow and coverage are required")
		return
	}

	m := gate.Metrics{Blur: *req.Blur, Glare: *req.Glare, Shadow: *req.Shadow, Coverage: *req.Coverage}
	v, err := s.svc.EvaluateMetrics(r.Context(), m)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// AnalyzeFrameHandler measures an uploaded frame and evaluates it.
func (s *Server) AnalyzeFrameHandler(w http.ResponseWriter, r *http.Request) {
	frame, _, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'file' in form-data")
		return
	}
	res, err := s.svc.AnalyzeFrame(r.Context(), frame)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// #endregion

// #region helpers

func applicationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "Application not found")
		return "", false
	}
	return id.String(), true
}

// readUpload returns the "file" part of a multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit)
	if err := r.ParseMultipartForm(s.uploadLimit); err != nil {
		return nil, "", fmt.Errorf("parse form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("form file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kyc.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
	case errors.Is(err, kyc.ErrInvalidDocumentType),
		errors.Is(err, kyc.ErrInvalidTransition),
		errors.Is(err, gate.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrCaptureFailed):
		writeError(w, http.StatusUnprocessableEntity, orchestrator.CaptureFailedMessage)
	default:
		log.Printf("[api] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already sent, so an encode failure can only be logged.
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

// #endregion
