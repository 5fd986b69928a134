// Package api exposes the verification workflow over HTTP.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/danielpatrickdp/smartkyc/internal/orchestrator"
)

// DefaultUploadLimit caps multipart uploads.
const DefaultUploadLimit int64 = 10 << 20

// Server holds the handler dependencies.
type Server struct {
	svc         *orchestrator.Service
	uploadLimit int64
}

// NewServer returns a server over svc. A non-positive uploadLimit uses
// DefaultUploadLimit.
func NewServer(svc *orchestrator.Service, uploadLimit int64) *Server {
	if uploadLimit <= 0 {
		uploadLimit = DefaultUploadLimit
	}
	return &Server{svc: svc, uploadLimit: uploadLimit}
}

// NewRouter wires every route.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/applications/start/", s.StartApplicationHandler).Methods("POST")
	v1.HandleFunc("/applications/{id}/", s.GetApplicationHandler).Methods("GET")
	v1.HandleFunc("/applications/{id}/document/", s.UploadDocumentHandler).Methods("POST")
	v1.HandleFunc("/applications/{id}/selfie/", s.UploadSelfieHandler).Methods("POST")
	v1.HandleFunc("/applications/{id}/analyze/", s.AnalyzeApplicationHandler).Methods("POST")
	v1.HandleFunc("/applications/{id}/captures/", s.ListCapturesHandler).Methods("GET")
	v1.HandleFunc("/quality/evaluate", s.EvaluateQualityHandler).Methods("POST")
	v1.HandleFunc("/quality/analyze", s.AnalyzeFrameHandler).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}
