package server

import (
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	// Registered formats for uploaded screenshots.
	_ "image/jpeg"
	_ "image/png"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/pipeline"
	"github.com/chartflow/chartflow/internal/version"
)

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ExtractResponse is the extraction endpoint payload.
type ExtractResponse struct {
	Success    bool                `json:"success"`
	Record     patient.Record      `json:"record"`
	Dialect    dialect.Detection   `json:"dialect"`
	Validation pipeline.Validation `json:"validation"`
}

// LocateResponse is the localization endpoint payload.
type LocateResponse struct {
	Success bool          `json:"success"`
	Result  locate.Result `json:"result"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// extractHandler accepts a multipart screenshot upload and returns the
// extracted record without publishing it.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	img, ok := s.readImageUpload(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	rec, det, validation, err := s.pipeline.ProcessImage(ctx, img)
	if err != nil {
		extractionsTotal.WithLabelValues("unknown", "error").Inc()
		slog.Error("Extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	extractionDuration.WithLabelValues(det.ProfileID).Observe(time.Since(start).Seconds())
	status := "complete"
	if !validation.Complete {
		status = "incomplete"
	}
	extractionsTotal.WithLabelValues(det.ProfileID, status).Inc()

	writeJSON(w, http.StatusOK, ExtractResponse{
		Success:    true,
		Record:     rec,
		Dialect:    det,
		Validation: validation,
	})
}

// locateHandler accepts a screenshot plus a target description and returns
// the resolved pointer coordinate.
func (s *Server) locateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	img, ok := s.readImageUpload(w, r)
	if !ok {
		return
	}
	target := r.FormValue("target")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing 'target' field")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.pipeline.LocateInImage(ctx, img, target)
	if err != nil {
		locatesTotal.WithLabelValues("error").Inc()
		slog.Error("Locate failed", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("locate failed: %v", err))
		return
	}
	if res.Found {
		locatesTotal.WithLabelValues("found").Inc()
	} else {
		locatesTotal.WithLabelValues("not_found").Inc()
	}

	writeJSON(w, http.StatusOK, LocateResponse{Success: true, Result: res})
}

// readImageUpload parses the multipart "image" field. On failure it writes
// the error response itself and reports ok=false.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	if err := r.ParseMultipartForm(s.maxUploadMB << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return nil, false
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'image' file")
		return nil, false
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode image: %v", err))
		return nil, false
	}
	return img, true
}
