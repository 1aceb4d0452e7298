package scan

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/zombor/nutriscan/internal/capture"
	"github.com/zombor/nutriscan/internal/scanning"
)

// maxUploadSize bounds uploads (high-resolution phone photos run large)
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes an error response with CORS headers set
func writeJSONError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeError maps a service error onto an HTTP status
func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	message := err.Error()

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		message = analysisErr.Message
	}
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", code, "error", err)
	}
	writeJSONError(w, message, code)
}

func statusFor(err error) int {
	var analysisErr *AnalysisError
	switch {
	case errors.As(err, &analysisErr):
		if analysisErr.StatusCode >= 400 {
			return analysisErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, scanning.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrNoActiveStream),
		errors.Is(err, capture.ErrInvalidState),
		errors.Is(err, capture.ErrStopped),
		errors.Is(err, ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// clientID identifies the caller: the X-Client-ID header, else the remote host
func clientID(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleRoot describes the service
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Nutriscan food analysis API",
		"version": s.version,
		"endpoints": map[string]string{
			"scan":   "/api/scans",
			"camera": "/api/camera",
			"health": "/health",
		},
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.version,
		"camera":  s.service.CameraEnabled(),
	})
}

// handleUploadScan scans an uploaded photo
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a photo to upload."
		}
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	report, err := s.service.ScanUpload(r.Context(), clientID(r), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("Error scanning upload", "filename", header.Filename, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// handleGetScan returns a recently produced report
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleGetImage returns the stored photo behind a report
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetImage(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleCameraStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.CameraStatus(clientID(r)))
}

// handleCameraStart opens the camera; the body may name a facing mode
func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Facing string `json:"facing"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	facing, err := capture.ParseFacing(req.Facing)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := s.service.StartCamera(r.Context(), clientID(r), facing)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCameraSwitch(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.SwitchCamera(r.Context(), clientID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.StopCamera(clientID(r)))
}

// handleCameraScan captures a still from the live camera and scans it
func (s *Server) handleCameraScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.ScanCamera(r.Context(), clientID(r))
	if err != nil {
		slog.Error("Error scanning camera still", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
