package frameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

type handler struct {
	frames Frames
	logger ports.Logger
}

// Health handles GET /health.
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats handles GET /stats.
func (h *handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.frames.Stats())
}

// Probe handles GET /probe/{path}.
func (h *handler) Probe(w http.ResponseWriter, r *http.Request) {
	path := getPathParam(r)
	if path == "" {
		writeError(w, r, http.StatusBadRequest, "missing path")
		return
	}
	refresh, err := intParam(r.URL.Query().Get("refresh"), 0)
	if err != nil || refresh < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid refresh")
		return
	}

	res, err := h.frames.Probe(r.Context(), path, refresh)
	if err != nil {
		h.fail(w, r, "Failed to probe: %s", err)
		return
	}
	writeJSON(w, http.StatusOK, newProbeResponse(res))
}

// Frame handles GET /frames/{frame}/{path}. Absolute paths keep their
// leading slash: /frames/12//shots/a.mov.
func (h *handler) Frame(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseFrameRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, img, err := h.frames.EncodeFrame(r.Context(), req, format)
	if err != nil {
		h.fail(w, r, "Failed to read frame: %s", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(headerFrame, strconv.Itoa(img.Frame))
	w.Header().Set(headerColorSpace, img.ColorSpace)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Invalidate handles POST /invalidate/{path}.
func (h *handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	path := getPathParam(r)
	if path == "" {
		writeError(w, r, http.StatusBadRequest, "missing path")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":    path,
		"retired": h.frames.Invalidate(path),
	})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn(msg, err.Error())
	}
	writeError(w, r, status, err.Error())
}

// statusFor maps the pipeline error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest),
		errors.Is(err, pipeline.ErrUnknownColorSpace):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound),
		errors.Is(err, pipeline.ErrStreamNotFound),
		errors.Is(err, pipeline.ErrFrameNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoVideoStream),
		errors.Is(err, pipeline.ErrUnknownFormat),
		errors.Is(err, pipeline.ErrUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrCodecFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosed is logged when the caller went away mid-read.
const statusClientClosed = 499

func getPathParam(r *http.Request) string {
	value := mux.Vars(r)["path"]
	if value != "" {
		return value
	}
	return r.URL.Query().Get("path")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestIDFrom(r.Context())})
}
