package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/capture"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/session"
)

// Controller is the part of the application the session API drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Reset(ctx context.Context) string
	SetViewport(width, height int)
	Status() app.Status
}

// SessionHandler handles /api/session and its actions.
type SessionHandler struct {
	ctrl   Controller
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler for ctrl.
func NewSessionHandler(ctrl Controller, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{ctrl: ctrl, logger: log.Component(logger, "api.session")}
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ServeHTTP routes /api/session, /api/session/start, /stop, /reset and /viewport.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.Trim(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Status())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "start":
		h.start(w, r)
	case "stop":
		h.ctrl.Stop()
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case "reset":
		h.ctrl.Reset(r.Context())
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case "viewport":
		h.viewport(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown session action")
	}
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.Start(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, h.ctrl.Status())
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, capture.ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrStartAborted):
		status = http.StatusConflict
	}

	h.logger.Warn("start failed", "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error(), State: h.ctrl.Status().State})
}

func (h *SessionHandler) viewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "Width and height must be positive")
		return
	}

	h.ctrl.SetViewport(req.Width, req.Height)
	w.WriteHeader(http.StatusNoContent)
}
