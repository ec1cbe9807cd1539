package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/handsign/internal/app"
)

// StreamHandler serves the composited preview as MJPEG.
type StreamHandler struct {
	preview *app.Preview
}

// NewStreamHandler creates a new StreamHandler for the given preview.
func NewStreamHandler(preview *app.Preview) *StreamHandler {
	return &StreamHandler{preview: preview}
}

// ServeHTTP streams MJPEG frames until the client goes away or the preview closes.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	unwatch := h.preview.Watch()
	defer unwatch()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	var last uint64
	for {
		jpeg, version, err := h.preview.Next(r.Context(), last)
		if err != nil {
			return
		}
		last = version

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
