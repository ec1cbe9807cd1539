package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/capture"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/session"
)

type fakeController struct {
	mu       sync.Mutex
	startErr error
	state    string
	text     string
	stops    int
	viewport [2]int
}

func (c *fakeController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		c.state = "error"
		return c.startErr
	}
	c.state = "streaming"
	return nil
}

func (c *fakeController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.state = "stopped"
}

func (c *fakeController) Reset(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
	return c.text
}

func (c *fakeController) SetViewport(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = [2]int{width, height}
}

func (c *fakeController) Status() app.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return app.Status{State: c.state, Text: c.text}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionHandler_Status(t *testing.T) {
	ctrl := &fakeController{state: "idle", text: "HI"}
	h := NewSessionHandler(ctrl, log.Discard())

	rec := do(t, h, http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st app.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "idle" || st.Text != "HI" {
		t.Errorf("status = %+v", st)
	}

	if rec := do(t, h, http.MethodPost, "/api/session", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/session status = %d, want 405", rec.Code)
	}
}

func TestSessionHandler_Start(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantState  string
	}{
		{"success", nil, http.StatusOK, "streaming"},
		{"permission denied", fmt.Errorf("start capture: %w", capture.ErrPermissionDenied), http.StatusForbidden, "error"},
		{"no device", fmt.Errorf("start capture: %w", capture.ErrDeviceUnavailable), http.StatusServiceUnavailable, "error"},
		{"aborted", session.ErrStartAborted, http.StatusConflict, "error"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{state: "idle", startErr: tt.err}
			rec := do(t, NewSessionHandler(ctrl, log.Discard()), http.MethodPost, "/api/session/start", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				State string `json:"state"`
				Error string `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.State != tt.wantState {
				t.Errorf("state = %q, want %q", body.State, tt.wantState)
			}
			if (tt.err != nil) != (body.Error != "") {
				t.Errorf("error = %q", body.Error)
			}
		})
	}
}

func TestSessionHandler_Actions(t *testing.T) {
	ctrl := &fakeController{state: "streaming", text: "AB"}
	h := NewSessionHandler(ctrl, log.Discard())

	t.Run("stop", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/session/stop", "")
		if rec.Code != http.StatusOK || ctrl.stops != 1 {
			t.Errorf("status = %d, stops = %d", rec.Code, ctrl.stops)
		}
	})

	t.Run("reset", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/session/reset", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ctrl.Status().Text != "" {
			t.Errorf("text = %q, want cleared", ctrl.Status().Text)
		}
	})

	t.Run("viewport", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/session/viewport", `{"width": 320, "height": 240}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if ctrl.viewport != [2]int{320, 240} {
			t.Errorf("viewport = %v", ctrl.viewport)
		}
	})

	t.Run("bad viewport", func(t *testing.T) {
		for _, body := range []string{`{"width": 0, "height": 240}`, `not json`, `{"width": -1, "height": -1}`} {
			if rec := do(t, h, http.MethodPost, "/api/session/viewport", body); rec.Code != http.StatusBadRequest {
				t.Errorf("body %q: status = %d, want 400", body, rec.Code)
			}
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		if rec := do(t, h, http.MethodPost, "/api/session/dance", ""); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("actions require POST", func(t *testing.T) {
		if rec := do(t, h, http.MethodGet, "/api/session/start", ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}
