package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/capture"
	"github.com/ayusman/handsign/internal/config"
	"github.com/ayusman/handsign/internal/detector"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/store"
)

// newIdleApp builds an application that is never started, so no classifier
// or camera is touched.
func newIdleApp(t *testing.T) (*app.App, *store.Store) {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "idle.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	a, err := app.New(app.Config{
		Settings: config.Default(),
		Store:    db,
		Devices:  capture.NewMockDevices([]*gocv.Mat{}, false),
		Driver:   capture.NewTickerDriver(10, log.Discard()),
		Detector: detector.NewMockDetector(),
		Logger:   log.Discard(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, db
}

func decodeHealth(t *testing.T, s *Server) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return body
}

func TestServer_Health(t *testing.T) {
	t.Run("without a session", func(t *testing.T) {
		body := decodeHealth(t, New(Config{}))
		if body["status"] != "ok" {
			t.Errorf("status = %v, want ok", body["status"])
		}
		if _, ok := body["uptime"]; !ok {
			t.Error("missing uptime")
		}
		if _, ok := body["session"]; ok {
			t.Errorf("session = %v, want absent without an app", body["session"])
		}
	})

	t.Run("reports the session state", func(t *testing.T) {
		a, _ := newIdleApp(t)
		body := decodeHealth(t, New(Config{App: a}))
		if body["session"] != "idle" {
			t.Errorf("session = %v, want idle", body["session"])
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		s := New(Config{})
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s: status = %d, want 405", method, rec.Code)
			}
		}
	})
}

func TestServer_Routes(t *testing.T) {
	a, db := newIdleApp(t)

	tests := []struct {
		name string
		cfg  Config
		path string
		want int
	}{
		{"session needs an app", Config{}, "/api/session", http.StatusNotFound},
		{"stream needs an app", Config{}, "/api/stream", http.StatusNotFound},
		{"events need an app", Config{}, "/api/events", http.StatusNotFound},
		{"journal needs a store", Config{App: a}, "/api/sessions", http.StatusNotFound},
		{"session status", Config{App: a}, "/api/session", http.StatusOK},
		{"session action is POST only", Config{App: a}, "/api/session/start", http.StatusMethodNotAllowed},
		// A plain GET is refused by the websocket upgrade, not the mux.
		{"events", Config{App: a}, "/api/events", http.StatusBadRequest},
		{"journal list", Config{Store: db}, "/api/sessions", http.StatusOK},
		{"journal run", Config{Store: db}, "/api/sessions/missing", http.StatusNotFound},
		{"unknown api path", Config{App: a, Store: db}, "/api/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestServer_SessionStatus(t *testing.T) {
	a, _ := newIdleApp(t)

	rec := httptest.NewRecorder()
	New(Config{App: a}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	var st app.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != "idle" || st.Text != "" {
		t.Errorf("status = %+v, want idle with no text", st)
	}
}

func TestServer_StreamHeaders(t *testing.T) {
	a, _ := newIdleApp(t)

	// The client is already gone, so the handler returns after the headers.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	New(Config{App: a}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}
	if a.Preview().Watching() {
		t.Error("preview still watched after the client left")
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := `<html><body><img id="preview"></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("write index.html: %v", err)
	}
	script := "console.log('handsign')"
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(script), 0644); err != nil {
		t.Fatalf("write app.js: %v", err)
	}

	a, _ := newIdleApp(t)
	withStatic := New(Config{StaticDir: dir, App: a})

	tests := []struct {
		name     string
		s        *Server
		path     string
		want     int
		wantBody string
	}{
		{"index at root", withStatic, "/", http.StatusOK, index},
		{"script", withStatic, "/app.js", http.StatusOK, script},
		{"missing file", withStatic, "/nonexistent.html", http.StatusNotFound, ""},
		{"no static dir", New(Config{}), "/", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	t.Run("api routes win over static files", func(t *testing.T) {
		rec := httptest.NewRecorder()
		withStatic.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("Content-Type = %q, want the session JSON", ct)
		}
	})
}
