package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/handsign/internal/store"
)

// defaultListLimit caps /api/sessions when no limit is given.
const defaultListLimit = 50

// JournalHandler serves the capture session journal.
type JournalHandler struct {
	store *store.Store
}

// NewJournalHandler creates a JournalHandler with the given store.
func NewJournalHandler(s *store.Store) *JournalHandler {
	return &JournalHandler{store: s}
}

type runResponse struct {
	ID        string  `json:"id"`
	StartedAt string  `json:"started_at"`
	StoppedAt *string `json:"stopped_at,omitempty"`
	State     string  `json:"state"`
	Error     string  `json:"error,omitempty"`
	FinalText string  `json:"final_text"`
}

type recognitionResponse struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type listRunsResponse struct {
	Sessions []runResponse `json:"sessions"`
}

type runDetailResponse struct {
	runResponse
	Recognitions []recognitionResponse `json:"recognitions"`
}

func toRunResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:        run.ID,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		State:     string(run.State),
		Error:     run.Error,
		FinalText: run.FinalText,
	}
	if run.StoppedAt != nil {
		s := run.StoppedAt.Format(time.RFC3339)
		resp.StoppedAt = &s
	}
	return resp
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *JournalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	id = strings.Trim(id, "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

// list handles GET /api/sessions?limit=n, newest first.
func (h *JournalHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listRunsResponse{Sessions: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		response.Sessions = append(response.Sessions, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} with the run's recognized text.
func (h *JournalHandler) get(w http.ResponseWriter, id string) {
	run, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	recs, err := h.store.Recognitions().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recognitions")
		return
	}

	response := runDetailResponse{
		runResponse:  toRunResponse(run),
		Recognitions: make([]recognitionResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		response.Recognitions = append(response.Recognitions, recognitionResponse{
			Text:      rec.Text,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
