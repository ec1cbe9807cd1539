package store

import (
	"errors"
	"testing"
	"time"
)

func testTime(sec int) time.Time {
	return time.Date(2026, 10, 14, 9, 0, sec, 0, time.UTC)
}

func TestSessionRepository_BeginFinish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	run, err := repo.Begin(testTime(0))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if run.ID == "" {
		t.Fatal("Begin() should assign an ID")
	}
	if run.State != RunStreaming {
		t.Errorf("State = %q, want streaming", run.State)
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.StoppedAt != nil {
		t.Error("StoppedAt should be nil while streaming")
	}
	if !got.StartedAt.Equal(testTime(0)) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, testTime(0))
	}

	if err := repo.Finish(run.ID, testTime(30), "HELLO"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State != RunStopped {
		t.Errorf("State = %q, want stopped", got.State)
	}
	if got.StoppedAt == nil || !got.StoppedAt.Equal(testTime(30)) {
		t.Errorf("StoppedAt = %v, want %v", got.StoppedAt, testTime(30))
	}
	if got.FinalText != "HELLO" {
		t.Errorf("FinalText = %q, want HELLO", got.FinalText)
	}
}

func TestSessionRepository_Fail(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	run, err := repo.Begin(testTime(0))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := repo.Fail(run.ID, testTime(5), "camera stream ended", "AB"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State != RunError || got.Error != "camera stream ended" || got.FinalText != "AB" {
		t.Errorf("got %+v", got)
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.Finish("missing", testTime(0), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
	if err := repo.Fail("missing", testTime(0), "x", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fail() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := repo.Begin(testTime(i * 10))
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		ids = append(ids, run.ID)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{ids[2], ids[1], ids[0]}},
		{"negative means all", -5, []string{ids[2], ids[1], ids[0]}},
		{"limited", 2, []string{ids[2], ids[1]}},
		{"more than stored", 10, []string{ids[2], ids[1], ids[0]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.List(tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("List() returned %d runs, want %d", len(runs), len(tt.want))
			}
			for i, run := range runs {
				if run.ID != tt.want[i] {
					t.Errorf("runs[%d] = %s, want %s", i, run.ID, tt.want[i])
				}
			}
		})
	}
}

func TestRecognitionRepository(t *testing.T) {
	s := newTestStore(t)

	run, err := s.Sessions().Begin(testTime(0))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	other, err := s.Sessions().Begin(testTime(1))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	texts := []string{"H", "HE", "HEL", ""}
	for i, text := range texts {
		rec, err := s.Recognitions().Append(run.ID, text, testTime(i))
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if rec.ID == 0 {
			t.Error("Append() should assign an ID")
		}
	}
	if _, err := s.Recognitions().Append(other.ID, "X", testTime(2)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	recs, err := s.Recognitions().ListBySession(run.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(recs) != len(texts) {
		t.Fatalf("ListBySession() returned %d, want %d", len(recs), len(texts))
	}
	for i, rec := range recs {
		if rec.Text != texts[i] {
			t.Errorf("recs[%d].Text = %q, want %q", i, rec.Text, texts[i])
		}
		if rec.SessionID != run.ID {
			t.Errorf("recs[%d].SessionID = %s, want %s", i, rec.SessionID, run.ID)
		}
	}

	t.Run("deleting a run cascades", func(t *testing.T) {
		if _, err := s.DB().Exec("DELETE FROM capture_sessions WHERE id = ?", run.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		recs, err := s.Recognitions().ListBySession(run.ID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("expected cascade delete, %d recognitions left", len(recs))
		}
	})
}
