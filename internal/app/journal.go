package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/handsign/internal/session"
	"github.com/ayusman/handsign/internal/store"
)

// journalBuffer bounds the entries queued ahead of the writer.
const journalBuffer = 256

type journalKind int

const (
	journalBegin journalKind = iota
	journalText
	journalFinish
	journalFail
	journalFlush
)

type journalEntry struct {
	kind   journalKind
	at     time.Time
	text   string
	reason string
	done   chan struct{}
}

// journal writes run records to the store on its own goroutine, in the order
// they were queued. Callers under the session lock only enqueue.
type journal struct {
	store   *store.Store
	logger  *slog.Logger
	entries chan journalEntry
	done    chan struct{}

	mu     sync.Mutex
	closed bool

	// run is owned by loop.
	run *store.Run
}

func newJournal(s *store.Store, logger *slog.Logger) *journal {
	j := &journal{
		store:   s,
		logger:  logger,
		entries: make(chan journalEntry, journalBuffer),
		done:    make(chan struct{}),
	}
	go j.loop()
	return j
}

// enqueue blocks only when journalBuffer entries are already waiting. It
// reports false once the journal is closed.
func (j *journal) enqueue(e journalEntry) bool {
	if j == nil {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return false
	}
	j.entries <- e
	return true
}

// flush waits until every entry queued so far is written.
func (j *journal) flush() {
	if j == nil {
		return
	}
	done := make(chan struct{})
	if j.enqueue(journalEntry{kind: journalFlush, done: done}) {
		<-done
	}
}

// close drains the queue and stops the writer. Later entries are dropped.
func (j *journal) close() {
	if j == nil {
		return
	}
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.entries)
	}
	j.mu.Unlock()
	<-j.done
}

func (j *journal) loop() {
	defer close(j.done)
	for e := range j.entries {
		j.write(e)
	}
}

// write applies one entry. Journal failures are logged; they never affect capture.
func (j *journal) write(e journalEntry) {
	switch e.kind {
	case journalFlush:
		close(e.done)

	case journalBegin:
		j.begin(e.at)

	case journalText:
		if j.run == nil {
			return
		}
		if _, err := j.store.Recognitions().Append(j.run.ID, e.text, e.at); err != nil {
			j.logger.Warn("journal append failed", "session_id", j.run.ID, "error", err)
		}

	case journalFinish:
		if j.run == nil {
			return
		}
		if err := j.store.Sessions().Finish(j.run.ID, e.at, e.text); err != nil {
			j.logger.Warn("journal finish failed", "session_id", j.run.ID, "error", err)
		}
		j.run = nil

	case journalFail:
		// A failed acquisition never opened a run, record the attempt anyway.
		if j.run == nil && !j.begin(e.at) {
			return
		}
		if err := j.store.Sessions().Fail(j.run.ID, e.at, e.reason, e.text); err != nil {
			j.logger.Warn("journal fail failed", "session_id", j.run.ID, "error", err)
		}
		j.run = nil
	}
}

func (j *journal) begin(at time.Time) bool {
	run, err := j.store.Sessions().Begin(at)
	if err != nil {
		j.logger.Warn("journal begin failed", "error", err)
		j.run = nil
		return false
	}
	j.run = run
	return true
}

// journalState queues run boundaries. Must be called with a.mu held.
func (a *App) journalState(state session.State, err error) {
	e := journalEntry{at: a.now(), text: a.text}
	switch state {
	case session.Streaming:
		e.kind = journalBegin
	case session.Stopped:
		e.kind = journalFinish
	case session.Error:
		e.kind = journalFail
		if err != nil {
			e.reason = err.Error()
		}
	default:
		return
	}
	a.journal.enqueue(e)
}

// journalText queues a displayed text change. Must be called with a.mu held.
func (a *App) journalText(text string) {
	a.journal.enqueue(journalEntry{kind: journalText, at: a.now(), text: text})
}
