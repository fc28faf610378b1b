package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ledgerbi/internal/core"
	"ledgerbi/internal/log"
)

// DefaultDebounce is the quiet period before a submitted term is evaluated.
const DefaultDebounce = 300 * time.Millisecond

// ErrSessionClosed is returned for requests a closed session can no longer
// answer.
var ErrSessionClosed = errors.New("search session closed")

// Result is the visible match list and the request it answers.
type Result struct {
	Term    string        `json:"term"`
	Seq     uint64        `json:"seq"`
	Matches []core.Entity `json:"matches"`
}

// Session is one user's interactive search against a shared Index. Only the
// most recently submitted term is ever published: each Submit takes a new
// sequence token and an evaluation whose token is no longer the latest is
// discarded.
type Session struct {
	id       string
	index    *Index
	debounce time.Duration
	logger   *log.Logger

	seq atomic.Uint64

	mu       sync.Mutex
	timer    *time.Timer
	pending  chan struct{} // closed once the latest token is settled
	latest   Result
	selected string
	closed   bool
}

func NewSession(index *Index, debounce time.Duration, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.ForComponent(log.ComponentSearch)
	}
	if debounce < 0 {
		debounce = 0
	}
	return &Session{
		id:       uuid.NewString(),
		index:    index,
		debounce: debounce,
		logger:   logger,
		latest:   Result{Matches: []core.Entity{}},
	}
}

func (s *Session) ID() string {
	return s.id
}

// Submit schedules term for evaluation after the debounce window and
// supersedes any earlier term that has not been published yet. It returns
// the request's sequence token, or ErrSessionClosed once Close has run.
func (s *Session) Submit(term string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}
	seq := s.seq.Add(1)
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.pending == nil {
		s.pending = make(chan struct{})
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.evaluate(term, seq) })
	return seq, nil
}

func (s *Session) evaluate(term string, seq uint64) {
	if s.seq.Load() != seq {
		return
	}

	matches := s.index.Search(term)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.seq.Load() != seq {
		s.logger.Debug("Discarded stale search", log.FieldSessionID, s.id, log.FieldTerm, term, log.FieldSequence, seq)
		return
	}
	s.latest = Result{Term: term, Seq: seq, Matches: matches}
	s.settle()

	s.logger.Debug("Search published",
		log.FieldSessionID, s.id,
		log.FieldTerm, term,
		log.FieldSequence, seq,
		log.FieldCount, len(matches))
}

// settle releases Wait callers. Caller holds mu.
func (s *Session) settle() {
	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
}

// Wait blocks until the latest submitted term has been published, or ctx is
// done. It returns immediately when nothing is pending. If the session was
// closed before the latest term was published, Wait returns
// ErrSessionClosed and Latest still holds an older result.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.pending
	s.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && s.latest.Seq != s.seq.Load() {
		return ErrSessionClosed
	}
	return nil
}

// Results returns a copy of the visible match list.
func (s *Session) Results() []core.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entity{}, s.latest.Matches...)
}

func (s *Session) Latest() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.latest
	r.Matches = append([]core.Entity{}, s.latest.Matches...)
	return r
}

// Select records entityID as the active selection and clears the visible
// match list. Any search still waiting to publish is dropped. It does
// nothing and reports false unless the index is Ready.
func (s *Session) Select(entityID string) bool {
	if s.index.State() != StateReady {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	seq := s.seq.Add(1)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.selected = entityID
	s.latest = Result{Term: s.latest.Term, Seq: seq, Matches: []core.Entity{}}
	s.settle()

	s.logger.Debug("Entity selected", log.FieldOperation, log.OpSelect, log.FieldSessionID, s.id, log.FieldEntityID, entityID)
	return true
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Close stops any pending evaluation and releases waiters. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.settle()
}
