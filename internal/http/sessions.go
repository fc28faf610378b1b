package http

import (
	"sync"
	"time"

	"ledgerbi/internal/cache"
	"ledgerbi/internal/log"
	"ledgerbi/internal/search"
)

// SessionHeader carries the search session id in both directions.
const SessionHeader = "X-Search-Session"

// sessionStore keeps one search.Session per client in an LRU with TTL.
// Sessions leaving the cache for any reason are closed.
type sessionStore struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[*search.Session]
	index    *search.Index
	debounce time.Duration
	logger   *log.Logger
}

func newSessionStore(index *search.Index, debounce, ttl time.Duration, max int, logger *log.Logger) *sessionStore {
	st := &sessionStore{
		index:    index,
		debounce: debounce,
		logger:   logger,
	}
	st.sessions = cache.NewLRUCache[*search.Session](max, ttl).OnEvict(func(id string, s *search.Session) {
		s.Close()
		st.logger.Debug("Search session closed", log.FieldSessionID, id)
	})
	return st
}

// lookup returns the live session for id.
func (st *sessionStore) lookup(id string) (*search.Session, bool) {
	if id == "" {
		return nil, false
	}
	return st.sessions.Get(id)
}

// obtain returns the session for id, or a new one when id is empty or no
// longer live.
func (st *sessionStore) obtain(id string) *search.Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.lookup(id); ok {
		return s
	}
	s := search.NewSession(st.index, st.debounce, st.logger)
	st.sessions.Set(s.ID(), s)
	st.logger.Debug("Search session opened", log.FieldSessionID, s.ID())
	return s
}

func (st *sessionStore) size() int {
	return st.sessions.Size()
}

func (st *sessionStore) closeAll() int {
	return st.sessions.Purge()
}
