package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ledgerbi/internal/core"
	"ledgerbi/internal/log"
	"ledgerbi/internal/search"
	"ledgerbi/internal/services"
)

type healthResponse struct {
	Status     string `json:"status"`
	Index      string `json:"index"`
	Indexed    int    `json:"indexed"`
	Sessions   int    `json:"sessions"`
	Requests   any    `json:"requests"`
	RateLimit  any    `json:"rate_limit"`
	Suspicious int64  `json:"suspicious_requests"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, healthResponse{
		Status:     "ok",
		Index:      s.index.State().String(),
		Indexed:    s.index.Len(),
		Sessions:   s.sessions.size(),
		Requests:   s.tracer.GetMetrics(),
		RateLimit:  s.limiter.GetMetrics(),
		Suspicious: s.detector.GetMetrics().SuspiciousRequests,
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		writeError(w, r, fmt.Errorf("list entities: %w", err))
		return
	}
	writeData(w, r, nonNil(entities))
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		writeError(w, r, fmt.Errorf("entity %s: %w", id, err))
		return
	}
	writeData(w, r, entity)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	txs, err := s.store.RecentTransactions(ctx, limit)
	if err != nil {
		writeError(w, r, fmt.Errorf("recent transactions: %w", err))
		return
	}
	writeData(w, r, nonNil(txs))
}

func (s *Server) handleEntityTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	summary, err := s.classifier.ClassifyForEntity(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, summary)
}

// handleStatistics always answers 200: failed metrics are reported inline.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	report := s.stats.ComputeStatistics(ctx)
	if failed := report.Failed(); len(failed) > 0 {
		log.FromContext(ctx).WarnContext(ctx, "Statistics incomplete", "failed", failed)
	}
	writeData(w, r, report)
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	groups, err := s.rollup.ComputeSectorRollup(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, nonNil(services.TopSectors(groups, top)))
}

// handleSearch submits term to the caller's session and answers with
// whatever the session publishes once the latest submission settles. A
// newer request on the same session supersedes this one, in which case the
// newer term's result is returned.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.index.EnsureLoaded(ctx); err != nil {
		writeError(w, r, fmt.Errorf("search index: %w", err))
		return
	}

	term := sanitizeInput(r.URL.Query().Get("term"))
	session, seq, err := s.submitSearch(ctx, r.Header.Get(SessionHeader), term)
	if err != nil {
		writeError(w, r, fmt.Errorf("search: %w", err))
		return
	}
	w.Header().Set(SessionHeader, session.ID())

	result := session.Latest()
	log.NewStructuredLogger(log.FromContext(ctx)).LogSearch(ctx, session.ID(), term, seq, len(result.Matches))
	writeData(w, r, search.Result{Term: result.Term, Seq: result.Seq, Matches: nonNil(result.Matches)})
}

// maxSessionAttempts bounds how often a search moves to a fresh session after
// the one it was running on got evicted.
const maxSessionAttempts = 3

// submitSearch runs term on the session for id and waits for it to settle.
// A session closed underneath the request is replaced by a new one.
func (s *Server) submitSearch(ctx context.Context, id, term string) (*search.Session, uint64, error) {
	var err error
	for range maxSessionAttempts {
		session := s.sessions.obtain(id)
		var seq uint64
		if seq, err = session.Submit(term); err == nil {
			err = session.Wait(ctx)
		}
		if !errors.Is(err, search.ErrSessionClosed) {
			return session, seq, err
		}
		log.FromContext(ctx).DebugContext(ctx, "Search session closed mid-request",
			log.FieldSessionID, session.ID(), log.FieldTerm, term)
		id = ""
	}
	return nil, 0, err
}

type selectResponse struct {
	Session  string `json:"session"`
	Selected string `json:"selected"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSelect(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, ok := s.sessions.lookup(r.Header.Get(SessionHeader))
	if !ok {
		writeError(w, r, fmt.Errorf("search session: %w", core.ErrNotFound))
		return
	}
	w.Header().Set(SessionHeader, session.ID())

	if !session.Select(req.ID) {
		writeErrorStatus(w, r, http.StatusConflict, "search index is not ready")
		return
	}
	writeData(w, r, selectResponse{Session: session.ID(), Selected: session.Selected()})
}
