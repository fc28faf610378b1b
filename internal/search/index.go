// Package search keeps an in-memory, deduplicated copy of the ledger's
// entities for incremental lookup, and per-user sessions that debounce
// queries against it.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"
)

const (
	// MaxResults caps the matches returned by one search.
	MaxResults = 10
	// MinTermLength is the shortest term, in runes, that is matched at all.
	MinTermLength = 2

	loadKey   = "load"
	reloadKey = "reload"
)

// IndexState is the lifecycle of the index: Empty, Loading, Ready.
type IndexState int32

const (
	StateEmpty IndexState = iota
	StateLoading
	StateReady
)

func (s IndexState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("IndexState(%d)", int32(s))
	}
}

// Index is safe for concurrent use. The published entity set is replaced
// wholesale on every load and never mutated in place.
type Index struct {
	source ledger.EntityLister
	logger *log.Logger
	loads  singleflight.Group

	// reloadWanted counts Reload calls; reloadDone is the highest call
	// covered by a finished read.
	reloadWanted atomic.Uint64
	reloadDone   atomic.Uint64

	mu       sync.RWMutex
	state    IndexState
	entities []core.Entity
}

func NewIndex(source ledger.EntityLister, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.ForComponent(log.ComponentSearch)
	}
	return &Index{source: source, logger: logger}
}

// EnsureLoaded reads the store on first use. Concurrent first callers share
// a single read. Once Ready, calls return immediately without I/O. A failed
// load leaves the index Empty so a later call can retry.
func (ix *Index) EnsureLoaded(ctx context.Context) error {
	if ix.State() == StateReady {
		return nil
	}
	return ix.do(ctx, loadKey, func(ctx context.Context) error {
		if ix.State() == StateReady {
			return nil
		}
		return ix.load(ctx, log.OpLoad)
	})
}

// Reload re-reads the store and swaps the set. Searches keep seeing the
// previous set until the swap, and keep it if the read fails. Concurrent
// callers share a read, but a caller never settles for one that began before
// its own call: it reads again once that one finishes.
func (ix *Index) Reload(ctx context.Context) error {
	if ix.State() != StateReady {
		return ix.EnsureLoaded(ctx)
	}
	want := ix.reloadWanted.Add(1)
	for ix.reloadDone.Load() < want {
		err := ix.do(ctx, reloadKey, func(ctx context.Context) error {
			covers := ix.reloadWanted.Load()
			if err := ix.load(ctx, log.OpReload); err != nil {
				return err
			}
			for {
				done := ix.reloadDone.Load()
				if done >= covers || ix.reloadDone.CompareAndSwap(done, covers) {
					return nil
				}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// do runs fn once per key across concurrent callers. The shared read is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func (ix *Index) do(ctx context.Context, key string, fn func(context.Context) error) error {
	shared := context.WithoutCancel(ctx)
	ch := ix.loads.DoChan(key, func() (any, error) {
		return nil, fn(shared)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ix *Index) load(ctx context.Context, op string) error {
	ix.mu.Lock()
	if ix.state != StateReady {
		ix.state = StateLoading
	}
	ix.mu.Unlock()

	start := time.Now()
	rows, err := ix.source.ListEntities(ctx)
	if err != nil {
		ix.mu.Lock()
		if ix.state == StateLoading {
			ix.state = StateEmpty
		}
		ix.mu.Unlock()
		ix.logger.ErrorContext(ctx, "Search index load failed", log.FieldOperation, op, log.FieldIndexState, ix.State(), log.FieldError, err)
		return fmt.Errorf("load search index: %w", err)
	}

	set := Dedupe(rows)

	ix.mu.Lock()
	ix.entities = set
	ix.state = StateReady
	ix.mu.Unlock()

	ix.logger.InfoContext(ctx, "Search index ready",
		log.FieldOperation, op,
		log.FieldIndexState, StateReady,
		"rows", len(rows),
		log.FieldCount, len(set),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Search returns up to MaxResults entities whose ID or sector contains term,
// case-insensitively, in index order. Terms shorter than MinTermLength, or
// an index that is not Ready, yield an empty result.
func (ix *Index) Search(term string) []core.Entity {
	out := make([]core.Entity, 0)
	if utf8.RuneCountInString(term) < MinTermLength {
		return out
	}
	needle := strings.ToLower(term)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.state != StateReady {
		return out
	}

	seen := make(map[string]struct{}, MaxResults)
	for _, e := range ix.entities {
		if len(out) == MaxResults {
			break
		}
		if !strings.Contains(strings.ToLower(e.ID), needle) &&
			!strings.Contains(strings.ToLower(e.Sector), needle) {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, cloneEntity(e))
	}
	return out
}

func (ix *Index) State() IndexState {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

// Len is the number of distinct entities in the published set.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entities)
}

// Dedupe keeps the first row seen for each entity ID, preserving order.
func Dedupe(rows []core.Entity) []core.Entity {
	seen := make(map[string]struct{}, len(rows))
	out := make([]core.Entity, 0, len(rows))
	for _, e := range rows {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, cloneEntity(e))
	}
	return out
}

func cloneEntity(e core.Entity) core.Entity {
	if e.Revenue != nil {
		e.Revenue = core.MoneyPtr(e.Revenue.Cents)
	}
	if e.Balance != nil {
		e.Balance = core.MoneyPtr(e.Balance.Cents)
	}
	return e
}
