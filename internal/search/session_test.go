package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyIndex(t *testing.T) *Index {
	t.Helper()
	ix := NewIndex(&gatedSource{rows: fixtureRows()}, nil)
	require.NoError(t, ix.EnsureLoaded(context.Background()))
	return ix
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSessionLastTermWins(t *testing.T) {
	s := NewSession(readyIndex(t), 30*time.Millisecond, nil)
	defer s.Close()

	s.Submit("ac")
	s.Submit("acm")
	last, err := s.Submit("beta")
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	r := s.Latest()
	assert.Equal(t, "beta", r.Term)
	assert.Equal(t, last, r.Seq)
	require.Len(t, r.Matches, 1)
	assert.Equal(t, "beta-02", r.Matches[0].ID)
}

func TestSessionStaleEvaluationIsDiscarded(t *testing.T) {
	s := NewSession(readyIndex(t), time.Hour, nil)
	defer s.Close()

	stale, _ := s.Submit("acme")
	fresh, _ := s.Submit("gamma")

	// A superseded evaluation that fires late must not publish.
	s.evaluate("acme", stale)
	assert.Empty(t, s.Results())

	s.evaluate("gamma", fresh)
	r := s.Latest()
	assert.Equal(t, "gamma", r.Term)
	require.Len(t, r.Matches, 1)

	s.evaluate("acme", stale)
	assert.Equal(t, "gamma", s.Latest().Term)
}

func TestSessionShortTermClearsMatches(t *testing.T) {
	s := NewSession(readyIndex(t), 0, nil)
	defer s.Close()

	s.Submit("acme")
	require.NoError(t, s.Wait(waitCtx(t)))
	require.Len(t, s.Results(), 1)

	s.Submit("a")
	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Empty(t, s.Results())
}

func TestSessionSelect(t *testing.T) {
	s := NewSession(readyIndex(t), 0, nil)
	defer s.Close()

	s.Submit("retail")
	require.NoError(t, s.Wait(waitCtx(t)))
	require.Len(t, s.Results(), 2)

	assert.True(t, s.Select("gamma-03"))
	assert.Equal(t, "gamma-03", s.Selected())
	assert.Empty(t, s.Results())
}

func TestSessionSelectDropsPendingSearch(t *testing.T) {
	s := NewSession(readyIndex(t), time.Hour, nil)
	defer s.Close()

	seq, _ := s.Submit("acme")
	require.True(t, s.Select("beta-02"))
	require.NoError(t, s.Wait(waitCtx(t)), "select settles waiters")

	s.evaluate("acme", seq)
	assert.Empty(t, s.Results())
}

func TestSessionSelectNoopUntilReady(t *testing.T) {
	ix := NewIndex(&gatedSource{rows: fixtureRows()}, nil)
	s := NewSession(ix, 0, nil)
	defer s.Close()

	assert.False(t, s.Select("ACME-01"))
	assert.Empty(t, s.Selected())

	s.Submit("acme")
	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Empty(t, s.Results(), "search is empty while the index is not ready")
}

func TestSessionWaitHonoursContext(t *testing.T) {
	s := NewSession(readyIndex(t), time.Hour, nil)
	defer s.Close()

	assert.NoError(t, s.Wait(context.Background()), "nothing pending")

	s.Submit("acme")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestSessionCloseReleasesWaiters(t *testing.T) {
	s := NewSession(readyIndex(t), time.Hour, nil)
	s.Submit("acme")

	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background()) }()
	s.Close()
	s.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed, "the pending term was never published")
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
	assert.False(t, s.Select("ACME-01"))
}

func TestSessionClosedRejectsNewTerms(t *testing.T) {
	s := NewSession(readyIndex(t), 0, nil)

	seq, err := s.Submit("acme")
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))
	require.Equal(t, seq, s.Latest().Seq)

	s.Close()
	assert.NoError(t, s.Wait(waitCtx(t)), "the last published term still answers its request")

	_, err = s.Submit("gamma")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, s.Wait(waitCtx(t)))

	r := s.Latest()
	assert.Equal(t, "acme", r.Term)
	assert.Equal(t, seq, r.Seq)
}

func TestSessionClosedBeforePublishNeverAnswersWithOlderTerm(t *testing.T) {
	s := NewSession(readyIndex(t), time.Hour, nil)

	first, err := s.Submit("acme")
	require.NoError(t, err)
	s.evaluate("acme", first)
	require.Equal(t, "acme", s.Latest().Term)

	second, err := s.Submit("gamma")
	require.NoError(t, err)
	s.Close()
	s.evaluate("gamma", second)

	assert.ErrorIs(t, s.Wait(waitCtx(t)), ErrSessionClosed)
	assert.Equal(t, first, s.Latest().Seq)
}

func TestSessionIDsAreUnique(t *testing.T) {
	ix := readyIndex(t)
	a, b := NewSession(ix, 0, nil), NewSession(ix, 0, nil)
	defer a.Close()
	defer b.Close()
	assert.NotEqual(t, a.ID(), b.ID())
}
