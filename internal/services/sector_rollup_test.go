package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger/memory"
)

func TestBuildSectorRollup(t *testing.T) {
	entities := []core.Entity{
		{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000), Balance: core.MoneyPtr(100)},
		{ID: "B", Sector: "X", Revenue: core.MoneyPtr(2000)},
		{ID: "C", Sector: "Y", Revenue: core.MoneyPtr(5000), Balance: core.MoneyPtr(-40)},
		{ID: "D", Revenue: core.MoneyPtr(9999)},
		{ID: "E", Sector: "W"},
	}

	groups := BuildSectorRollup(entities)

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"Y", "X", "W"}, []string{groups[0].Sector, groups[1].Sector, groups[2].Sector})

	x := groups[1]
	assert.Equal(t, int64(2), x.Count)
	assert.Equal(t, int64(3000), x.RevenueTotal.Cents)
	assert.True(t, x.RevenueAverage.Equal(decimal.NewFromInt(1500)), x.RevenueAverage.String())
	assert.Equal(t, int64(100), x.BalanceTotal.Cents)
	assert.True(t, x.BalanceAverage.Equal(decimal.NewFromInt(50)))

	w := groups[2]
	assert.Equal(t, int64(1), w.Count)
	assert.Zero(t, w.RevenueTotal.Cents)
	assert.True(t, w.RevenueAverage.IsZero())
}

func TestBuildSectorRollupTiesBySector(t *testing.T) {
	groups := BuildSectorRollup([]core.Entity{
		{ID: "1", Sector: "b", Revenue: core.MoneyPtr(10)},
		{ID: "2", Sector: "a", Revenue: core.MoneyPtr(10)},
		{ID: "3", Sector: "c", Revenue: core.MoneyPtr(10)},
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0].Sector)
	assert.Equal(t, "b", groups[1].Sector)
	assert.Equal(t, "c", groups[2].Sector)
}

func TestBuildSectorRollupEmpty(t *testing.T) {
	assert.Empty(t, BuildSectorRollup(nil))
	assert.Empty(t, BuildSectorRollup([]core.Entity{{ID: "A"}, {ID: "B", Sector: "  "}}))
}

func TestBuildSectorRollupFractionalAverage(t *testing.T) {
	groups := BuildSectorRollup([]core.Entity{
		{ID: "1", Sector: "s", Revenue: core.MoneyPtr(1)},
		{ID: "2", Sector: "s", Revenue: core.MoneyPtr(2)},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, "1.5", groups[0].RevenueAverage.String())
}

func TestTopSectors(t *testing.T) {
	groups := BuildSectorRollup([]core.Entity{
		{ID: "1", Sector: "a", Revenue: core.MoneyPtr(3)},
		{ID: "2", Sector: "b", Revenue: core.MoneyPtr(2)},
		{ID: "3", Sector: "c", Revenue: core.MoneyPtr(1)},
	})

	assert.Len(t, TopSectors(groups, 2), 2)
	assert.Equal(t, "a", TopSectors(groups, 1)[0].Sector)
	assert.Len(t, TopSectors(groups, 0), 3)
	assert.Len(t, TopSectors(groups, 10), 3)
}

type failingEntities struct{ err error }

func (f failingEntities) ListEntities(context.Context) ([]core.Entity, error) { return nil, f.err }

func TestComputeSectorRollup(t *testing.T) {
	store := memory.New([]core.Entity{
		{ID: "A", Sector: "X", Revenue: core.MoneyPtr(1000)},
		{ID: "B", Sector: "X", Revenue: core.MoneyPtr(2000)},
	}, nil)

	groups, err := NewSectorRollup(store, nil).ComputeSectorRollup(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "X", groups[0].Sector)

	unavailable := fmt.Errorf("boom: %w", core.ErrStoreUnavailable)
	_, err = NewSectorRollup(failingEntities{err: unavailable}, nil).ComputeSectorRollup(context.Background())
	assert.True(t, errors.Is(err, core.ErrStoreUnavailable))
}
