package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ledgerbi/internal/core"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"
)

// SectorRollup groups entities by sector code and ranks the groups.
type SectorRollup struct {
	store  ledger.EntityLister
	logger *log.Logger
}

func NewSectorRollup(store ledger.EntityLister, logger *log.Logger) *SectorRollup {
	if logger == nil {
		logger = log.ForComponent(log.ComponentRollup)
	}
	return &SectorRollup{store: store, logger: logger}
}

// ComputeSectorRollup reads every entity row and returns one group per
// sector, ordered by revenue total descending then sector ascending.
func (r *SectorRollup) ComputeSectorRollup(ctx context.Context) ([]core.SectorGroup, error) {
	entities, err := r.store.ListEntities(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Sector rollup failed", log.FieldOperation, log.OpRollup, log.FieldError, err)
		return nil, fmt.Errorf("sector rollup: %w", err)
	}

	groups := BuildSectorRollup(entities)
	if len(groups) > 0 {
		r.logger.DebugContext(ctx, "Sector rollup computed",
			"entities", len(entities),
			"groups", len(groups),
			log.FieldSector, groups[0].Sector)
	}
	return groups, nil
}

// BuildSectorRollup is the pure part of the rollup. Entities without a sector
// code are left out. Absent revenue or balance counts as zero; averages are
// taken over the group's entity count.
func BuildSectorRollup(entities []core.Entity) []core.SectorGroup {
	type acc struct {
		count   int64
		revenue int64
		balance int64
	}
	bySector := make(map[string]*acc)
	for _, e := range entities {
		if !e.HasSector() {
			continue
		}
		a, ok := bySector[e.Sector]
		if !ok {
			a = &acc{}
			bySector[e.Sector] = a
		}
		a.count++
		a.revenue += core.CentsOf(e.Revenue)
		a.balance += core.CentsOf(e.Balance)
	}

	groups := make([]core.SectorGroup, 0, len(bySector))
	for sector, a := range bySector {
		n := decimal.NewFromInt(a.count)
		groups = append(groups, core.SectorGroup{
			Sector:         sector,
			Count:          a.count,
			RevenueTotal:   core.Money{Cents: a.revenue},
			RevenueAverage: decimal.NewFromInt(a.revenue).Div(n),
			BalanceTotal:   core.Money{Cents: a.balance},
			BalanceAverage: decimal.NewFromInt(a.balance).Div(n),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].RevenueTotal.Cents != groups[j].RevenueTotal.Cents {
			return groups[i].RevenueTotal.Cents > groups[j].RevenueTotal.Cents
		}
		return groups[i].Sector < groups[j].Sector
	})
	return groups
}

// TopSectors returns at most k leading groups. k <= 0 returns all of them.
func TopSectors(groups []core.SectorGroup, k int) []core.SectorGroup {
	if k <= 0 || k >= len(groups) {
		return groups
	}
	return groups[:k]
}
