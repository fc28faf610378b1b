// Package importer turns the two-tab ledger workbook (entities and
// transactions) into domain rows. Sources differ only in where the cells come
// from; header mapping and cell parsing live here.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ledgerbi/internal/core"
)

// Column headers of the source workbook.
const (
	ColID          = "ID"
	ColSector      = "DS_CNAE"
	ColRevenue     = "VL_FATU"
	ColBalance     = "VL_SLDO"
	ColOpenedOn    = "DT_ABRT"
	ColPayer       = "ID_PGTO"
	ColReceiver    = "ID_RCBE"
	ColAmount      = "VL"
	ColDescription = "DS_TRAN"
	ColReference   = "DT_REFE"
)

// Ledger is a full snapshot read from a source.
type Ledger struct {
	Entities     []core.Entity
	Transactions []core.Transaction
}

// Source loads a complete ledger snapshot.
type Source interface {
	Load(ctx context.Context) (Ledger, error)
}

// RowError reports a cell that could not be parsed.
type RowError struct {
	Table  string
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d column %s: %v", e.Table, e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type columns map[string]int

func indexHeader(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func (c columns) require(table string, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := c[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %s", table, strings.Join(missing, ","))
	}
	return nil
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseEntities maps entity rows. Entirely blank rows are dropped; empty
// optional cells become absent values. Duplicate ids are kept.
func ParseEntities(header []string, rows [][]string) ([]core.Entity, error) {
	const table = "entities"
	cols := indexHeader(header)
	if err := cols.require(table, ColID); err != nil {
		return nil, err
	}

	out := make([]core.Entity, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		line := i + 2 // 1-based, after the header
		e := core.Entity{
			ID:     cols.get(row, ColID),
			Sector: cols.get(row, ColSector),
		}
		var err error
		if e.Revenue, err = optionalCents(cols.get(row, ColRevenue)); err != nil {
			return nil, &RowError{Table: table, Row: line, Column: ColRevenue, Err: err}
		}
		if e.Balance, err = optionalCents(cols.get(row, ColBalance)); err != nil {
			return nil, &RowError{Table: table, Row: line, Column: ColBalance, Err: err}
		}
		if v := cols.get(row, ColOpenedOn); v != "" {
			if e.OpenedOn, err = core.ParseDate(v); err != nil {
				return nil, &RowError{Table: table, Row: line, Column: ColOpenedOn, Err: err}
			}
		}
		if err := e.Validate(); err != nil {
			return nil, &RowError{Table: table, Row: line, Column: ColID, Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}

// ParseTransactions maps transaction rows. When the ID column is missing or
// empty the row position is used as identifier.
func ParseTransactions(header []string, rows [][]string) ([]core.Transaction, error) {
	const table = "transactions"
	cols := indexHeader(header)
	if err := cols.require(table, ColPayer, ColReceiver, ColAmount, ColReference); err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		line := i + 2
		t := core.Transaction{
			ID:          int64(i + 1),
			PayerID:     cols.get(row, ColPayer),
			ReceiverID:  cols.get(row, ColReceiver),
			Description: cols.get(row, ColDescription),
		}
		if v := cols.get(row, ColID); v != "" {
			id, err := strconv.ParseInt(strings.TrimSuffix(v, ".0"), 10, 64)
			if err != nil {
				return nil, &RowError{Table: table, Row: line, Column: ColID, Err: err}
			}
			t.ID = id
		}
		amount, err := core.ParseCents(cols.get(row, ColAmount))
		if err != nil {
			return nil, &RowError{Table: table, Row: line, Column: ColAmount, Err: err}
		}
		t.Amount = core.Money{Cents: amount}
		if t.ReferenceDate, err = core.ParseDate(cols.get(row, ColReference)); err != nil {
			return nil, &RowError{Table: table, Row: line, Column: ColReference, Err: err}
		}
		if err := t.Validate(); err != nil {
			return nil, &RowError{Table: table, Row: line, Column: transactionColumn(err), Err: err}
		}
		out = append(out, t)
	}
	return out, nil
}

func transactionColumn(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingPayer):
		return ColPayer
	case errors.Is(err, core.ErrMissingReceiver):
		return ColReceiver
	case errors.Is(err, core.ErrMissingReference):
		return ColReference
	default:
		return ColAmount
	}
}

func optionalCents(v string) (*core.Money, error) {
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	cents, err := core.ParseCents(v)
	if err != nil {
		return nil, err
	}
	return core.MoneyPtr(cents), nil
}
