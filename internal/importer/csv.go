package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	EntitiesFile     = "entities.csv"
	TransactionsFile = "transactions.csv"
)

// CSVSource reads entities.csv and transactions.csv from a directory. A
// missing file is an empty table.
type CSVSource struct {
	dir string
}

var _ Source = (*CSVSource)(nil)

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Load(ctx context.Context) (Ledger, error) {
	var l Ledger

	header, rows, err := readCSV(filepath.Join(s.dir, EntitiesFile))
	if err != nil {
		return Ledger{}, err
	}
	if header != nil {
		if l.Entities, err = ParseEntities(header, rows); err != nil {
			return Ledger{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}

	header, rows, err = readCSV(filepath.Join(s.dir, TransactionsFile))
	if err != nil {
		return Ledger{}, err
	}
	if header != nil {
		if l.Transactions, err = ParseTransactions(header, rows); err != nil {
			return Ledger{}, err
		}
	}
	return l, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, rows, nil
}
