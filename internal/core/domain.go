package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Inflow  Direction = "INFLOW"
	Outflow Direction = "OUTFLOW"
)

type (
	Direction string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Entity is a ledger participant. Revenue and Balance are nil when the
	// source row has no value for them.
	Entity struct {
		ID       string
		Sector   string
		Revenue  *Money
		Balance  *Money
		OpenedOn Date
	}

	// Transaction is a directed movement of money between two entities.
	// PayerID and ReceiverID are lookups: they may name entities that are not
	// loaded.
	Transaction struct {
		ID            int64
		PayerID       string
		ReceiverID    string
		Amount        Money
		Description   string
		ReferenceDate Date
	}

	ClassifiedTransaction struct {
		Transaction
		Direction Direction
	}

	// EntitySummary is the classification of every transaction touching a
	// focal entity, most recent first.
	EntitySummary struct {
		EntityID     string
		Classified   []ClassifiedTransaction
		TotalInflow  Money
		TotalOutflow Money
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyEntityID    = errors.New("empty entity id")
	ErrNegativeRevenue  = errors.New("negative revenue")
	ErrMissingPayer     = errors.New("missing payer id")
	ErrMissingReceiver  = errors.New("missing receiver id")
	ErrMissingReference = errors.New("missing reference date")
)

// Failure taxonomy shared by every component of the engine.
var (
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of both amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CentsOf returns the amount in cents, or 0 when m is nil.
func CentsOf(m *Money) int64 {
	if m == nil {
		return 0
	}
	return m.Cents
}

// MoneyPtr is a convenience for optional amounts.
func MoneyPtr(cents int64) *Money {
	return &Money{Cents: cents}
}

// HasSector reports whether the entity carries a non-blank sector code.
func (e Entity) HasSector() bool {
	return strings.TrimSpace(e.Sector) != ""
}

func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyEntityID
	}
	if e.Revenue != nil && e.Revenue.Cents < 0 {
		return ErrNegativeRevenue
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.PayerID) == "" {
		return ErrMissingPayer
	}
	if strings.TrimSpace(t.ReceiverID) == "" {
		return ErrMissingReceiver
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.ReferenceDate.IsZero() {
		return ErrMissingReference
	}
	return nil
}

// Involves reports whether id is the payer or the receiver of t.
func (t Transaction) Involves(id string) bool {
	return t.PayerID == id || t.ReceiverID == id
}

// Count returns the number of classified transactions.
func (s EntitySummary) Count() int {
	return len(s.Classified)
}

// Net returns inflow minus outflow.
func (s EntitySummary) Net() Money {
	return Money{Cents: s.TotalInflow.Cents - s.TotalOutflow.Cents}
}
