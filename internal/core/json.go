package core

import "encoding/json"

// JSON views used by the HTTP API and the operator CLI. Money is rendered in
// cents and dates as YYYY-MM-DD.

type transactionJSON struct {
	ID            int64  `json:"id"`
	PayerID       string `json:"payer_id"`
	ReceiverID    string `json:"receiver_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
	ReferenceDate string `json:"reference_date"`
}

func (t Transaction) view() transactionJSON {
	return transactionJSON{
		ID:            t.ID,
		PayerID:       t.PayerID,
		ReceiverID:    t.ReceiverID,
		Amount:        t.Amount.Cents,
		Description:   t.Description,
		ReferenceDate: t.ReferenceDate.String(),
	}
}

func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id"`
		Sector   string `json:"sector,omitempty"`
		Revenue  *int64 `json:"revenue"`
		Balance  *int64 `json:"balance"`
		OpenedOn string `json:"opened_on,omitempty"`
	}{
		ID:       e.ID,
		Sector:   e.Sector,
		Revenue:  centsPtr(e.Revenue),
		Balance:  centsPtr(e.Balance),
		OpenedOn: e.OpenedOn.String(),
	})
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.view())
}

// MarshalJSON is defined here too, otherwise the embedded Transaction's
// method would be promoted and the direction dropped.
func (c ClassifiedTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		transactionJSON
		Direction Direction `json:"direction"`
	}{c.Transaction.view(), c.Direction})
}

func (s EntitySummary) MarshalJSON() ([]byte, error) {
	classified := s.Classified
	if classified == nil {
		classified = []ClassifiedTransaction{}
	}
	return json.Marshal(struct {
		EntityID     string                  `json:"entity_id"`
		Transactions []ClassifiedTransaction `json:"transactions"`
		Count        int                     `json:"count"`
		TotalInflow  int64                   `json:"total_inflow"`
		TotalOutflow int64                   `json:"total_outflow"`
		Net          int64                   `json:"net"`
	}{
		EntityID:     s.EntityID,
		Transactions: classified,
		Count:        s.Count(),
		TotalInflow:  s.TotalInflow.Cents,
		TotalOutflow: s.TotalOutflow.Cents,
		Net:          s.Net().Cents,
	})
}

func centsPtr(m *Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Cents
	return &v
}
