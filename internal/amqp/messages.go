package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RoutingKeyIndexReload routes messages asking servers to rebuild their
// search index after the ledger changed.
const RoutingKeyIndexReload = "ledger.reload"

// IndexReloadMessage carries no ledger data: receivers re-read the store.
type IndexReloadMessage struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewIndexReloadMessage creates a reload message stamped with the current time
func NewIndexReloadMessage(reason string) *IndexReloadMessage {
	return &IndexReloadMessage{
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *IndexReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IndexReloadMessageFromJSON decodes a message. A missing timestamp is an
// error so that arbitrary JSON on the queue is rejected.
func IndexReloadMessageFromJSON(data []byte) (*IndexReloadMessage, error) {
	var msg IndexReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		return nil, errors.New("reload message without timestamp")
	}
	return &msg, nil
}
