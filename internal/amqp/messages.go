package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"budgetwizard/internal/core"
)

// RecordMessage carries one paywall activity record (an unlock or an
// export) to the archive worker. It is self-contained: the worker has no
// access to the bot process's in-memory state.
type RecordMessage struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"` // core.RecordKindUnlock or core.RecordKindExport
	UserID    int64     `json:"user_id"`
	Period    string    `json:"period"`
	Rows      int       `json:"rows,omitempty"`
	Sample    bool      `json:"sample,omitempty"`
	Total     string    `json:"total,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordMessage wraps an activity record with a fresh event id.
func NewRecordMessage(rec core.ActivityRecord) *RecordMessage {
	return &RecordMessage{
		EventID:   uuid.NewString(),
		Kind:      rec.Kind,
		UserID:    int64(rec.UserID),
		Period:    rec.Period,
		Rows:      rec.Rows,
		Sample:    rec.Sample,
		Total:     rec.Total,
		Timestamp: rec.At,
	}
}

// Record converts the message back to the domain activity record.
func (m *RecordMessage) Record() core.ActivityRecord {
	return core.ActivityRecord{
		Kind:   m.Kind,
		UserID: core.UserID(m.UserID),
		Period: m.Period,
		Rows:   m.Rows,
		Sample: m.Sample,
		Total:  m.Total,
		At:     m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordMessageFromJSON creates a message from JSON bytes
func RecordMessageFromJSON(data []byte) (*RecordMessage, error) {
	var msg RecordMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
