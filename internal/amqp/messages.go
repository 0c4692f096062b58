package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/services"
)

// ReconciliationMessage notifies downstream consumers (notifiers,
// audit sinks) that a reconciliation run finished. It carries counts
// and the definitions needing attention, not row data; consumers fetch
// details themselves.
type ReconciliationMessage struct {
	WorkspaceID    string    `json:"workspaceId"`
	RunAt          time.Time `json:"runAt"`
	CreatedCount   int       `json:"createdCount"`
	SkippedCount   int       `json:"skippedCount"`
	NeedsAttention []string  `json:"needsAttention,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewReconciliationMessage(report services.Report) *ReconciliationMessage {
	return &ReconciliationMessage{
		WorkspaceID:    report.WorkspaceID,
		RunAt:          report.RunAt,
		CreatedCount:   report.CreatedCount,
		SkippedCount:   report.SkippedCount,
		NeedsAttention: report.NeedsAttention,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReconciliationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconciliationMessageFromJSON creates a message from JSON bytes.
func ReconciliationMessageFromJSON(data []byte) (*ReconciliationMessage, error) {
	var msg ReconciliationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
