package amqp

import (
	"encoding/json"
	"time"

	"sorpes/internal/state"
)

// StateSyncMessage tells the sync worker that the local state changed.
// It carries no state: the worker reads the latest snapshot from the
// database, so stale or duplicate messages are harmless.
type StateSyncMessage struct {
	ActiveMonth string    `json:"activeMonth"`
	Months      int       `json:"months"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStateSyncMessage summarises doc for the wire.
func NewStateSyncMessage(doc *state.Document) *StateSyncMessage {
	msg := &StateSyncMessage{Timestamp: time.Now()}
	if doc != nil {
		msg.ActiveMonth = doc.ActiveMonth.String()
		msg.Months = len(doc.Months)
	}
	return msg
}

func (m *StateSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StateSyncMessageFromJSON(data []byte) (*StateSyncMessage, error) {
	var msg StateSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
