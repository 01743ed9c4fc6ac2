package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types broadcast by the hub.
const (
	TypeConnected        = "connected"
	TypeDatasetRefreshed = "dataset_refreshed"
	TypeRefreshFailed    = "refresh_failed"
)

// Event is the JSON envelope sent to clients.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a payload with an id and the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// RefreshPayload describes the dataset after a refresh.
type RefreshPayload struct {
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	LastDate string `json:"last_date,omitempty"`
}

// Marshal serializes the event for the wire.
func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return data, nil
}
