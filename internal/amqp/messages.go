package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/core"
)

var errEmptyOrigin = errors.New("invalidation message without origin")

// InvalidationMessage tells every instance which rendered views a
// committed mutation made stale.
type InvalidationMessage struct {
	Origin    string      `json:"origin"`
	Views     []core.View `json:"views"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewInvalidationMessage creates a message stamped with the current time.
func NewInvalidationMessage(origin string, views []core.View) *InvalidationMessage {
	return &InvalidationMessage{
		Origin:    origin,
		Views:     views,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the message to JSON
func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages carrying no origin or a malformed view.
func (m *InvalidationMessage) Validate() error {
	if m.Origin == "" {
		return errEmptyOrigin
	}
	for _, v := range m.Views {
		if _, err := core.ParseView(v.Key()); err != nil {
			return err
		}
	}
	return nil
}

// InvalidationMessageFromJSON deserializes and validates a message.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode invalidation message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
