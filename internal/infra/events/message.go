// Package events publishes domain events (transaction and budget writes)
// to RabbitMQ. Consumers re-read state through the API.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// Encode converts an event to its JSON wire form.
func Encode(evt domain.Event) ([]byte, error) {
	if evt.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return json.Marshal(evt)
}

// Decode parses an event from its JSON wire form.
func Decode(data []byte) (domain.Event, error) {
	var evt domain.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}
