package protocol

import "encoding/json"

// EventType names a live update pushed to subscribers
type EventType string

const (
	EventActivities    EventType = "activities"
	EventCarbonScore   EventType = "carbonScore"
	EventSuggestions   EventType = "suggestions"
	EventAchievements  EventType = "achievements"
	EventWeatherImpact EventType = "weatherImpact"
)

// SnapshotOrder is the order in which one update cycle emits its events
var SnapshotOrder = []EventType{
	EventActivities,
	EventCarbonScore,
	EventSuggestions,
	EventAchievements,
	EventWeatherImpact,
}

// Envelope frames every live update on the wire:
//
//	{"type":"carbonScore","payload":55}
type Envelope struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// RawEnvelope is the client-side view of an Envelope
type RawEnvelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEnvelope parses a frame received from the server
func DecodeEnvelope(data []byte) (*RawEnvelope, error) {
	var env RawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
