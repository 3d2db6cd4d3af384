package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tanisingh134/carbon/internal/carbon"
)

// ActivityRecorded is published to Kafka after an activity is stored.
// Messages are keyed by user ID so one user's events stay ordered.
type ActivityRecorded struct {
	ActivityID    string    `json:"activity_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	Carbon        float64   `json:"carbon"`
	WeatherImpact float64   `json:"weather_impact"`
	RecordedAt    time.Time `json:"recorded_at"`
}

var ErrInvalidEvent = errors.New("invalid activity event")

// NewActivityRecorded builds the event for a stored activity
func NewActivityRecorded(a carbon.Activity, weatherImpact float64) *ActivityRecorded {
	return &ActivityRecorded{
		ActivityID:    a.ID,
		UserID:        a.UserID,
		Type:          string(a.Type),
		Value:         a.Value,
		Unit:          a.Unit,
		Carbon:        a.Carbon,
		WeatherImpact: weatherImpact,
		RecordedAt:    a.RecordedAt,
	}
}

// Key returns the partition key
func (e *ActivityRecorded) Key() string {
	return e.UserID
}

func (e *ActivityRecorded) Validate() error {
	if e.ActivityID == "" {
		return fmt.Errorf("%w: missing activity_id", ErrInvalidEvent)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrInvalidEvent)
	}
	return nil
}

// EncodeActivityRecorded encodes an ActivityRecorded to JSON
func EncodeActivityRecorded(e *ActivityRecorded) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeActivityRecorded decodes and validates JSON into an ActivityRecorded
func DecodeActivityRecorded(data []byte) (*ActivityRecorded, error) {
	var e ActivityRecorded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
