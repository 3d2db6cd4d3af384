package live

import (
	"context"
	"fmt"

	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/insight"
	"github.com/tanisingh134/carbon/internal/protocol"
)

// ActivityReader is the read side of the activity store
type ActivityReader interface {
	FindByUser(ctx context.Context, userID string) ([]carbon.Activity, error)
}

// ImpactSource reports the current weather impact multiplier; it never fails
type ImpactSource interface {
	FetchImpact(ctx context.Context) float64
}

// Snapshot is everything one update cycle pushes to a subscriber
type Snapshot struct {
	Activities    []carbon.Activity `json:"activities"`
	CarbonScore   float64           `json:"carbonScore"`
	Suggestions   []insight.Insight `json:"suggestions"`
	Achievements  []insight.Insight `json:"achievements"`
	WeatherImpact float64           `json:"weatherImpact"`
}

// Payload returns the value emitted for an event type
func (s *Snapshot) Payload(event protocol.EventType) interface{} {
	switch event {
	case protocol.EventActivities:
		return s.Activities
	case protocol.EventCarbonScore:
		return s.CarbonScore
	case protocol.EventSuggestions:
		return s.Suggestions
	case protocol.EventAchievements:
		return s.Achievements
	case protocol.EventWeatherImpact:
		return s.WeatherImpact
	}
	return nil
}

// buildSnapshot reads the user's activities once and derives everything from that set
func buildSnapshot(ctx context.Context, store ActivityReader, weather ImpactSource, userID string) (*Snapshot, error) {
	activities, err := store.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	if activities == nil {
		activities = []carbon.Activity{}
	}

	snap := &Snapshot{
		Activities:   activities,
		CarbonScore:  carbon.Aggregate(activities),
		Suggestions:  insight.Suggestions(activities),
		Achievements: insight.Achievements(activities),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap.WeatherImpact = weather.FetchImpact(ctx)

	return snap, nil
}
