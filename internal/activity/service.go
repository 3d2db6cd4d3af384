package activity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/observability"
	"github.com/tanisingh134/carbon/internal/protocol"
)

const publishTimeout = 5 * time.Second

var ErrInvalidActivity = errors.New("invalid activity")

type Store interface {
	CreateActivity(ctx context.Context, a *carbon.Activity) error
}

type ImpactSource interface {
	FetchImpact(ctx context.Context) float64
}

// EventPublisher announces stored activities to downstream consumers
type EventPublisher interface {
	PublishActivity(ctx context.Context, event *protocol.ActivityRecorded) error
}

// Input is an activity as submitted by a user
type Input struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidActivity)
	}
	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) || in.Value < 0 {
		return fmt.Errorf("%w: value must be a non-negative number", ErrInvalidActivity)
	}
	return nil
}

// Service records activities with their carbon fixed at the current weather impact
type Service struct {
	store   Store
	weather ImpactSource
	events  EventPublisher
	log     *logger.Logger
}

// NewService creates the service; events may be nil when Kafka is disabled
func NewService(store Store, weather ImpactSource, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		weather: weather,
		events:  events,
		log:     log.With("component", "activity"),
	}
}

func (s *Service) Record(ctx context.Context, userID string, in Input) (*carbon.Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	impact := s.weather.FetchImpact(ctx)
	activityType := carbon.ActivityType(strings.ToLower(strings.TrimSpace(in.Type)))

	a := &carbon.Activity{
		UserID: userID,
		Type:   activityType,
		Value:  in.Value,
		Unit:   in.Unit,
		Carbon: carbon.Compute(activityType, in.Value, in.Unit, impact),
	}

	if err := s.store.CreateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store activity: %w", err)
	}
	observability.RecordActivity(string(a.Type))

	s.publish(ctx, a, impact)
	return a, nil
}

// publish is best effort; the activity is already stored
func (s *Service) publish(ctx context.Context, a *carbon.Activity, impact float64) {
	if s.events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishActivity(pubCtx, protocol.NewActivityRecorded(*a, impact)); err != nil {
		observability.RecordPublishError()
		s.log.Warn("Failed to publish activity event", "activity_id", a.ID, "user_id", a.UserID, "error", err)
	}
}
