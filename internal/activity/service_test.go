package activity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/database"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/protocol"
)

type fixedImpact float64

func (f fixedImpact) FetchImpact(ctx context.Context) float64 { return float64(f) }

type recordingPublisher struct {
	events []*protocol.ActivityRecorded
	err    error
}

func (p *recordingPublisher) PublishActivity(ctx context.Context, e *protocol.ActivityRecorded) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.events = append(p.events, e)
	return p.err
}

type failingStore struct{}

func (failingStore) CreateActivity(ctx context.Context, a *carbon.Activity) error {
	return errors.New("disk full")
}

func TestRecordComputesCarbonAtCurrentImpact(t *testing.T) {
	store := database.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewService(store, fixedImpact(1.2), pub, logger.Nop())

	a, err := svc.Record(context.Background(), "u1", Input{Type: "Transport", Value: 100, Unit: "km"})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, carbon.TypeTransport, a.Type)
	require.InDelta(t, 24.0, a.Carbon, 1e-9)

	stored, err := store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, a.ID, stored[0].ID)

	require.Len(t, pub.events, 1)
	require.Equal(t, a.ID, pub.events[0].ActivityID)
	require.Equal(t, 1.2, pub.events[0].WeatherImpact)
}

func TestRecordUnknownTypeUsesDefaultFactor(t *testing.T) {
	svc := NewService(database.NewMemoryStore(), fixedImpact(1.0), nil, logger.Nop())

	a, err := svc.Record(context.Background(), "u1", Input{Type: "water", Value: 7})
	require.NoError(t, err)
	require.Equal(t, 7.0, a.Carbon)
}

func TestRecordPublishFailureIsNotReturned(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewService(store, fixedImpact(1.0), &recordingPublisher{err: errors.New("broker down")}, logger.Nop())

	a, err := svc.Record(context.Background(), "u1", Input{Type: "food", Value: 2})
	require.NoError(t, err)
	require.Equal(t, 5.0, a.Carbon)
}

func TestRecordPublishesAfterClientCancel(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(database.NewMemoryStore(), fixedImpact(1.0), pub, logger.Nop())

	a := &carbon.Activity{ID: "a1", UserID: "u1"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.publish(ctx, a, 1.0)

	require.Len(t, pub.events, 1)
}

func TestRecordStoreFailure(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(failingStore{}, fixedImpact(1.0), pub, logger.Nop())

	_, err := svc.Record(context.Background(), "u1", Input{Type: "food", Value: 2})
	require.ErrorContains(t, err, "failed to store activity")
	require.Empty(t, pub.events)
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		ok   bool
	}{
		{"valid", Input{Type: "food", Value: 1}, true},
		{"zero value", Input{Type: "food", Value: 0}, true},
		{"missing type", Input{Value: 1}, false},
		{"blank type", Input{Type: "  ", Value: 1}, false},
		{"negative", Input{Type: "food", Value: -1}, false},
		{"nan", Input{Type: "food", Value: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidActivity)
			}
		})
	}
}
