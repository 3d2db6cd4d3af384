package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tanisingh134/carbon/internal/carbon"
)

func TestActivityRecordedEncodeDecode(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := NewActivityRecorded(carbon.Activity{
		ID:         "a1",
		UserID:     "u1",
		Type:       carbon.TypeTransport,
		Value:      100,
		Unit:       "km",
		Carbon:     24,
		RecordedAt: at,
	}, 1.2)

	require.Equal(t, "u1", event.Key())

	data, err := EncodeActivityRecorded(event)
	require.NoError(t, err)
	require.Contains(t, string(data), `"weather_impact":1.2`)

	decoded, err := DecodeActivityRecorded(data)
	require.NoError(t, err)
	require.Equal(t, "transport", decoded.Type)
	require.Equal(t, 24.0, decoded.Carbon)
	require.True(t, at.Equal(decoded.RecordedAt))
}

func TestActivityRecordedRejectsInvalid(t *testing.T) {
	_, err := EncodeActivityRecorded(&ActivityRecorded{UserID: "u1"})
	require.ErrorIs(t, err, ErrInvalidEvent)

	_, err = DecodeActivityRecorded([]byte(`{"activity_id":"a1"}`))
	require.ErrorIs(t, err, ErrInvalidEvent)

	_, err = DecodeActivityRecorded([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEnvelopeWireFormat(t *testing.T) {
	data, err := json.Marshal(Envelope{Type: EventCarbonScore, Payload: 55.0})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"carbonScore","payload":55}`, string(data))

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, EventCarbonScore, env.Type)
	require.Equal(t, "55", string(env.Payload))
}

func TestSnapshotOrder(t *testing.T) {
	require.Equal(t, []EventType{
		"activities", "carbonScore", "suggestions", "achievements", "weatherImpact",
	}, SnapshotOrder)
}
