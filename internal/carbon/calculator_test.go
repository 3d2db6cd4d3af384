package carbon

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeKnownFactors(t *testing.T) {
	tests := []struct {
		name   string
		typ    ActivityType
		value  float64
		impact float64
		want   float64
	}{
		{"transport neutral", TypeTransport, 150, 1.0, 30},
		{"electricity neutral", TypeElectricity, 50, 1.0, 25},
		{"food hot", TypeFood, 2, 1.2, 6},
		{"transport cold", TypeTransport, 100, 0.8, 16},
		{"other uses default", TypeOther, 10, 1.0, 10},
		{"unknown uses default", ActivityType("heating"), 7, 1.2, 8.4},
		{"zero value", TypeFood, 0, 1.2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.typ, tt.value, "unit", tt.impact)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestComputeIgnoresUnit(t *testing.T) {
	km := Compute(TypeTransport, 42, "km", 1.0)
	miles := Compute(TypeTransport, 42, "miles", 1.0)
	require.Equal(t, km, miles)
}

func TestBaseFactor(t *testing.T) {
	require.Equal(t, 0.2, BaseFactor(TypeTransport))
	require.Equal(t, 0.5, BaseFactor(TypeElectricity))
	require.Equal(t, 2.5, BaseFactor(TypeFood))
	require.Equal(t, DefaultFactor, BaseFactor(""))
}

func TestAggregateEmpty(t *testing.T) {
	require.Equal(t, 0.0, Aggregate(nil))
	require.Equal(t, 0.0, Aggregate([]Activity{}))
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	activities := make([]Activity, 0, 50)
	for i := 0; i < 50; i++ {
		activities = append(activities, Activity{Carbon: float64(i) * 0.37})
	}
	want := Aggregate(activities)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]Activity(nil), activities...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.InDelta(t, want, Aggregate(shuffled), 1e-9)
	}
}

func TestAggregateScenario(t *testing.T) {
	activities := []Activity{
		{Type: TypeTransport, Value: 150, Carbon: Compute(TypeTransport, 150, "km", 1.0)},
		{Type: TypeElectricity, Value: 50, Carbon: Compute(TypeElectricity, 50, "kWh", 1.0)},
	}
	require.InDelta(t, 55.0, Aggregate(activities), 1e-9)
}
