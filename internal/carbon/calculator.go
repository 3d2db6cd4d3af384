package carbon

// DefaultFactor applies to any type without a dedicated emission factor
const DefaultFactor = 1.0

var baseFactors = map[ActivityType]float64{
	TypeTransport:   0.2,
	TypeElectricity: 0.5,
	TypeFood:        2.5,
}

// BaseFactor returns the kg CO2 per unit for an activity type
func BaseFactor(t ActivityType) float64 {
	if f, ok := baseFactors[t]; ok {
		return f
	}
	return DefaultFactor
}

// Compute returns value × BaseFactor(t) × weatherImpact.
// The unit is recorded with the activity but no dimensional conversion is applied.
func Compute(t ActivityType, value float64, unit string, weatherImpact float64) float64 {
	return value * BaseFactor(t) * weatherImpact
}

// Aggregate sums the stored carbon of every activity
func Aggregate(activities []Activity) float64 {
	var total float64
	for _, a := range activities {
		total += a.Carbon
	}
	return total
}
