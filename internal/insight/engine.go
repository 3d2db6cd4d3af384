package insight

import "github.com/tanisingh134/carbon/internal/carbon"

// Insight is a suggestion or achievement derived from a user's activities.
// Notified is always false when built; nothing tracks delivery state yet.
type Insight struct {
	Text     string `json:"text"`
	Notified bool   `json:"notified"`
}

const (
	TextCarpool           = "Consider carpooling or using public transport."
	TextLEDBulbs          = "Switch to LED bulbs or unplug devices."
	TextConsistentTracker = "Consistent Tracker: Logged 10+ activities!"
	TextEcoWarrior        = "Eco Warrior: Kept footprint below 50kg CO₂!"
)

// Rule compares one metric of the activity set against a threshold
type Rule struct {
	Metric    string
	Operator  string
	Threshold float64
	Text      string
}

const (
	MetricTransportValue   = "transport_value"
	MetricElectricityValue = "electricity_value"
	MetricActivityCount    = "activity_count"
	MetricTotalCarbon      = "total_carbon"
)

// Rules are evaluated in slice order and the output keeps that order.
var (
	SuggestionRules = []Rule{
		{Metric: MetricTransportValue, Operator: ">", Threshold: 100, Text: TextCarpool},
		{Metric: MetricElectricityValue, Operator: ">", Threshold: 200, Text: TextLEDBulbs},
	}

	AchievementRules = []Rule{
		{Metric: MetricActivityCount, Operator: ">", Threshold: 10, Text: TextConsistentTracker},
		{Metric: MetricTotalCarbon, Operator: "<", Threshold: 50, Text: TextEcoWarrior},
	}
)

// Suggestions returns behaviour-change hints for the activity set
func Suggestions(activities []carbon.Activity) []Insight {
	return Evaluate(SuggestionRules, activities)
}

// Achievements returns the milestones reached by the activity set
func Achievements(activities []carbon.Activity) []Insight {
	return Evaluate(AchievementRules, activities)
}

// Evaluate applies every rule independently. The result is never nil.
func Evaluate(rules []Rule, activities []carbon.Activity) []Insight {
	m := summarize(activities)
	out := make([]Insight, 0, len(rules))
	for _, rule := range rules {
		value, ok := m.value(rule.Metric)
		if !ok {
			continue
		}
		if evaluateCondition(value, rule.Operator, rule.Threshold) {
			out = append(out, Insight{Text: rule.Text, Notified: false})
		}
	}
	return out
}

type metrics struct {
	transportValue   float64
	electricityValue float64
	count            int
	totalCarbon      float64
}

func summarize(activities []carbon.Activity) metrics {
	var m metrics
	for _, a := range activities {
		switch a.Type {
		case carbon.TypeTransport:
			m.transportValue += a.Value
		case carbon.TypeElectricity:
			m.electricityValue += a.Value
		}
		m.totalCarbon += a.Carbon
	}
	m.count = len(activities)
	return m
}

func (m metrics) value(metric string) (float64, bool) {
	switch metric {
	case MetricTransportValue:
		return m.transportValue, true
	case MetricElectricityValue:
		return m.electricityValue, true
	case MetricActivityCount:
		return float64(m.count), true
	case MetricTotalCarbon:
		return m.totalCarbon, true
	default:
		return 0, false
	}
}

func evaluateCondition(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}
