// Package observability holds the Prometheus collectors shared by the carbon tracker services.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carbon_tracker"

// Cycle outcomes recorded by RecordCycle.
const (
	CycleEmitted     = "emitted"
	CycleStoreFailed = "store_failed"
	CycleEmitFailed  = "emit_failed"
)

// Weather fetch results recorded by RecordWeatherFetch.
const (
	WeatherOK       = "ok"
	WeatherCached   = "cached"
	WeatherFallback = "fallback"
)

var (
	liveCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "cycles_total",
		Help:      "Live update cycles grouped by outcome.",
	}, []string{"outcome"})

	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "active_subscriptions",
		Help:      "Number of subscriptions currently streaming.",
	})

	weatherFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "weather",
		Name:      "fetches_total",
		Help:      "Weather impact lookups grouped by result.",
	}, []string{"result"})

	activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activity",
		Name:      "recorded_total",
		Help:      "Activities persisted, grouped by activity type.",
	}, []string{"type"})

	eventPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activity",
		Name:      "publish_errors_total",
		Help:      "Activity events that could not be published to Kafka.",
	})

	leaderboardApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leaderboard",
		Name:      "events_applied_total",
		Help:      "Activity events applied to the leaderboard.",
	})
)

func init() {
	prometheus.MustRegister(
		liveCycles,
		activeSubscriptions,
		weatherFetches,
		activitiesRecorded,
		eventPublishErrors,
		leaderboardApplied,
	)
}

func RecordCycle(outcome string) {
	liveCycles.WithLabelValues(outcome).Inc()
}

func SubscriptionOpened() {
	activeSubscriptions.Inc()
}

func SubscriptionClosed() {
	activeSubscriptions.Dec()
}

func RecordWeatherFetch(result string) {
	weatherFetches.WithLabelValues(result).Inc()
}

// RecordActivity counts a persisted activity. Types outside the known set share one label.
func RecordActivity(activityType string) {
	switch activityType {
	case "transport", "electricity", "food", "other":
	default:
		activityType = "unknown"
	}
	activitiesRecorded.WithLabelValues(activityType).Inc()
}

func RecordPublishError() {
	eventPublishErrors.Inc()
}

func RecordLeaderboardApplied(n int) {
	leaderboardApplied.Add(float64(n))
}
