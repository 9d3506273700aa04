package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pointsAwardedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "scoring",
		Name:      "points_awarded_total",
		Help:      "Total points awarded across all workouts.",
	})
	awardsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "scoring",
		Name:      "workout_awards_total",
		Help:      "Number of workout point awards processed.",
	})
	personalRecordsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "scoring",
		Name:      "personal_records_total",
		Help:      "Number of personal records set or broken.",
	})
	badgesEarnedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "scoring",
		Name:      "badges_earned_total",
		Help:      "Number of badges awarded to users.",
	})
	awardPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamification_service",
		Subsystem: "persistence",
		Name:      "last_award_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent award persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(pointsAwardedCounter, awardsCounter, personalRecordsCounter, badgesEarnedCounter, awardPersistGauge)
}

// RecordPointsAwarded tracks a completed point award.
func RecordPointsAwarded(points int, ts time.Time) {
	awardsCounter.Inc()
	if points > 0 {
		pointsAwardedCounter.Add(float64(points))
	}
	RecordAwardPersisted(ts)
}

// RecordPersonalRecords tracks newly set personal records.
func RecordPersonalRecords(count int) {
	if count > 0 {
		personalRecordsCounter.Add(float64(count))
	}
}

// RecordBadgeEarned tracks a badge award.
func RecordBadgeEarned() {
	badgesEarnedCounter.Inc()
}

// RecordAwardPersisted updates the persistence watermark gauge.
func RecordAwardPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	awardPersistGauge.Set(float64(ts.Unix()))
}
