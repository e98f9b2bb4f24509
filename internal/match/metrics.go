package match

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded labels only, never match or wrestler ids
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sumo_tick_duration_seconds",
		Help:    "Time spent in one match tick including broadcast",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016},
	})

	activeMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sumo_active_matches",
		Help: "Matches currently registered",
	})

	observersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sumo_observers_active",
		Help: "Observer connections attached to any match",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_frames_dropped_total",
		Help: "Snapshots not delivered to a slow or closed observer",
	})

	inputsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_inputs_total",
		Help: "Player inputs forwarded to an engine",
	})

	matchesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_matches_ended_total",
		Help: "Matches removed from the registry",
	}, []string{"reason"}) // "game_over", "evicted", "stale", "cleared", "shutdown"

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_persist_failures_total",
		Help: "Result recorders that failed at match end",
	})

	journalWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_journal_write_failures_total",
		Help: "Journal lines that could not be written",
	})
)

func recordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}
