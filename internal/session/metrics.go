package session

import "github.com/prometheus/client_golang/prometheus"

var (
	MatchesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rps_matches_active",
		Help: "Matches currently in the active state",
	})
	MatchesWaiting = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rps_matches_waiting",
		Help: "Matches waiting for an opponent",
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rps_matchmaking_queue_depth",
		Help: "Tickets currently waiting in the matchmaking queue",
	})
	RoundsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_rounds_resolved_total",
		Help: "Resolved rounds by trigger (move or timeout)",
	}, []string{"trigger"})
	MatchesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_matches_finished_total",
		Help: "Finished matches by reason",
	}, []string{"reason"})
	SettlementNotifies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_settlement_notify_total",
		Help: "Settlement notifications by outcome",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		MatchesActive,
		MatchesWaiting,
		QueueDepth,
		RoundsResolved,
		MatchesFinished,
		SettlementNotifies,
	)
}
