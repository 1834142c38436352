// Package observability defines the service's Prometheus metrics.
// Metrics are registered against an injected Registerer so tests can
// use an isolated registry.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chipbot"

// Metrics holds every counter the service records.
type Metrics struct {
	GamesPlayed  *prometheus.CounterVec // labels: game, result
	ChipsWagered *prometheus.CounterVec // label: game
	ChipsPaidOut *prometheus.CounterVec // label: game

	PollBetsPlaced  prometheus.Counter
	PollChipsStaked prometheus.Counter
	PollsResolved   prometheus.Counter

	SnapshotFailures *prometheus.CounterVec // label: component
}

// New registers all metrics with reg and returns the set.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GamesPlayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_played_total",
				Help:      "Rounds played per game and result",
			},
			[]string{"game", "result"},
		),
		ChipsWagered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chips_wagered_total",
				Help:      "Chips debited as game bets",
			},
			[]string{"game"},
		),
		ChipsPaidOut: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chips_paid_out_total",
				Help:      "Chips credited as game payouts",
			},
			[]string{"game"},
		),
		PollBetsPlaced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_bets_placed_total",
				Help:      "Accepted prediction poll bets",
			},
		),
		PollChipsStaked: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_chips_staked_total",
				Help:      "Chips staked on prediction polls",
			},
		),
		PollsResolved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_resolved_total",
				Help:      "Prediction polls resolved",
			},
		),
		SnapshotFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_failures_total",
				Help:      "Failed state snapshot writes (state kept in memory)",
			},
			[]string{"component"},
		),
	}
}
