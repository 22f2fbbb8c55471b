package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ActiveRooms      prometheus.Gauge
	ConnectedPlayers prometheus.Gauge
	BattlesStarted   prometheus.Counter
	BattlesFinished  prometheus.Counter
	VotesCast        prometheus.Counter
}

// New builds and registers the server metrics. Tests pass their own
// prometheus.NewRegistry() so repeated construction never collides.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of open websocket connections",
		}),
		BattlesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_started_total",
			Help:      "Total number of battles started",
		}),
		BattlesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_finished_total",
			Help:      "Total number of battles concluded with a winner",
		}),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Total number of votes recorded",
		}),
	}

	reg.MustRegister(
		m.ActiveRooms,
		m.ConnectedPlayers,
		m.BattlesStarted,
		m.BattlesFinished,
		m.VotesCast,
	)
	return m
}
