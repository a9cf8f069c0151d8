package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds room server instrumentation.
type Metrics struct {
	Rooms      prometheus.Gauge
	Players    prometheus.Gauge
	Broadcasts *prometheus.CounterVec
	Dropped    prometheus.Counter
	Finishes   prometheus.Counter
}

// NewMetrics registers room metrics with registry. A nil registry uses the
// default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &Metrics{
		Rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "typerace",
			Subsystem: "room",
			Name:      "active_rooms",
			Help:      "Rooms with at least one connected player.",
		}),
		Players: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "typerace",
			Subsystem: "room",
			Name:      "connected_players",
			Help:      "Players connected across all rooms.",
		}),
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typerace",
			Subsystem: "room",
			Name:      "broadcasts_total",
			Help:      "Messages broadcast to rooms by type.",
		}, []string{"type"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "typerace",
			Subsystem: "room",
			Name:      "dropped_messages_total",
			Help:      "Inbound messages dropped as malformed.",
		}),
		Finishes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "typerace",
			Subsystem: "room",
			Name:      "races_decided_total",
			Help:      "Races that produced a winner.",
		}),
	}
}
