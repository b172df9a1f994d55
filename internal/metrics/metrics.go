package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	Registry *prometheus.Registry

	Registrations   prometheus.Counter
	MatchesCreated  *prometheus.CounterVec
	MatchesResolved *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_registrations_total",
			Help: "Number of new player profiles created.",
		}),
		MatchesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_created_total",
			Help: "Number of matches created, by game.",
		}, []string{"game"}),
		MatchesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_resolved_total",
			Help: "Number of match results recorded, by game.",
		}, []string{"game"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arena_queue_depth",
			Help: "Players currently waiting, by game.",
		}, []string{"game"}),
	}
}

var Module = fx.Provide(New)
