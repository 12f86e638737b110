package gameserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the game server's Prometheus instruments.
type Metrics struct {
	SessionsConnected  prometheus.Gauge
	GamesStarted       prometheus.Counter
	GamesEnded         *prometheus.CounterVec
	ProtocolViolations prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "shashkrid",
			Name:      "sessions_connected",
			Help:      "Client connections currently open.",
		}),
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shashkrid",
			Name:      "games_started_total",
			Help:      "Games paired and started.",
		}),
		GamesEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shashkrid",
			Name:      "games_ended_total",
			Help:      "Games finished, by outcome.",
		}, []string{"outcome"}),
		ProtocolViolations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shashkrid",
			Name:      "protocol_violations_total",
			Help:      "Connections dropped for framing or envelope errors.",
		}),
	}
}
