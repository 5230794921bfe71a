package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twentyeight_sessions_created_total",
		Help: "Total number of sessions created",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "twentyeight_sessions_active",
		Help: "Sessions currently resident in memory",
	})

	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "twentyeight_connections_active",
		Help: "Open WebSocket connections",
	})

	actionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twentyeight_actions_accepted_total",
		Help: "Accepted game actions by type",
	}, []string{"action"})

	actionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twentyeight_actions_rejected_total",
		Help: "Rejected game actions by error kind",
	}, []string{"kind"})

	broadcastFanout = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "twentyeight_broadcast_fanout",
		Help:    "Subscribers reached per broadcast",
		Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 16},
	})

	botActions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twentyeight_bot_actions_total",
		Help: "Actions submitted by the bot driver",
	})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twentyeight_persist_failures_total",
		Help: "Snapshot or round history writes that failed",
	})

	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twentyeight_sessions_swept_total",
		Help: "Idle sessions removed by the cleanup task",
	})
)
