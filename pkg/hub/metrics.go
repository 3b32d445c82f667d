package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chathub_sessions_active",
		Help: "Number of live WebSocket sessions.",
	})
	fanoutDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_fanout_delivered_total",
		Help: "Frames queued to recipient sessions.",
	})
	fanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_fanout_dropped_total",
		Help: "Frames dropped because a session buffer was full or closed.",
	})
)
