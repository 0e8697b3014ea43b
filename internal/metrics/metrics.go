package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 导览服务指标
var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guide",
		Name:      "scans_total",
		Help:      "NFC scan events by result (accepted / rejected).",
	}, []string{"result"})

	RoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guide",
		Name:      "routes_total",
		Help:      "Published route results by mode.",
	}, []string{"mode"})

	RouteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guide",
		Name:      "route_failures_total",
		Help:      "Route computations that produced no route, by reason.",
	}, []string{"reason"})

	RoutesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guide",
		Name:      "routes_discarded_total",
		Help:      "Route results dropped because a newer location superseded them.",
	})

	MapReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guide",
		Name:      "map_reloads_total",
		Help:      "Map asset reload requests (building or floor changed).",
	})

	FeedRefreshSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "guide",
		Name:      "feed_refresh_seconds",
		Help:      "Latency of patient snapshot refreshes.",
		Buckets:   prometheus.DefBuckets,
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guide",
		Name:      "active_sessions",
		Help:      "Patients with an active guidance session.",
	})
)
