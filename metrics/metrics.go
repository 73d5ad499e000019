// Package metrics exposes prometheus collectors for playback sessions and the proxy service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "sessions_started_total",
		Help:      "Total number of playback sessions created.",
	})

	SessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "state_transitions_total",
		Help:      "Total playback state transitions by target state.",
	}, []string{"state"})

	SessionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "errors_total",
		Help:      "Total playback sessions that ended in the error state, by cause.",
	}, []string{"cause"})

	Stalls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "stalls_total",
		Help:      "Total buffer stalls observed.",
	})

	QualityDowngrades = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "quality_downgrades_total",
		Help:      "Total quality downgrades forced by the stall governor.",
	})

	Recoveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "recoveries_total",
		Help:      "Total automatic recoveries from fatal adaptive client errors, by kind.",
	}, []string{"kind"})

	StartupSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "anistream",
		Subsystem: "playback",
		Name:      "startup_seconds",
		Help:      "Time from load to ready.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	RequestAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "hls",
		Name:      "request_attempts_total",
		Help:      "Total manifest, key and fragment request attempts by outcome.",
	}, []string{"outcome"})

	FragmentBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "hls",
		Name:      "fragment_bytes_total",
		Help:      "Total bytes of media fragments appended.",
	})

	BandwidthEstimate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "anistream",
		Subsystem: "hls",
		Name:      "bandwidth_estimate_bps",
		Help:      "Current bandwidth estimate of the adaptive client in bits per second.",
	})

	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "Total proxy requests by route and status code.",
	}, []string{"route", "status"})

	ProxyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "anistream",
		Subsystem: "proxy",
		Name:      "request_duration_seconds",
		Help:      "Proxy request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"route"})

	ProxyUpstreamBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "proxy",
		Name:      "upstream_bytes_total",
		Help:      "Total bytes relayed from upstream hosts by route.",
	}, []string{"route"})

	ProxyRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "anistream",
		Subsystem: "proxy",
		Name:      "rate_limited_total",
		Help:      "Total proxy requests rejected by the rate limiter.",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SessionsStarted,
		SessionTransitions,
		SessionErrors,
		Stalls,
		QualityDowngrades,
		Recoveries,
		StartupSeconds,
		RequestAttempts,
		FragmentBytes,
		BandwidthEstimate,
		ProxyRequests,
		ProxyDuration,
		ProxyUpstreamBytes,
		ProxyRateLimited,
	)
}
