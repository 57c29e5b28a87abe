package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmart_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_messages_sent_total",
			Help: "Total messages sent",
		},
		[]string{"kind"}, // "text" or "offer"
	)

	OfferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_offer_transitions_total",
			Help: "Total offer status transitions",
		},
		[]string{"status"},
	)

	LikesToggled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_likes_toggled_total",
			Help: "Total like toggles",
		},
		[]string{"direction"}, // "like" or "unlike"
	)

	ListingsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_listings_sold_total",
			Help: "Total listings marked sold",
		},
		[]string{"source"}, // "offer", "manual" or "trigger"
	)

	TriggerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_trigger_runs_total",
			Help: "Total trigger invocations",
		},
		[]string{"trigger", "outcome"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"action"},
	)

	// Push metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmart_websocket_clients",
			Help: "Connected websocket clients",
		},
	)

	EventsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmart_events_pushed_total",
			Help: "Total events delivered to websocket clients",
		},
		[]string{"type"},
	)
)
