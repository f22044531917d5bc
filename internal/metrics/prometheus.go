package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maxicoach_turn_duration_seconds",
			Help:    "Time to select a reply for one user message",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"persona"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_turns_total",
			Help: "User messages answered, by selector outcome",
		},
		[]string{"persona", "outcome"},
	)

	MatchScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maxicoach_match_score",
			Help:    "Score of the winning knowledge-base entry",
			Buckets: []float64{1, 1.5, 2, 3, 5, 10, 12},
		},
		[]string{"persona"},
	)

	// Sessions that expire by TTL are never counted as ended.
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_session_events_total",
			Help: "Chat sessions started and explicitly ended",
		},
		[]string{"event"},
	)

	PersonaSwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_persona_switches_total",
			Help: "Persona switches, by target persona",
		},
		[]string{"persona"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	SpeechRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_speech_requests_total",
			Help: "Speech synthesis requests by status",
		},
		[]string{"status"},
	)

	SpeechDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maxicoach_speech_duration_seconds",
			Help:    "Remote text-to-speech latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxicoach_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maxicoach_circuit_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	HistoryWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maxicoach_history_write_failures_total",
			Help: "Conversation turns that could not be persisted",
		},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(MatchScore)
	prometheus.MustRegister(SessionEvents)
	prometheus.MustRegister(PersonaSwitches)
	prometheus.MustRegister(LoginsTotal)
	prometheus.MustRegister(SpeechRequests)
	prometheus.MustRegister(SpeechDuration)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CircuitState)
	prometheus.MustRegister(HistoryWriteFailures)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
