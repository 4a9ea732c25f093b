package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pnr", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pnr", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pnr", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pnr", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pnr", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	RecordsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pnr", Name: "records_dropped_total", Help: "Records dropped during cleaning."},
		[]string{"reason"},
	)
	Duplicates = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pnr", Name: "duplicates_total", Help: "Duplicate reservations removed."},
	)
	ConfirmAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pnr", Name: "confirmation_attempts_total", Help: "Confirmation calls made, retries included."},
	)
	ConfirmRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pnr", Name: "confirmation_retries_total", Help: "Confirmation retries scheduled."},
	)
	Confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pnr", Name: "confirmations_total", Help: "Final confirmation outcomes."},
		[]string{"outcome"}, // confirmed|permanently_failed
	)
)

// Serve starts a standalone /metrics listener on addr; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		RecordsDropped, Duplicates, ConfirmAttempts, ConfirmRetries, Confirmations)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveDrop(reason string) { RecordsDropped.WithLabelValues(reason).Inc() }

func ObserveDuplicates(n int) { Duplicates.Add(float64(n)) }

func ObserveAttempt() { ConfirmAttempts.Inc() }

func ObserveRetry() { ConfirmRetries.Inc() }

func ObserveOutcome(outcome string) { Confirmations.WithLabelValues(outcome).Inc() }
