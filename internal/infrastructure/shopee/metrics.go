package shopee

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopee_api_requests_total",
		Help: "Outbound Shopee API requests by path and outcome.",
	}, []string{"path", "outcome"})

	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopee_response_cache_total",
		Help: "Response cache lookups by result.",
	}, []string{"result"})

	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopee_token_refreshes_total",
		Help: "Token refresh attempts by outcome.",
	}, []string{"outcome"})

	authRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopee_auth_retries_total",
		Help: "Requests retried once after a remote authentication failure.",
	})

	rateLimiterWaits = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopee_rate_limiter_wait_seconds",
		Help:    "Time spent waiting for a rate limit permit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"class"})
)
