package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialsync_publish_attempts_total",
		Help: "Publish attempts per platform and outcome.",
	}, []string{"platform", "outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialsync_token_refresh_total",
		Help: "Token refreshes per platform and outcome.",
	}, []string{"platform", "outcome"})

	OAuthConnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialsync_oauth_connect_total",
		Help: "OAuth connect callbacks per platform and outcome.",
	}, []string{"platform", "outcome"})

	PlatformRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialsync_platform_request_duration_seconds",
		Help:    "Latency of outbound platform API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform", "code"})
)

// Outcome turns an error into a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
