// Package metrics exposes prometheus instrumentation for the quota pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_resolutions_total",
			Help: "Total principal/class resolutions, by result",
		},
		[]string{"result"}, // ok/error
	)

	classProvisionedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotagate_classes_provisioned_total",
			Help: "Total rate classes auto-provisioned on first contact",
		},
	)

	ruleMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_rule_matches_total",
			Help: "Total rule evaluations, by outcome",
		},
		[]string{"outcome"}, // matched/deferred/denied
	)

	bucketsScannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotagate_buckets_scanned_total",
			Help: "Total bucket records fetched during aggregation",
		},
	)

	bucketsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotagate_buckets_skipped_total",
			Help: "Total bucket records skipped (expired mid-scan or undecodable)",
		},
	)

	statusDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quotagate_status_duration_seconds",
			Help:    "Quota status assembly duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

func ObserveResolution(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	resolutionsTotal.WithLabelValues(result).Inc()
}

func ClassProvisioned() {
	classProvisionedTotal.Inc()
}

func RuleMatch(outcome string) {
	ruleMatchTotal.WithLabelValues(outcome).Inc()
}

func BucketScanned() {
	bucketsScannedTotal.Inc()
}

func BucketSkipped() {
	bucketsSkippedTotal.Inc()
}

func ObserveStatusDuration(d time.Duration) {
	statusDuration.Observe(d.Seconds())
}
