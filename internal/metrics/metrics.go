// Package metrics registers the Prometheus collectors of the checkout core.
// Collectors live in the default registry and are exposed through accessor
// functions so tests can read them with testutil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout"

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Gateway requests by HTTP method and outcome.",
	}, []string{"method", "outcome"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Round-trip latency of gateway requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	breakerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "breaker_rejections_total",
		Help:      "Requests refused locally because the host circuit was open.",
	}, []string{"host"})

	redirectResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redirect",
		Name:      "resolutions_total",
		Help:      "Redirect continuations by how they were resolved.",
	}, []string{"outcome"})

	classifierRoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "routes_total",
		Help:      "Classified results by route.",
	}, []string{"route"})

	presetChargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "preset",
		Name:      "charges_total",
		Help:      "Preset account charges by terminal interaction code.",
	}, []string{"code"})
)

// Gateway request outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeServerError = "server_error"
	OutcomeTransport   = "transport_error"
	OutcomeDecode      = "decode_error"
	OutcomeBuild       = "build_error"
)

// Redirect resolution outcomes.
const (
	RedirectCallback  = "callback"
	RedirectDismissed = "dismissed"
	RedirectCanceled  = "canceled"
)

func GatewayRequestsTotal() *prometheus.CounterVec     { return gatewayRequestsTotal }
func GatewayRequestDuration() *prometheus.HistogramVec { return gatewayRequestDuration }
func BreakerRejectionsTotal() *prometheus.CounterVec   { return breakerRejectionsTotal }
func RedirectResolutionsTotal() *prometheus.CounterVec { return redirectResolutionsTotal }
func ClassifierRoutesTotal() *prometheus.CounterVec    { return classifierRoutesTotal }
func PresetChargesTotal() *prometheus.CounterVec       { return presetChargesTotal }
