package ingress

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	reconcileDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fleetshard",
			Name:      "ingress_reconcile_duration_seconds",
			Help:      "Duration of ingress reconcile passes in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	reconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetshard",
			Name:      "ingress_reconcile_errors_total",
			Help:      "Total number of ingress reconcile errors",
		},
		[]string{"reason"},
	)

	reconcileSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetshard",
			Name:      "ingress_reconcile_skipped_total",
			Help:      "Total number of reconcile passes skipped waiting for informer caches",
		},
	)

	controllerReplicasGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fleetshard",
			Name:      "ingress_controller_replicas",
			Help:      "Replica count last written to an ingress controller",
		},
		[]string{"name"},
	)

	routerPatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetshard",
			Name:      "ingress_router_patches_total",
			Help:      "Total number of router deployment edits issued",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		reconcileDurationHistogram,
		reconcileErrorsTotal,
		reconcileSkippedTotal,
		controllerReplicasGauge,
		routerPatchesTotal,
	)
}
