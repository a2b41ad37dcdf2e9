package genstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prepare outcomes.
const (
	outcomeFresh = "fresh"
	outcomeSplit = "split"
	outcomeError = "error"
)

// Metrics holds the Prometheus metrics of a Manager.
type Metrics struct {
	Prepares      *prometheus.CounterVec
	SplitDuration prometheus.Histogram
	SplitFeatures prometheus.Counter
	SplitCells    prometheus.Counter
	OpenStores    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	prepares := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "genstore_prepare_total",
		Help: "Prepare calls by outcome (fresh, split, error)",
	}, []string{"outcome"})

	splitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "genstore_split_duration_seconds",
		Help:    "Time spent splitting source documents",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	splitFeatures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "genstore_split_features_total",
		Help: "Features written by completed splits",
	})

	splitCells := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "genstore_split_grid_cells_total",
		Help: "Grid cell values written by completed splits",
	})

	openStores := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "genstore_open_stores",
		Help: "Stores opened by Prepare and not yet closed",
	})

	reg.MustRegister(prepares, splitDuration, splitFeatures, splitCells, openStores)

	return &Metrics{
		Prepares:      prepares,
		SplitDuration: splitDuration,
		SplitFeatures: splitFeatures,
		SplitCells:    splitCells,
		OpenStores:    openStores,
	}
}
