package cml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	phaseClassifier = "classifier"
	phaseCatalog    = "catalog"
	phaseOffers     = "offers"
	phaseOrders     = "orders"
)

var (
	// phaseDuration tracks how long each import phase takes.
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cml_import_phase_duration_seconds",
		Help:    "Duration of CommerceML import phases",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"phase"})

	// exportedDocuments counts order documents written by exports.
	exportedDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cml_export_documents_total",
		Help: "Total number of order documents written to exports",
	})
)
