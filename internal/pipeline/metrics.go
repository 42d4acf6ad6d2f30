package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opSubmit   = "submit"
	opDrain    = "drain"
	opFinalize = "finalize"

	outcomeHandled = "handled"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

var (
	// itemsTotal counts entities passing the dispatcher by kind, operation and outcome.
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cml_pipeline_items_total",
		Help: "Total number of entities passed through the pipeline dispatcher",
	}, []string{"kind", "operation", "outcome"})

	// handlerFailures counts handler errors and panics.
	handlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cml_pipeline_handler_failures_total",
		Help: "Total number of pipeline handler failures by kind and operation",
	}, []string{"kind", "operation"})
)
