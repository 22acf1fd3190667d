package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/batchgate/internal/model"
)

// Metric label values.
const (
	resultPassed   = "passed"
	resultFailed   = "failed"
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
	actionOther    = "other"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchgate_requests_total",
			Help: "Total number of batch requests processed, by mode, action and result.",
		},
		[]string{"mode", "action", "result"},
	)

	conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchgate_conflicts_total",
			Help: "Total number of precheck conflicts reported, by kind.",
		},
		[]string{"kind"},
	)

	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchgate_backend_calls_total",
			Help: "Total number of backend calls, by action and result.",
		},
		[]string{"action", "result"},
	)

	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchgate_batch_duration_seconds",
			Help:    "Wall-clock duration of a batch run, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	batchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchgate_batches_in_flight",
			Help: "Number of batches currently running.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(conflictsTotal)
	prometheus.MustRegister(backendCallsTotal)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(batchesInFlight)

	// Pre-initialize conflict kinds so they appear in /metrics with value 0
	// from startup.
	for _, kind := range model.ConflictKinds {
		conflictsTotal.WithLabelValues(string(kind))
	}
}

// actionLabel bounds label cardinality to the known wire actions.
func actionLabel(action string) string {
	switch a := model.NormalizeAction(action); a {
	case model.ActionCreate, model.ActionUpdate, model.ActionDelete, model.ActionSearch:
		return a
	default:
		return actionOther
	}
}

func observeOutcome(mode model.Mode, o model.Outcome) {
	result := resultFailed
	if o.Passed() {
		result = resultPassed
	}
	requestsTotal.WithLabelValues(string(mode), actionLabel(o.Action), result).Inc()

	if o.Verdict != nil {
		for _, c := range o.Verdict.Conflicts {
			conflictsTotal.WithLabelValues(string(c.Kind)).Inc()
		}
	}
}
