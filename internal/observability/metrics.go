package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// Metrics holds the service's Prometheus collectors in a private registry,
// so building it twice (tests) never panics on duplicate registration.
// It satisfies lifecycle.Recorder.
type Metrics struct {
	// Registry backs the /metrics endpoint.
	Registry *prometheus.Registry

	statusChanges     *prometheus.CounterVec
	credentialsIssued prometheus.Counter
	casesArchived     prometheus.Counter
	conflicts         *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		statusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_engine_status_changes_total",
				Help: "Applied status changes by target status.",
			},
			[]string{"status"},
		),
		credentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "case_engine_credentials_issued_total",
			Help: "Portal credential pairs issued.",
		}),
		casesArchived: factory.NewCounter(prometheus.CounterOpts{
			Name: "case_engine_cases_archived_total",
			Help: "Cases archived by the retention sweep.",
		}),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_engine_conflicts_total",
				Help: "Optimistic concurrency conflicts by operation.",
			},
			[]string{"operation"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "case_engine_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}
}

func (m *Metrics) StatusChanged(status models.CaseStatus) {
	m.statusChanges.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) CredentialsIssued() { m.credentialsIssued.Inc() }

func (m *Metrics) CasesArchived(n int) { m.casesArchived.Add(float64(n)) }

func (m *Metrics) Conflict(operation string) { m.conflicts.WithLabelValues(operation).Inc() }

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}
