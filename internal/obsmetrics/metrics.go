package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

var Module = fx.Provide(New)

// Metrics holds the service's prometheus instruments, exposed on /metrics.
type Metrics struct {
	UsageRecorded   *prometheus.CounterVec
	CreditsCharged  *prometheus.CounterVec
	AlertsEvaluated prometheus.Counter
	AlertsFired     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		UsageRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scopeline",
			Subsystem: "budget",
			Name:      "usage_records_total",
			Help:      "Usage records written, by effective scope type.",
		}, []string{"scope_type"}),
		CreditsCharged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scopeline",
			Subsystem: "budget",
			Name:      "credits_charged_total",
			Help:      "Credits charged against budgets, by effective scope type.",
		}, []string{"scope_type"}),
		AlertsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "scopeline",
			Subsystem: "budget",
			Name:      "alert_evaluations_total",
			Help:      "Alert list evaluations.",
		}),
		AlertsFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "scopeline",
			Subsystem: "budget",
			Name:      "alerts_fired_total",
			Help:      "Alerts returned by evaluations.",
		}),
	}
}
