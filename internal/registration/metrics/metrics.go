package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification outcome label values.
const (
	OutcomeSuccess        = "success"
	OutcomeCodeInvalid    = "code_invalid"
	OutcomeCodeExpired    = "code_expired"
	OutcomeSessionExpired = "session_expired"
)

type Metrics struct {
	CodesIssued          prometheus.Counter
	Verifications        *prometheus.CounterVec
	RateLimitRejections  prometheus.Counter
	NotifyFailures       prometheus.Counter
	PendingSweepRemovals prometheus.Counter
	CodeSweepRemovals    prometheus.Counter
}

// New registers the registration metrics against reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CodesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollgate_codes_issued_total",
			Help: "Total number of verification codes issued",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollgate_verifications_total",
			Help: "Total number of verification attempts by outcome",
		}, []string{"outcome"}),
		RateLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollgate_rate_limit_rejections_total",
			Help: "Total number of issue requests rejected by the rate limiter",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollgate_notify_failures_total",
			Help: "Total number of failed code notification dispatches",
		}),
		PendingSweepRemovals: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollgate_pending_sweep_removals_total",
			Help: "Total number of pending registrations removed by the expiry sweep",
		}),
		CodeSweepRemovals: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollgate_code_sweep_removals_total",
			Help: "Total number of verification codes removed by the expiry sweep",
		}),
	}
}

func (m *Metrics) IncrementCodesIssued() { m.CodesIssued.Inc() }

func (m *Metrics) IncrementVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRateLimitRejections() { m.RateLimitRejections.Inc() }

func (m *Metrics) IncrementNotifyFailures() { m.NotifyFailures.Inc() }
