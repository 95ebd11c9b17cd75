package medication

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	dosesCreated     prometheus.Counter
	templatesCreated prometheus.Counter
	completions      *prometheus.CounterVec
	deactivated      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dosesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_doses_created_total",
			Help: "Medication doses created, including every expanded occurrence.",
		}),
		templatesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_templates_created_total",
			Help: "Recurring medication templates created.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_dose_completion_toggles_total",
			Help: "Completion toggles by resulting state.",
		}, []string{"completed"}),
		deactivated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_doses_deactivated_total",
			Help: "Doses made inactive, by cause.",
		}, []string{"cause"}),
	}
	reg.MustRegister(m.dosesCreated, m.templatesCreated, m.completions, m.deactivated)
	return m
}

// All methods tolerate a nil receiver so the service works without metrics.

func (m *Metrics) created(doses int, template bool) {
	if m == nil {
		return
	}
	m.dosesCreated.Add(float64(doses))
	if template {
		m.templatesCreated.Inc()
	}
}

func (m *Metrics) toggled(completed bool) {
	if m == nil {
		return
	}
	if completed {
		m.completions.WithLabelValues("true").Inc()
	} else {
		m.completions.WithLabelValues("false").Inc()
	}
}

func (m *Metrics) deactivatedDoses(cause string, n int64) {
	if m == nil {
		return
	}
	m.deactivated.WithLabelValues(cause).Add(float64(n))
}
