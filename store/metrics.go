package store

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo-admin/core"
)

// Metrics counts store requests by outcome. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	stale    *prometheus.CounterVec
}

// NewMetrics creates the store counters and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_requests_total",
			Help: "Store actions that reached the API, by store, operation and outcome.",
		}, []string{"store", "op", "outcome"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_stale_responses_total",
			Help: "Responses discarded because a newer request of the same store slot started.",
		}, []string{"store"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.stale} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering store metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observe(store, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(core.AsAPIError(err).Kind)
	}
	m.requests.WithLabelValues(store, op, outcome).Inc()
}

func (m *Metrics) superseded(store string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(store).Inc()
}
