package client

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"

	reasonRefreshFailed = "refresh_failed"
	reasonNoRefresh     = "no_refresh_credential"
)

type metrics struct {
	refreshes *prometheus.CounterVec
	queued    prometheus.Counter
	replays   prometheus.Counter
	signOuts  *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "refresh_exchanges_total",
			Help:      "Refresh exchanges performed, by result.",
		}, []string{"result"}),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "pending_calls_total",
			Help:      "Calls queued behind an in-flight refresh exchange.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "replays_total",
			Help:      "Requests replayed with a new access credential.",
		}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "client",
			Name:      "sign_outs_total",
			Help:      "Forced sign-outs, by reason.",
		}, []string{"reason"}),
	}
}

// register adopts collectors that are already registered, so several
// clients can share one registry.
func (m *metrics) register(reg prometheus.Registerer) error {
	var err error
	if m.refreshes, err = registerCollector(reg, m.refreshes); err != nil {
		return err
	}
	if m.queued, err = registerCollector(reg, m.queued); err != nil {
		return err
	}
	if m.replays, err = registerCollector(reg, m.replays); err != nil {
		return err
	}
	if m.signOuts, err = registerCollector(reg, m.signOuts); err != nil {
		return err
	}
	return nil
}

func registerCollector[T prometheus.Collector](
	reg prometheus.Registerer,
	c T,
) (
	T,
	error,
) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}
