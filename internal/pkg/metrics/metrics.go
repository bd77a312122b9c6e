package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "multisend"

// Collector groups the service metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	transfers        *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
	balanceLookups   *prometheus.CounterVec
	tokenResolutions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfers by mode and final status.",
		}, []string{"mode", "status"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a multisend batch.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"mode"}),
		balanceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_lookups_total",
			Help:      "Balance lookups by outcome (ok, invalid_address, error).",
		}, []string{"chain", "outcome"}),
		tokenResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_resolutions_total",
			Help:      "Token metadata resolutions by outcome (cached, resolved, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.transfers, c.batchDuration, c.balanceLookups, c.tokenResolutions)
	return c
}

func (c *Collector) TransferSettled(mode, status string) {
	if c == nil {
		return
	}
	c.transfers.WithLabelValues(mode, status).Inc()
}

func (c *Collector) BatchFinished(mode string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.batchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (c *Collector) BalanceLookup(chain, outcome string) {
	if c == nil {
		return
	}
	c.balanceLookups.WithLabelValues(chain, outcome).Inc()
}

func (c *Collector) TokenResolution(outcome string) {
	if c == nil {
		return
	}
	c.tokenResolutions.WithLabelValues(outcome).Inc()
}
