package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ChargeSessionTotal counts charge session initiations by result.
	ChargeSessionTotal *prometheus.CounterVec
	// ChargeCallbackTotal counts interpreted processor callbacks by path and result.
	ChargeCallbackTotal *prometheus.CounterVec
	// ChargeConfirmTotal counts ledger confirmation outcomes.
	ChargeConfirmTotal *prometheus.CounterVec
	// ChargeConfirmLatency records ledger confirmation latency in milliseconds.
	ChargeConfirmLatency *prometheus.HistogramVec
	// NotifyDeliveriesTotal tracks settlement notification dispatch outcomes.
	NotifyDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ChargeSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_session_total",
			Help:      "Count of charge session initiation outcomes.",
		}, []string{"result"})
		ChargeCallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_callback_total",
			Help:      "Count of interpreted processor callbacks by path and result.",
		}, []string{"path", "result"})
		ChargeConfirmTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_confirm_total",
			Help:      "Count of ledger confirmation outcomes.",
		}, []string{"result"})
		ChargeConfirmLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "charge_confirm_duration_ms",
			Help:      "Latency for ledger confirmation calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		NotifyDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_deliveries_total",
			Help:      "Count of settlement notification delivery outcomes.",
		}, []string{"result"})
		mustRegister(reg,
			&ChargeSessionTotal,
			&ChargeCallbackTotal,
			&ChargeConfirmTotal,
			&ChargeConfirmLatency,
			&NotifyDeliveriesTotal,
		)
	})
}
