package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the allocation core: slot transitions, coordinator outcomes and sweep results.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SlotTransitions     *prometheus.CounterVec
	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	SweepSlotsChanged   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
}

// New registers the yard metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SlotTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_slot_transitions_total",
			Help: "Slot status writes, by previous and new status",
		}, []string{"from", "to"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_operations_total",
			Help: "Coordinator operations by name and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yard_operation_duration_seconds",
			Help:    "Duration of coordinator operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		SweepSlotsChanged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_sweep_slots_changed_total",
			Help: "Slots moved by the reservation sweep and the healing pass",
		}, []string{"sweep"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_notifications_failed_total",
			Help: "Best-effort side effects that failed, by channel",
		}, []string{"channel"}),
	}
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.SlotTransitions.WithLabelValues(from, to).Inc()
}

// ObserveOperation records one coordinator call. Call with time.Now() taken at the start.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddSweepChanges(sweep string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SweepSlotsChanged.WithLabelValues(sweep).Add(float64(n))
}

func (m *Metrics) IncNotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(channel).Inc()
}
