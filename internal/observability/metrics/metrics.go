package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling core.
type SchedulingMetrics struct {
	slotsGenerated   *prometheus.CounterVec
	bookingAttempts  *prometheus.CounterVec
	reminderDispatch *prometheus.CounterVec
	bookingLatency   *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		slotsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowiq",
			Subsystem: "scheduling",
			Name:      "slots_generated_total",
			Help:      "Total availability slots persisted by bulk generation",
		}, []string{"tenant"}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowiq",
			Subsystem: "scheduling",
			Name:      "booking_attempts_total",
			Help:      "Total book/release calls against the availability ledger",
		}, []string{"operation", "outcome"}),
		reminderDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowiq",
			Subsystem: "reminders",
			Name:      "dispatch_total",
			Help:      "Total reminder delivery attempts",
		}, []string{"channel", "status"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowiq",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of ledger book/release operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotsGenerated, m.bookingAttempts, m.reminderDispatch, m.bookingLatency)
	return m
}

func (m *SchedulingMetrics) ObserveSlotsGenerated(tenant string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.slotsGenerated.WithLabelValues(tenant).Add(float64(count))
}

func (m *SchedulingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveReminderDispatch(channel, status string) {
	if m == nil {
		return
	}
	m.reminderDispatch.WithLabelValues(channel, status).Inc()
}

func (m *SchedulingMetrics) ObserveBookingLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingLatency.WithLabelValues(operation).Observe(seconds)
}
