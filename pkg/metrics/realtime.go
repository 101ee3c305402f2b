package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks live feed subscribers and pushed snapshots.
type RealtimeMetrics struct {
	subscribers prometheus.Gauge
	snapshots   prometheus.Counter
	changes     *prometheus.CounterVec
}

// NewRealtimeMetrics registers the realtime metrics on reg.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wishwall_realtime_subscribers",
		Help: "Open public feed subscriptions.",
	})
	snapshots := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wishwall_realtime_snapshots_total",
		Help: "Public feed snapshots delivered to subscribers.",
	})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishwall_realtime_changes_total",
		Help: "Change notifications received from the realtime driver.",
	}, []string{"op"})
	reg.MustRegister(subscribers, snapshots, changes)
	return &RealtimeMetrics{subscribers: subscribers, snapshots: snapshots, changes: changes}
}

// SubscriberOpened increments the live subscriber gauge.
func (r *RealtimeMetrics) SubscriberOpened() {
	if r == nil || r.subscribers == nil {
		return
	}
	r.subscribers.Inc()
}

// SubscriberClosed decrements the live subscriber gauge.
func (r *RealtimeMetrics) SubscriberClosed() {
	if r == nil || r.subscribers == nil {
		return
	}
	r.subscribers.Dec()
}

// SnapshotSent counts one delivered snapshot.
func (r *RealtimeMetrics) SnapshotSent() {
	if r == nil || r.snapshots == nil {
		return
	}
	r.snapshots.Inc()
}

// ChangeReceived counts a change notification by operation.
func (r *RealtimeMetrics) ChangeReceived(op string) {
	if r == nil || r.changes == nil {
		return
	}
	r.changes.WithLabelValues(normalizeLabel(op)).Inc()
}
