package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "walletpool"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	allocations    *prom.CounterVec
	claimConflicts prom.Counter
	releases       *prom.CounterVec
	reconciles     *prom.CounterVec
	daemonCalls    *prom.CounterVec
	daemonLatency  *prom.HistogramVec
	freeAddresses  prom.Gauge
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.allocations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Address allocations by source (reused free record or freshly minted)",
		}, []string{"source"})
		pr.claimConflicts = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "claim_conflicts_total",
			Help:      "Free-record claims lost to a concurrent allocator",
		})
		pr.releases = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Address releases by result",
		}, []string{"result"})
		pr.reconciles = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_addresses_total",
			Help:      "Per-address balance reconciliation results",
		}, []string{"result"})
		pr.daemonCalls = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "daemon_calls_total",
			Help:      "Wallet daemon RPC calls by method and result",
		}, []string{"method", "result"})
		pr.daemonLatency = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "daemon_call_duration_seconds",
			Help:      "Wallet daemon RPC latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method"})
		pr.freeAddresses = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "free_addresses",
			Help:      "Enabled unowned addresses observed at the last pool scan",
		})
		reg.MustRegister(pr.allocations, pr.claimConflicts, pr.releases, pr.reconciles, pr.daemonCalls, pr.daemonLatency, pr.freeAddresses)
	})
	return pr
}

func (p *PrometheusRecorder) IncAllocation(source AllocationSource) {
	if p == nil || p.allocations == nil {
		return
	}
	p.allocations.WithLabelValues(string(source)).Inc()
}

func (p *PrometheusRecorder) IncClaimConflict() {
	if p == nil || p.claimConflicts == nil {
		return
	}
	p.claimConflicts.Inc()
}

func (p *PrometheusRecorder) IncRelease(result ResultLabel) {
	if p == nil || p.releases == nil {
		return
	}
	p.releases.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncReconcile(result ResultLabel) {
	if p == nil || p.reconciles == nil {
		return
	}
	p.reconciles.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDaemonCall(method string, result ResultLabel) {
	if p == nil || p.daemonCalls == nil {
		return
	}
	p.daemonCalls.WithLabelValues(method, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveDaemonCall(method string, d time.Duration) {
	if p == nil || p.daemonLatency == nil {
		return
	}
	p.daemonLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetFreeAddresses(n int) {
	if p == nil || p.freeAddresses == nil {
		return
	}
	p.freeAddresses.Set(float64(n))
}
