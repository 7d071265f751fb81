// Package esmetrics provides the Prometheus-backed Metrics implementation
// for escore.Transport, grounded on the dedicated-registry pattern used by
// aistore's stats/common_prom.go (an explicit prometheus.Registry with
// static labels and MustRegister, rather than the global default
// registry).
package esmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements escore.Metrics, and also structurally implements the
// optional escore.SniffObserver/escore.PingObserver seams so one Collector
// can be wired to WithMetrics for request, sniff and ping instrumentation
// together.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	sniffs        *prometheus.CounterVec
	sniffDuration *prometheus.HistogramVec

	pings *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its metrics against
// registry. Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to expose alongside the process defaults.
func NewCollector(registry prometheus.Registerer, namespace string) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests performed by the transport, labeled by terminal outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of a complete logical request, including failover attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		sniffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sniff_total",
			Help:      "Total sniff attempts, labeled by outcome.",
		}, []string{"outcome"}),
		sniffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sniff_duration_seconds",
			Help:      "Duration of a sniff attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ping_total",
			Help:      "Total ping attempts, labeled by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(c.requests, c.duration, c.sniffs, c.sniffDuration, c.pings)
	return c
}

// ObserveRequest implements escore.Metrics.
func (c *Collector) ObserveRequest(outcome string, d time.Duration) {
	c.requests.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveSniff implements escore.SniffObserver.
func (c *Collector) ObserveSniff(outcome string, d time.Duration) {
	c.sniffs.WithLabelValues(outcome).Inc()
	c.sniffDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObservePing implements escore.PingObserver.
func (c *Collector) ObservePing(outcome string) {
	c.pings.WithLabelValues(outcome).Inc()
}

// NodeGauges tracks per-pool node liveness, grounded on the same
// aistore pattern; wired in separately from request metrics since a pool
// can outlive any one Transport.
type NodeGauges struct {
	alive  prometheus.Gauge
	dead   *prometheus.CounterVec
}

// NewNodeGauges builds and registers the node-liveness gauges.
func NewNodeGauges(registry prometheus.Registerer, namespace string) *NodeGauges {
	g := &NodeGauges{
		alive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_alive",
			Help:      "Number of nodes currently considered alive in the pool.",
		}),
		dead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_state_transitions_total",
			Help:      "Node alive/dead transitions, labeled by transition kind.",
		}, []string{"transition"}),
	}
	registry.MustRegister(g.alive, g.dead)
	return g
}

// SetAlive records the current alive-node count.
func (g *NodeGauges) SetAlive(n int) { g.alive.Set(float64(n)) }

// RecordDead increments the dead-transition counter.
func (g *NodeGauges) RecordDead() { g.dead.WithLabelValues("dead").Inc() }

// RecordRevived increments the revived-transition counter.
func (g *NodeGauges) RecordRevived() { g.dead.WithLabelValues("revived").Inc() }
