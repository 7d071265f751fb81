package escore

import (
	"context"
	"time"

	"github.com/thammadi/escore/internal/eslog"
)

// SniffReason identifies why a sniff is being performed.
type SniffReason int

const (
	ReasonStartup SniffReason = iota
	ReasonStale
	ReasonFailure
)

func (r SniffReason) String() string {
	switch r {
	case ReasonStartup:
		return "Startup"
	case ReasonStale:
		return "Stale"
	case ReasonFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// NodeDiscoverer performs the out-of-band request a Sniffer uses to learn
// cluster membership from a given node.
type NodeDiscoverer interface {
	DiscoverNodes(ctx context.Context, via *Node, timeout time.Duration) ([]*Node, error)
}

// SniffObserver is the instrumentation seam for sniff attempts;
// esmetrics.Collector implements it structurally.
type SniffObserver interface {
	ObserveSniff(outcome string, d time.Duration)
}

// Sniffer refreshes a NodePool's membership from the cluster on startup,
// staleness, or request failure.
type Sniffer struct {
	pool          NodePool
	discoverer    NodeDiscoverer
	sniffLifeSpan time.Duration
	log           eslog.Logger
	metrics       SniffObserver

	startupBarrier barrier
}

// NewSniffer builds a Sniffer over pool. sniffLifeSpan <= 0 disables
// sniff-on-stale, matching spec §6's "sniffLifeSpan - duration; default
// off".
func NewSniffer(pool NodePool, discoverer NodeDiscoverer, sniffLifeSpan time.Duration, log eslog.Logger) *Sniffer {
	if log == nil {
		log = noopLogger()
	}
	return &Sniffer{pool: pool, discoverer: discoverer, sniffLifeSpan: sniffLifeSpan, log: log}
}

// WithMetrics wires a SniffObserver into the sniffer, recording the outcome
// and duration of every subsequent sniff attempt.
func (s *Sniffer) WithMetrics(m SniffObserver) *Sniffer {
	s.metrics = m
	return s
}

// SniffOnStartup performs the one-shot startup sniff. Concurrent callers
// across different requests observe the same outcome.
func (s *Sniffer) SniffOnStartup(ctx context.Context, timeout time.Duration) error {
	return s.startupBarrier.run(ctx, func(ctx context.Context) error {
		return s.sniff(ctx, ReasonStartup, timeout)
	})
}

// ShouldSniffOnStale reports whether enough time has passed since the last
// successful sniff to warrant another one.
func (s *Sniffer) ShouldSniffOnStale() bool {
	if s.sniffLifeSpan <= 0 {
		return false
	}
	last := s.pool.LastSniff()
	if last.IsZero() {
		return true
	}
	return time.Since(last) >= s.sniffLifeSpan
}

// sniff performs a sniff for the given reason. On a non-sniffable pool it
// is a no-op returning nil, whatever the reason. ShouldSniffOnStale() is
// not consulted here; callers check it before a stale sniff.
func (s *Sniffer) sniff(ctx context.Context, reason SniffReason, timeout time.Duration) error {
	start := time.Now()
	if reason == ReasonFailure && !s.pool.Sniffable() {
		return nil
	}
	if !s.pool.Sniffable() {
		return nil
	}

	candidates := s.pool.Nodes()
	if len(candidates) == 0 {
		s.observeSniff("NoCandidates", start)
		return newPipelineError(KindSniffFailure, false, nil, errSniffNoCandidates)
	}

	var lastErr error
	for _, node := range candidates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cctx, cancel := context.WithTimeout(ctx, timeout)
		nodes, err := s.discoverer.DiscoverNodes(cctx, node, timeout)
		cancel()
		if err != nil {
			lastErr = err
			s.log.WithField("node", node.String()).WithField("reason", reason.String()).WithError(err).Warn("escore: sniff attempt failed")
			continue
		}
		s.pool.Sniff(nodes)
		s.pool.MarkSniffed(time.Now())
		s.log.WithField("reason", reason.String()).WithField("nodes", len(nodes)).Info("escore: sniff succeeded")
		s.observeSniff("success", start)
		return nil
	}

	s.observeSniff("failure", start)
	return newPipelineError(KindSniffFailure, false, nil, lastErr)
}

func (s *Sniffer) observeSniff(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSniff(outcome, time.Since(start))
	}
}

var errSniffNoCandidates = errStringf("no candidate nodes to sniff from")
