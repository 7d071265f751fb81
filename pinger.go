package escore

import (
	"context"
	"net/http"
	"time"

	"github.com/thammadi/escore/internal/eslog"
)

// PingObserver is the instrumentation seam for ping attempts;
// esmetrics.Collector implements it structurally.
type PingObserver interface {
	ObservePing(outcome string)
}

// Pinger performs a minimal liveness probe against a node before the real
// call. It is optional: see DefaultPingEnabled.
type Pinger struct {
	transport HTTPTransport
	log       eslog.Logger
	metrics   PingObserver
}

// NewPinger builds a Pinger that issues its probe through transport.
func NewPinger(transport HTTPTransport, log eslog.Logger) *Pinger {
	if log == nil {
		log = noopLogger()
	}
	return &Pinger{transport: transport, log: log}
}

// WithMetrics wires a PingObserver into the pinger, recording the outcome
// of every subsequent ping.
func (p *Pinger) WithMetrics(m PingObserver) *Pinger {
	p.metrics = m
	return p
}

// DefaultPingEnabled implements spec §4.3's default: true iff the pool is
// sniffable or holds more than one node.
func DefaultPingEnabled(pool NodePool) bool {
	if pool.Sniffable() {
		return true
	}
	return len(pool.Nodes()) > 1
}

// Ping issues a HEAD-style probe against node with the given timeout. The
// returned error, if any, is a KindPingFailure *PipelineError whose
// Recoverable flag is copied from the underlying HTTPTransport's
// *PipelineError (true for any other error type).
func (p *Pinger) Ping(ctx context.Context, node *Node, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &RequestData{
		Method:      http.MethodHead,
		Path:        "/",
		Node:        node,
		PingTimeout: timeout,
	}

	raw, err := p.transport.Call(cctx, req)
	if err != nil {
		p.log.WithField("node", node.String()).WithError(err).Debug("escore: ping failed")
		p.observePing("failure")
		if pe, ok := err.(*PipelineError); ok {
			return newPipelineError(KindPingFailure, pe.Recoverable, node, pe)
		}
		return newPipelineError(KindPingFailure, true, node, err)
	}
	if raw != nil && raw.Body != nil {
		_ = raw.Body.Close()
	}
	p.log.WithField("node", node.String()).Debug("escore: ping succeeded")
	p.observePing("success")
	return nil
}

func (p *Pinger) observePing(outcome string) {
	if p.metrics != nil {
		p.metrics.ObservePing(outcome)
	}
}
