package escore

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/thammadi/escore/internal/eslog"
)

// PipelineState names the coarse states the RequestPipeline state machine
// moves through for one request: Fresh -> Bootstrapped -> Iterating(k) ->
// {Succeeded | Failed}.
type PipelineState int

const (
	StateFresh PipelineState = iota
	StateBootstrapped
	StateIterating
	StateSucceeded
	StateFailed
)

// RequestPipelineConfig carries the per-pipeline policy knobs enumerated in
// spec §6.
type RequestPipelineConfig struct {
	SniffOnStartup         bool
	SniffOnConnectionFault bool
	PingEnabled            bool
	MaxRetryTimeout        time.Duration
	// IsAuthenticationError classifies a status code as a non-recoverable
	// authentication failure. Defaults to "status == 401".
	IsAuthenticationError func(statusCode int) bool
}

func defaultIsAuthenticationError(statusCode int) bool {
	return statusCode == 401
}

// RequestPipeline is the per-request state machine composing NodePool,
// Sniffer, Pinger and HTTPTransport, per spec §4.4.
type RequestPipeline struct {
	pool      NodePool
	sniffer   *Sniffer
	pinger    *Pinger
	transport HTTPTransport
	cfg       RequestPipelineConfig
	log       eslog.Logger
}

// NewRequestPipeline builds a RequestPipeline. sniffer and pinger may be
// nil to disable their respective behaviours entirely.
func NewRequestPipeline(pool NodePool, sniffer *Sniffer, pinger *Pinger, transport HTTPTransport, cfg RequestPipelineConfig, log eslog.Logger) *RequestPipeline {
	if cfg.IsAuthenticationError == nil {
		cfg.IsAuthenticationError = defaultIsAuthenticationError
	}
	if log == nil {
		log = noopLogger()
	}
	return &RequestPipeline{pool: pool, sniffer: sniffer, pinger: pinger, transport: transport, cfg: cfg, log: log}
}

// Result is what one Run of the pipeline produces: either a terminal raw
// response (success or a known/surfaced application error) or a non-nil
// err classifying why the request failed outright.
type Result struct {
	Raw   *RawResponse
	Trail *AuditTrail
}

// Run drives the state machine for one logical request.
func (rp *RequestPipeline) Run(ctx context.Context, data *RequestData) (*Result, error) {
	trail := newAuditTrail()
	start := time.Now()

	if rp.cfg.MaxRetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rp.cfg.MaxRetryTimeout)
		defer cancel()
	}

	if err := rp.checkCancel(ctx, trail); err != nil {
		return &Result{Trail: trail}, err
	}

	// Fresh -> Bootstrapped
	if rp.cfg.SniffOnStartup && rp.sniffer != nil && rp.pool.Sniffable() {
		if err := rp.sniffer.SniffOnStartup(ctx, data.SniffTimeout); err != nil {
			trail.add(SniffFailure, nil, err)
			return &Result{Trail: trail}, newPipelineError(KindCouldNotStartSniffOnStartup, false, nil, err)
		}
		trail.add(SniffOnStartup, nil, nil)
	}

	nodes := rp.pool.NextNode(data.MaxRetries)
	if len(nodes) == 0 {
		trail.add(NoNodesAttempted, nil, nil)
		return &Result{Trail: trail}, newPipelineError(KindNoNodesAttempted, false, nil, errStringf("no nodes available in pool"))
	}

	var prior []*PipelineError
	sniffedOnFailure := false

	for _, node := range nodes {
		if err := rp.checkCancel(ctx, trail); err != nil {
			return &Result{Trail: trail}, err
		}

		if rp.cfg.MaxRetryTimeout > 0 && time.Since(start) > rp.cfg.MaxRetryTimeout {
			trail.add(MaxRetriesReached, nil, nil)
			return &Result{Trail: trail}, newPipelineError(KindMaxTimeoutReached, false, nil, combinePrior(prior))
		}

		data.Node = node

		if rp.sniffer != nil && rp.pool.Sniffable() && rp.sniffer.ShouldSniffOnStale() {
			if err := rp.checkCancel(ctx, trail); err != nil {
				return &Result{Trail: trail}, err
			}
			if err := rp.sniffer.sniff(ctx, ReasonStale, data.SniffTimeout); err != nil {
				trail.add(SniffFailure, node, err)
			} else {
				trail.add(SniffSuccess, node, nil)
			}
		}

		if rp.pinger != nil && rp.cfg.PingEnabled {
			if err := rp.checkCancel(ctx, trail); err != nil {
				return &Result{Trail: trail}, err
			}
			if err := rp.pinger.Ping(ctx, node, data.PingTimeout); err != nil {
				trail.add(PingFailure, node, err)
				pe, _ := err.(*PipelineError)
				if pe != nil && !pe.Recoverable {
					return &Result{Trail: trail}, pe
				}
				if pe != nil {
					prior = append(prior, pe)
				}
				sniffedOnFailure = rp.maybeSniffOnFailure(ctx, trail, sniffedOnFailure)
				continue
			}
			trail.add(PingSuccess, node, nil)
		}

		if err := rp.checkCancel(ctx, trail); err != nil {
			return &Result{Trail: trail}, err
		}

		raw, callErr := rp.transport.Call(ctx, data)
		if callErr != nil {
			if errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded) {
				trail.add(CancellationRequested, node, callErr)
				return &Result{Trail: trail}, callErr
			}
			pe, ok := callErr.(*PipelineError)
			if !ok {
				return &Result{Trail: trail}, wrapUnexpected(callErr, prior)
			}
			rp.pool.MarkDead(node)
			trail.add(MarkDead, node, pe)
			prior = append(prior, pe)
			if !pe.Recoverable {
				return &Result{Trail: trail}, pe
			}
			sniffedOnFailure = rp.maybeSniffOnFailure(ctx, trail, sniffedOnFailure)
			continue
		}

		success := IsSuccess(data.Method, raw.StatusCode, data.AllowedStatusCodes)
		if success {
			rp.pool.MarkAlive(node)
			trail.add(MarkAlive, node, nil)
			trail.add(HealthyResponse, node, nil)
			return &Result{Raw: raw, Trail: trail}, nil
		}

		statusCode := 0
		if raw.StatusCode != nil {
			statusCode = *raw.StatusCode
		}

		if rp.cfg.IsAuthenticationError(statusCode) {
			rp.pool.MarkAlive(node)
			trail.add(MarkAlive, node, nil)
			pe := newPipelineError(KindBadAuthentication, false, node, errStringf("authentication failed with status %d", statusCode))
			trail.add(BadResponse, node, pe)
			return &Result{Trail: trail}, pe
		}

		// Known application-level error (spec §3 invariant (b)), including a
		// well-formed 5xx: Succeeded with success=false. The teacher only
		// retries a true connection-level failure, never a valid HTTP
		// response regardless of status code, so this is terminal; the
		// caller inspects ApiCall.Success.
		rp.pool.MarkAlive(node)
		trail.add(MarkAlive, node, nil)
		trail.add(BadResponse, node, nil)
		return &Result{Raw: raw, Trail: trail}, nil
	}

	trail.add(MaxRetriesReached, nil, nil)
	return &Result{Trail: trail}, newPipelineError(KindMaxRetriesReached, false, nil, combinePrior(prior))
}

func (rp *RequestPipeline) maybeSniffOnFailure(ctx context.Context, trail *AuditTrail, already bool) bool {
	if already || !rp.cfg.SniffOnConnectionFault || rp.sniffer == nil || !rp.pool.Sniffable() {
		return already
	}
	if err := rp.sniffer.sniff(ctx, ReasonFailure, defaultSniffTimeout); err != nil {
		trail.add(SniffFailure, nil, err)
	} else {
		trail.add(SniffSuccess, nil, nil)
	}
	return true
}

func (rp *RequestPipeline) checkCancel(ctx context.Context, trail *AuditTrail) error {
	select {
	case <-ctx.Done():
		trail.add(CancellationRequested, nil, ctx.Err())
		return ctx.Err()
	default:
		return nil
	}
}

func combinePrior(prior []*PipelineError) error {
	if len(prior) == 0 {
		return nil
	}
	merr := &multierror.Error{}
	for _, p := range prior {
		merr = multierror.Append(merr, p)
	}
	return merr
}

const defaultSniffTimeout = 2 * time.Second
