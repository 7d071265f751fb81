package escore

import (
	"context"
	"time"

	"github.com/thammadi/escore/internal/eslog"
)

// Transport is the outer orchestrator: for each logical request it runs the
// shared RequestPipeline's state machine, invokes the
// OnRequestDataCreated/OnRequestCompleted callbacks exactly once, and builds
// the typed response. The pipeline keeps no per-request resources of its
// own; Run holds its per-request state in local variables.
type Transport struct {
	pipeline *RequestPipeline
	builder  *ResponseBuilder
	cfg      *Config
	log      eslog.Logger
	metrics  Metrics
}

// Metrics is the instrumentation seam Transport reports through. The
// default NoopMetrics discards everything; escore/internal/esmetrics
// provides a Prometheus-backed implementation.
type Metrics interface {
	ObserveRequest(outcome string, d time.Duration)
}

// NoopMetrics implements Metrics by discarding every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRequest(string, time.Duration) {}

// NewTransport builds a Transport over an already-constructed pipeline and
// response builder.
func NewTransport(pipeline *RequestPipeline, builder *ResponseBuilder, cfg *Config, metrics Metrics) *Transport {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	log := noopLogger()
	if cfg != nil && cfg.Logger != nil {
		log = cfg.Logger
	}
	return &Transport{pipeline: pipeline, builder: builder, cfg: cfg, log: log, metrics: metrics}
}

// Perform runs one logical request end to end and materialises a typed
// Response[T]. kind must match T (KindString -> string, KindBytes ->
// []byte, KindVoid -> struct{}, KindStream -> io.ReadCloser, KindTyped ->
// any user type). Go does not allow generic methods, so this is a
// free function taking the Transport as its first argument.
func Perform[T any](t *Transport, ctx context.Context, kind ResponseKind, data *RequestData) (*Response[T], error) {
	start := time.Now()

	if t.cfg != nil && t.cfg.OnRequestDataCreated != nil {
		t.cfg.OnRequestDataCreated(data)
	}

	result, err := t.pipeline.Run(ctx, data)

	if err != nil {
		outcome := outcomeFor(err)
		t.metrics.ObserveRequest(outcome, time.Since(start))

		details := HttpDetails{
			Method:            data.Method,
			URI:               data.URL(),
			OriginalException: err,
			RequestBodyBytes:  data.Body,
		}
		if result != nil {
			details.AuditTrail = result.Trail
		} else {
			details.AuditTrail = newAuditTrail()
		}
		t.completeRequest(&details)

		if err == context.Canceled || err == context.DeadlineExceeded {
			return &Response[T]{ApiCall: details}, err
		}
		return &Response[T]{ApiCall: details}, err
	}

	resp, buildErr := Build[T](t.builder, kind, data, result.Raw, nil)
	resp.ApiCall.AuditTrail = result.Trail
	t.metrics.ObserveRequest("success", time.Since(start))
	t.completeRequest(&resp.ApiCall)
	return resp, buildErr
}

func (t *Transport) completeRequest(details *HttpDetails) {
	if t.cfg != nil && t.cfg.OnRequestCompleted != nil {
		t.cfg.OnRequestCompleted(details)
	}
}

func outcomeFor(err error) string {
	switch e := err.(type) {
	case *PipelineError:
		return e.Kind.String()
	case *UnexpectedError:
		return "Unexpected"
	default:
		if err == context.Canceled {
			return "Cancelled"
		}
		return "Unknown"
	}
}
