package escore

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// PipelineExceptionKind enumerates the terminal failure modes the pipeline
// can raise. Each kind carries a Recoverable flag on the concrete
// *PipelineError value rather than a fixed per-kind constant, since the
// same kind (e.g. PingFailure) can be recoverable or not depending on the
// underlying cause classified by the HTTPTransport.
type PipelineExceptionKind int

const (
	KindBadResponse PipelineExceptionKind = iota
	KindBadAuthentication
	KindPingFailure
	KindSniffFailure
	KindCouldNotStartSniffOnStartup
	KindMaxTimeoutReached
	KindMaxRetriesReached
	KindNoNodesAttempted
	KindUnexpected
)

func (k PipelineExceptionKind) String() string {
	switch k {
	case KindBadResponse:
		return "BadResponse"
	case KindBadAuthentication:
		return "BadAuthentication"
	case KindPingFailure:
		return "PingFailure"
	case KindSniffFailure:
		return "SniffFailure"
	case KindCouldNotStartSniffOnStartup:
		return "CouldNotStartSniffOnStartup"
	case KindMaxTimeoutReached:
		return "MaxTimeoutReached"
	case KindMaxRetriesReached:
		return "MaxRetriesReached"
	case KindNoNodesAttempted:
		return "NoNodesAttempted"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Unknown"
	}
}

// PipelineError is the result type the pipeline branches on: Recoverable
// means "try another node". A caller-visible terminal error is a
// *PipelineError, an *UnexpectedError, or, on cancellation, the bare
// context error.
type PipelineError struct {
	Kind        PipelineExceptionKind
	Recoverable bool
	Node        *Node
	cause       error
}

func newPipelineError(kind PipelineExceptionKind, recoverable bool, node *Node, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Recoverable: recoverable, Node: node, cause: errors.WithStack(cause)}
}

func (e *PipelineError) Error() string {
	if e.Node != nil {
		return fmt.Sprintf("escore: %s on %s: %v", e.Kind, e.Node.URI, e.cause)
	}
	return fmt.Sprintf("escore: %s: %v", e.Kind, e.cause)
}

func (e *PipelineError) Unwrap() error {
	return e.cause
}

// UnexpectedError wraps any non-PipelineException failure together with
// every PipelineError observed earlier in the same request, so the caller
// can see the full accumulated trail, not just the final cause.
type UnexpectedError struct {
	Cause error
	Prior []*PipelineError
}

func wrapUnexpected(cause error, prior []*PipelineError) *UnexpectedError {
	return &UnexpectedError{Cause: cause, Prior: append([]*PipelineError(nil), prior...)}
}

func (e *UnexpectedError) Error() string {
	merr := &multierror.Error{}
	for _, p := range e.Prior {
		merr = multierror.Append(merr, p)
	}
	merr = multierror.Append(merr, e.Cause)
	return errors.Wrap(merr, "escore: unexpected error").Error()
}

func (e *UnexpectedError) Unwrap() error {
	return e.Cause
}
