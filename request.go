package escore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

// IntSet is a small set of HTTP status codes. The zero value is the empty
// set. -1 as a member means "any status code".
type IntSet map[int]struct{}

// NewIntSet builds an IntSet from the given codes.
func NewIntSet(codes ...int) IntSet {
	s := make(IntSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s IntSet) has(code int) bool {
	if s == nil {
		return false
	}
	if _, ok := s[-1]; ok {
		return true
	}
	_, ok := s[code]
	return ok
}

// CustomConverter is a per-request post-deserialization hook: it receives
// the raw body bytes and returns the value to attach to the response, or an
// error to abort deserialization.
type CustomConverter func(body []byte) (interface{}, error)

// RequestData is immutable after construction; the Node slot is the only
// mutable field, and is filled in by the pipeline for each attempt.
type RequestData struct {
	Method string
	Path   string
	Body   []byte

	AllowedStatusCodes                IntSet
	SkipDeserializationForStatusCodes IntSet
	CustomConverter                   CustomConverter

	Node *Node

	RequestTimeout time.Duration
	PingTimeout    time.Duration
	SniffTimeout   time.Duration
	MaxRetries     *int

	DisableDirectStreaming bool

	Headers http.Header
}

// URL resolves the request's full URL against the currently assigned Node.
func (r *RequestData) URL() *url.URL {
	if r.Node == nil || r.Node.URI == nil {
		return nil
	}
	u := *r.Node.URI
	u.Path = singleJoiningSlash(u.Path, r.Path)
	return &u
}

func singleJoiningSlash(a, b string) string {
	aslash := len(a) > 0 && a[len(a)-1] == '/'
	bslash := len(b) > 0 && b[0] == '/'
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash && len(b) > 0:
		return a + "/" + b
	default:
		return a + b
	}
}

// HttpDetails is the ApiCall carried on every response: the full audit of
// what happened while trying to complete one logical request.
type HttpDetails struct {
	Success           bool
	HTTPStatusCode    *int
	OriginalException error
	RequestBodyBytes  []byte
	ResponseBodyBytes []byte
	URI               *url.URL
	Method            string
	DeprecationWarnings []string
	AuditTrail        *AuditTrail
}

// MarshalJSON flattens OriginalException to its message, since error values
// otherwise marshal as their concrete (often empty) struct shape.
func (d HttpDetails) MarshalJSON() ([]byte, error) {
	type alias struct {
		Success             bool       `json:"Success"`
		HTTPStatusCode      *int       `json:"HTTPStatusCode,omitempty"`
		OriginalException   string     `json:"OriginalException,omitempty"`
		ResponseBodyBytes   []byte     `json:"ResponseBodyBytes,omitempty"`
		URI                 *url.URL   `json:"URI,omitempty"`
		Method              string     `json:"Method,omitempty"`
		DeprecationWarnings []string   `json:"DeprecationWarnings,omitempty"`
		AuditTrail          *AuditTrail `json:"AuditTrail,omitempty"`
	}
	a := alias{
		Success:             d.Success,
		HTTPStatusCode:      d.HTTPStatusCode,
		ResponseBodyBytes:   d.ResponseBodyBytes,
		URI:                 d.URI,
		Method:              d.Method,
		DeprecationWarnings: d.DeprecationWarnings,
		AuditTrail:          d.AuditTrail,
	}
	if d.OriginalException != nil {
		a.OriginalException = d.OriginalException.Error()
	}
	return json.Marshal(a)
}

// IsSuccess implements spec §3 invariant (a).
func IsSuccess(method string, statusCode *int, allowed IntSet) bool {
	if statusCode == nil {
		return false
	}
	code := *statusCode
	if code >= 200 && code <= 299 {
		return true
	}
	if method == http.MethodHead && code == 404 {
		return true
	}
	return allowed.has(code)
}

// SuccessOrKnownError implements spec §3 invariant (b): it reports whether
// a server response, even an unsuccessful one, is a known outcome (success,
// or a 4xx/5xx status) rather than a connection-level failure.
// RequestPipeline.Run does not call it; Run classifies responses itself.
func SuccessOrKnownError(success bool, statusCode *int) bool {
	if success {
		return true
	}
	if statusCode == nil {
		return false
	}
	code := *statusCode
	return code >= 400 && code <= 599
}

// RawResponse is what the HTTPTransport collaborator returns for one
// node-level attempt.
type RawResponse struct {
	StatusCode *int
	Headers    http.Header
	Body       io.ReadCloser
	Warnings   []string
}

// HTTPTransport is the external collaborator performing the socket-level
// exchange. It must not return an error for ordinary HTTP status codes;
// it must return a *PipelineError (already classified recoverable or not)
// for transport-level failures (connect, TLS, timeout).
type HTTPTransport interface {
	Call(ctx context.Context, req *RequestData) (*RawResponse, error)
}

// ClusterInfo is a cluster's name and version. No component in this
// package fills it in: the discoverer parses the sniff response's
// cluster_name but does not return it, and the ping probe reads no body.
type ClusterInfo struct {
	ClusterName string
	Version     string
}
