package escore

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/url"
)

// HTTPRoundTripTransport is the default HTTPTransport, adapting an
// *http.Client the way the teacher's Client.PerformRequest does: it never
// returns an error for an ordinary HTTP status code, and classifies
// transport-level failures into a *PipelineError with Recoverable set.
type HTTPRoundTripTransport struct {
	Client            *http.Client
	BasicAuthUsername string
	BasicAuthPassword string
	ExtraHeaders      http.Header
}

// NewHTTPRoundTripTransport builds a transport around client (or a fresh
// default *http.Client if nil).
func NewHTTPRoundTripTransport(client *http.Client) *HTTPRoundTripTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRoundTripTransport{Client: client}
}

func (t *HTTPRoundTripTransport) Call(ctx context.Context, data *RequestData) (*RawResponse, error) {
	u := data.URL()
	if u == nil {
		return nil, newPipelineError(KindBadResponse, false, data.Node, errStringf("request has no resolvable node URL"))
	}

	var body *bytes.Reader
	if len(data.Body) > 0 {
		body = bytes.NewReader(data.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	timeout := data.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, data.Method, u.String(), body)
	if err != nil {
		return nil, newPipelineError(KindBadResponse, false, data.Node, err)
	}
	for k, vs := range data.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range t.ExtraHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if t.BasicAuthUsername != "" || t.BasicAuthPassword != "" {
		req.SetBasicAuth(t.BasicAuthUsername, t.BasicAuthPassword)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, context.Canceled
		}
		return nil, classifyTransportError(data.Node, err)
	}

	status := resp.StatusCode
	return &RawResponse{
		StatusCode: &status,
		Headers:    resp.Header,
		Body:       resp.Body,
	}, nil
}

// classifyTransportError maps a net/http transport failure to a
// *PipelineError, distinguishing recoverable socket-level failures
// (connection refused, reset, timeout) from non-recoverable protocol
// violations (TLS handshake/certificate failures).
func classifyTransportError(node *Node, err error) *PipelineError {
	recoverable := true

	var tlsErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var urlErr *url.Error
	switch {
	case errors.As(err, &tlsErr):
		recoverable = false
	case errors.As(err, &certErr):
		recoverable = false
	case errors.As(err, &urlErr) && errors.As(urlErr.Err, &certErr):
		recoverable = false
	}

	return newPipelineError(KindBadResponse, recoverable, node, err)
}
