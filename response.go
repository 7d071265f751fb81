package escore

import (
	"bytes"
	"encoding/json"
	"io"
)

// ResponseKind is the closed tagged variant of response shapes the
// ResponseBuilder can produce. The caller selects the kind up front
// (it knows what it asked for); the builder dispatches on the tag instead
// of runtime type identity.
type ResponseKind int

const (
	KindString ResponseKind = iota
	KindBytes
	KindVoid
	KindStream
	KindTyped
)

// Serializer is the external collaborator that turns a byte stream into a
// typed value and a value into bytes. The core treats it as an opaque
// configuration object; it owns no mapping/inference logic itself.
type Serializer interface {
	Deserialize(r io.Reader, v interface{}) error
	Serialize(v interface{}) ([]byte, error)
}

// JSONSerializer is the default Serializer, backed by encoding/json.
type JSONSerializer struct{}

func (JSONSerializer) Deserialize(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func (JSONSerializer) Serialize(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// BufferFactory produces the in-memory buffer used to materialise a
// response body. Pluggable so callers can pool buffers.
type BufferFactory func() *bytes.Buffer

func defaultBufferFactory() *bytes.Buffer { return new(bytes.Buffer) }

// Response is the typed result of one completed request. Body's shape is
// selected by the ResponseKind passed to Build; for KindTyped it holds
// whatever the Serializer/CustomConverter produced.
type Response[T any] struct {
	ApiCall HttpDetails
	Body    T
}

// ResponseBuilder materialises a typed Response from a raw stream plus
// status/exception/warnings, per spec §4.5.
type ResponseBuilder struct {
	BufferFactory BufferFactory
	Serializer    Serializer
}

// NewResponseBuilder constructs a builder with sensible defaults.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		BufferFactory: defaultBufferFactory,
		Serializer:    JSONSerializer{},
	}
}

// Build runs the ResponseBuilder state machine for one attempt. raw may be
// nil (e.g. a connection-level failure never produced an HTTP exchange).
func Build[T any](rb *ResponseBuilder, kind ResponseKind, data *RequestData, raw *RawResponse, callErr error) (*Response[T], error) {
	if rb == nil {
		rb = NewResponseBuilder()
	}

	details := HttpDetails{
		Method:            data.Method,
		URI:               data.URL(),
		RequestBodyBytes:  data.Body,
		OriginalException: callErr,
	}

	var body io.ReadCloser
	if raw != nil {
		details.HTTPStatusCode = raw.StatusCode
		details.DeprecationWarnings = raw.Warnings
		body = raw.Body
	}
	details.Success = IsSuccess(data.Method, details.HTTPStatusCode, data.AllowedStatusCodes)

	resp := &Response[T]{ApiCall: details}

	if body == nil {
		return resp, nil
	}

	disposeBody := kind != KindStream
	if disposeBody {
		defer body.Close()
	}

	shouldBuffer := data.DisableDirectStreaming || kind == KindString || kind == KindBytes
	var buffered []byte
	if shouldBuffer {
		buf := rb.BufferFactory()
		if _, err := io.Copy(buf, body); err != nil {
			return resp, err
		}
		buffered = buf.Bytes()
		details.ResponseBodyBytes = buffered
		resp.ApiCall = details
		if !disposeBody {
			body.Close()
		}
		body = io.NopCloser(bytes.NewReader(buffered))
	}

	switch kind {
	case KindString:
		if out, ok := any(&resp.Body).(*string); ok {
			*out = string(buffered)
		}
		return resp, nil
	case KindBytes:
		if out, ok := any(&resp.Body).(*[]byte); ok {
			*out = append([]byte(nil), buffered...)
		}
		return resp, nil
	case KindVoid:
		_, _ = io.Copy(io.Discard, body)
		return resp, nil
	case KindStream:
		if out, ok := any(&resp.Body).(*io.ReadCloser); ok {
			*out = body
		}
		return resp, nil
	default: // KindTyped
		if details.HTTPStatusCode != nil && data.SkipDeserializationForStatusCodes.has(*details.HTTPStatusCode) {
			return resp, nil
		}
		if data.CustomConverter != nil {
			var payload []byte
			var err error
			if buffered != nil {
				payload = buffered
			} else {
				payload, err = io.ReadAll(body)
				if err != nil {
					return resp, err
				}
			}
			v, err := data.CustomConverter(payload)
			if err != nil {
				return resp, err
			}
			if typed, ok := v.(T); ok {
				resp.Body = typed
			}
			return resp, nil
		}
		if err := rb.Serializer.Deserialize(body, &resp.Body); err != nil {
			return resp, err
		}
		return resp, nil
	}
}
