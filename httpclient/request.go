package httpclient

import (
	"encoding/json"
	"maps"
)

// ReturnMode selects how much of a response the caller gets back.
type ReturnMode int

const (
	// ReturnData classifies the body against the success envelope and
	// returns the unwrapped payload.
	ReturnData ReturnMode = iota
	// ReturnBody checks the status range and returns the whole body.
	ReturnBody
	// ReturnRaw skips classification and returns the response unmodified.
	ReturnRaw
)

// String returns the mode name.
func (m ReturnMode) String() string {
	switch m {
	case ReturnData:
		return "data"
	case ReturnBody:
		return "body"
	case ReturnRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string
	// Path is appended to the client's BaseURL. Can be a full URL.
	Path string
	// Headers are request-specific headers (merged over client defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body accepts io.Reader, []byte, string, or any JSON-encodable value.
	// Readers are buffered before the first send so the request can be
	// replayed.
	Body any
	// Return selects the response shape. Defaults to ReturnData.
	Return ReturnMode

	attempt attempt
}

// attempt is per-request state carried across replays.
type attempt struct {
	retry bool
	token string
}

// IsRetry reports whether the request is already a refresh-triggered replay.
func (r *Request) IsRetry() bool { return r.attempt.retry }

// MarkRetry marks the request as a replay. A marked request is never
// replayed again.
func (r *Request) MarkRetry() { r.attempt.retry = true }

// AttachedToken returns the access token attached on the last send, or "".
func (r *Request) AttachedToken() string { return r.attempt.token }

// SetHeader sets a request header.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// DeleteHeader removes a request header.
func (r *Request) DeleteHeader(key string) {
	delete(r.Headers, key)
}

// AttachToken sets the credential header and records which token was sent.
// An empty token removes the header.
func (r *Request) AttachToken(header, value, token string) {
	if value == "" {
		r.DeleteHeader(header)
	} else {
		r.SetHeader(header, value)
	}
	r.attempt.token = token
}

// Clone returns a copy whose header and query maps can be mutated without
// affecting r. The attempt state is preserved.
func (r *Request) Clone() *Request {
	c := *r
	c.Headers = maps.Clone(r.Headers)
	c.Query = maps.Clone(r.Query)
	return &c
}

// Response is the settled result of an HTTP exchange.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}

// IsSuccess reports whether the status is in the success range [200,400).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// IsError reports whether the status is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Result is the value threaded through the response interceptor chain.
type Result struct {
	// Request is the request as sent, after request interceptors ran.
	Request *Request
	// Response is the settled HTTP response. Nil when an error handler
	// recovered without one.
	Response *Response
	// Payload is the unwrapped data (ReturnData) or the whole body
	// (ReturnBody). Empty for ReturnRaw.
	Payload json.RawMessage
}

// Mode returns the return mode of the originating request.
func (r *Result) Mode() ReturnMode {
	if r.Request == nil {
		return ReturnData
	}
	return r.Request.Return
}
