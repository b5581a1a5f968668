package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode categorizes HTTP client errors.
type ErrorCode string

const (
	ErrCodeTimeout      ErrorCode = "timeout"
	ErrCodeConnection   ErrorCode = "connection"
	ErrCodeCanceled     ErrorCode = "canceled"
	ErrCodeBadRequest   ErrorCode = "bad_request"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeForbidden    ErrorCode = "forbidden"
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeRateLimit    ErrorCode = "rate_limit"
	ErrCodeValidation   ErrorCode = "validation"
	ErrCodeServer       ErrorCode = "server_error"
	ErrCodeBusiness     ErrorCode = "business"
	ErrCodeRefresh      ErrorCode = "refresh"
)

// Kind is the coarse failure category callers branch on.
type Kind int

const (
	// KindStatus is any non-success status other than 401.
	KindStatus Kind = iota
	// KindTransport is a failure with no HTTP response.
	KindTransport
	// KindAuth is a 401 Unauthorized response.
	KindAuth
	// KindBusiness is a success status whose envelope reported failure.
	KindBusiness
	// KindRefresh is a failed token refresh.
	KindRefresh
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindBusiness:
		return "business"
	case KindRefresh:
		return "refresh"
	default:
		return "status"
	}
}

// Error is the structured error returned by the pipeline.
type Error struct {
	// StatusCode is the HTTP status code (0 for transport failures).
	StatusCode int
	// Code categorizes the error.
	Code ErrorCode
	// Message is a human-readable description.
	Message string
	// Retryable indicates the request may succeed if retried.
	Retryable bool
	// Body is the raw response body, if any.
	Body []byte
	// Request is the request that failed, as sent.
	Request *Request
	// Response is the settled response, if any.
	Response *Response
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the coarse category of e.
func (e *Error) Kind() Kind {
	switch {
	case e.Code == ErrCodeRefresh:
		return KindRefresh
	case e.Code == ErrCodeBusiness:
		return KindBusiness
	case e.StatusCode == http.StatusUnauthorized:
		return KindAuth
	case e.StatusCode == 0:
		return KindTransport
	default:
		return KindStatus
	}
}

// ServerMessage returns the "message" or "error" field of a JSON error
// body, or "" when the body carries neither.
func (e *Error) ServerMessage() string {
	if len(e.Body) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(e.Body, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "request timeout", Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: "Network Error", Retryable: true, Err: err}
}

// NewCanceledError creates an error for a request canceled by its caller.
func NewCanceledError(err error) *Error {
	return &Error{Code: ErrCodeCanceled, Message: "request canceled", Err: err}
}

// NewValidationError creates a client-side validation error.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewBusinessError creates an error for a success status whose envelope
// did not carry the success marker.
func NewBusinessError(resp *Response, message string) *Error {
	e := &Error{Code: ErrCodeBusiness, Message: message, Response: resp}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Body = resp.Body
	}
	return e
}

// NewRefreshError wraps a failed token refresh.
func NewRefreshError(err error) *Error {
	return &Error{Code: ErrCodeRefresh, Message: "token refresh failed", Err: err}
}

// ClassifyStatusCode maps an HTTP status to an *Error. Statuses in the
// success range [200,400) return nil.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 400 {
		return nil
	}

	e := &Error{StatusCode: statusCode, Body: body}
	switch {
	case statusCode == http.StatusBadRequest:
		e.Code = ErrCodeBadRequest
		e.Message = "bad request"
	case statusCode == http.StatusUnauthorized:
		e.Code = ErrCodeUnauthorized
		e.Message = "unauthorized"
	case statusCode == http.StatusForbidden:
		e.Code = ErrCodeForbidden
		e.Message = "forbidden"
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
		e.Message = "resource not found"
	case statusCode == http.StatusRequestTimeout:
		e.Code = ErrCodeTimeout
		e.Message = "request timeout"
		e.Retryable = true
	case statusCode == http.StatusTooManyRequests:
		e.Code = ErrCodeRateLimit
		e.Message = "rate limit exceeded"
		e.Retryable = true
	case statusCode >= 500:
		e.Code = ErrCodeServer
		e.Message = fmt.Sprintf("server error (HTTP %d)", statusCode)
		e.Retryable = true
	default:
		e.Code = ErrCodeValidation
		e.Message = fmt.Sprintf("unexpected status (HTTP %d)", statusCode)
	}
	return e
}

// classifyTransport maps a net/http error to an *Error.
func classifyTransport(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return NewCanceledError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindTransport for non-pipeline errors.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind()
	}
	return KindTransport
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode
	}
	return 0
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}

// IsTimeout checks if an error is a timeout.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsConnection checks if an error is a connection failure.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsCanceled checks if an error is a caller cancellation.
func IsCanceled(err error) bool {
	return hasCode(err, ErrCodeCanceled) || errors.Is(err, context.Canceled)
}

// IsTransport checks if an error happened before any response arrived.
func IsTransport(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == 0 && (e.Code == ErrCodeTimeout || e.Code == ErrCodeConnection)
}

// IsAuth checks if an error is an authentication failure, the kind the
// refresh flow resolves.
func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}

// IsRateLimit checks if an error is a 429.
func IsRateLimit(err error) bool {
	return hasCode(err, ErrCodeRateLimit)
}

// IsUnauthorized checks if an error is a 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden checks if an error is a 403.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// IsNotFound checks if an error is a 404.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsServerError checks if an error is a 5xx.
func IsServerError(err error) bool {
	return hasCode(err, ErrCodeServer)
}

// IsBusiness checks if an error is an envelope failure.
func IsBusiness(err error) bool {
	return hasCode(err, ErrCodeBusiness)
}

// IsRefresh checks if an error is a failed token refresh.
func IsRefresh(err error) bool {
	return hasCode(err, ErrCodeRefresh)
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
