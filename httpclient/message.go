package httpclient

import (
	"context"
	"net/http"
	"strings"
)

// MessageCategory is a user-facing failure category.
type MessageCategory string

const (
	// MessageNone means nothing should be shown (caller cancellation).
	MessageNone                MessageCategory = ""
	MessageNetworkError        MessageCategory = "network_error"
	MessageRequestTimeout      MessageCategory = "request_timeout"
	MessageBadRequest          MessageCategory = "bad_request"
	MessageUnauthorized        MessageCategory = "unauthorized"
	MessageForbidden           MessageCategory = "forbidden"
	MessageNotFound            MessageCategory = "not_found"
	MessageInternalServerError MessageCategory = "internal_server_error"
)

// ClassifyMessage maps a pipeline failure to a message category.
func ClassifyMessage(err error) MessageCategory {
	if err == nil || IsCanceled(err) {
		return MessageNone
	}

	text := err.Error()
	if IsConnection(err) || strings.Contains(text, "Network Error") {
		return MessageNetworkError
	}
	if IsTimeout(err) || strings.Contains(text, "timeout") {
		return MessageRequestTimeout
	}

	switch StatusOf(err) {
	case http.StatusBadRequest:
		return MessageBadRequest
	case http.StatusUnauthorized:
		return MessageUnauthorized
	case http.StatusForbidden:
		return MessageForbidden
	case http.StatusNotFound:
		return MessageNotFound
	case http.StatusRequestTimeout:
		return MessageRequestTimeout
	default:
		return MessageInternalServerError
	}
}

// Catalog maps categories to display text. Replace it to localize.
type Catalog map[MessageCategory]string

// DefaultCatalog returns the English texts.
func DefaultCatalog() Catalog {
	return Catalog{
		MessageNetworkError:        "Network exception, please check your network and try again.",
		MessageRequestTimeout:      "The request timed out, please try again later.",
		MessageBadRequest:          "Request error. Please check your input and try again.",
		MessageUnauthorized:        "Login authentication expired, please log in again.",
		MessageForbidden:           "Access denied.",
		MessageNotFound:            "The requested resource does not exist.",
		MessageInternalServerError: "Internal server error, please try again later.",
	}
}

// Text returns the text for cat, falling back to the default catalog.
func (c Catalog) Text(cat MessageCategory) string {
	if cat == MessageNone {
		return ""
	}
	if msg, ok := c[cat]; ok {
		return msg
	}
	return DefaultCatalog()[cat]
}

// MakeErrorMessage surfaces a failure to the user.
type MakeErrorMessage func(ctx context.Context, msg string, err error)

// MessageInterceptor returns a response interceptor that reports failures
// through fn and re-raises them. Cancellations are not reported.
func MessageInterceptor(catalog Catalog, fn MakeErrorMessage) ResponseInterceptor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return ResponseInterceptor{
		Name: "message",
		OnError: func(ctx context.Context, err error) (*Result, error) {
			cat := ClassifyMessage(err)
			if cat != MessageNone && fn != nil {
				fn(ctx, catalog.Text(cat), err)
			}
			return nil, err
		},
	}
}
