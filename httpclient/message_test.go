package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want MessageCategory
	}{
		{"nil", nil, MessageNone},
		{"canceled", NewCanceledError(context.Canceled), MessageNone},
		{"context canceled", fmt.Errorf("wrapped: %w", context.Canceled), MessageNone},
		{"connection", NewConnectionError(errors.New("dial tcp: refused")), MessageNetworkError},
		{"network error text", errors.New("Network Error"), MessageNetworkError},
		{"timeout", NewTimeoutError(context.DeadlineExceeded), MessageRequestTimeout},
		{"timeout text", errors.New("read: i/o timeout"), MessageRequestTimeout},
		{"400", ClassifyStatusCode(400, nil), MessageBadRequest},
		{"401", ClassifyStatusCode(401, nil), MessageUnauthorized},
		{"403", ClassifyStatusCode(403, nil), MessageForbidden},
		{"404", ClassifyStatusCode(404, nil), MessageNotFound},
		{"408", ClassifyStatusCode(408, nil), MessageRequestTimeout},
		{"500", ClassifyStatusCode(500, nil), MessageInternalServerError},
		{"422", ClassifyStatusCode(422, nil), MessageInternalServerError},
		{"business", NewBusinessError(&Response{StatusCode: 200}, "code 1"), MessageInternalServerError},
		{"plain", errors.New("boom"), MessageInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMessage(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCatalog_Text(t *testing.T) {
	c := Catalog{MessageNotFound: "Nicht gefunden"}
	if got := c.Text(MessageNotFound); got != "Nicht gefunden" {
		t.Errorf("expected override, got %q", got)
	}
	if got := c.Text(MessageForbidden); got != DefaultCatalog()[MessageForbidden] {
		t.Errorf("expected default fallback, got %q", got)
	}
	if got := c.Text(MessageNone); got != "" {
		t.Errorf("expected no text for none, got %q", got)
	}
}

func TestMessageInterceptor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	var shown []string
	c.AddResponseInterceptor(MessageInterceptor(nil, func(_ context.Context, msg string, err error) {
		shown = append(shown, msg)
	}))

	_, err := c.Do(context.Background(), Request{Path: "/"})
	if !IsForbidden(err) {
		t.Fatalf("expected error to be re-raised, got %v", err)
	}
	if len(shown) != 1 || shown[0] != DefaultCatalog()[MessageForbidden] {
		t.Errorf("unexpected messages: %v", shown)
	}
}

func TestMessageInterceptor_SilentOnCancel(t *testing.T) {
	ic := MessageInterceptor(nil, func(context.Context, string, error) {
		t.Error("canceled requests must not produce a message")
	})
	_, err := ic.OnError(context.Background(), NewCanceledError(context.Canceled))
	if !IsCanceled(err) {
		t.Errorf("expected cancel error to pass through, got %v", err)
	}
}
