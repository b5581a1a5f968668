package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
)

// RequestIDHeader carries a per-request id. Replays keep the original id.
const RequestIDHeader = "X-Request-Id"

// TokenFormatter renders an access token as a header value.
type TokenFormatter func(token string) string

// BearerFormat renders "Bearer <token>".
func BearerFormat(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

// RawFormat sends the token as is.
func RawFormat(token string) string { return token }

// CredentialInterceptor attaches the stored access token. Tokens the store
// knows to be expired are not sent, so the server's 401 starts a refresh.
func CredentialInterceptor(store credential.Store, format TokenFormatter, skew time.Duration) httpclient.RequestInterceptor {
	if format == nil {
		format = BearerFormat
	}
	return func(ctx context.Context, req *httpclient.Request) error {
		cred, err := store.Load(ctx)
		if err != nil {
			return httpclient.NewValidationError(fmt.Sprintf("load credential: %v", err))
		}
		if !cred.Usable(time.Now(), skew) {
			req.AttachToken(cred.Header(), "", "")
			return nil
		}
		req.AttachToken(cred.Header(), format(cred.AccessToken), cred.AccessToken)
		return nil
	}
}

// HeaderInterceptor sets name to value(ctx) when it is non-empty.
func HeaderInterceptor(name string, value func(ctx context.Context) string) httpclient.RequestInterceptor {
	return func(ctx context.Context, req *httpclient.Request) error {
		if v := value(ctx); v != "" {
			req.SetHeader(name, v)
		}
		return nil
	}
}

// RequestIDInterceptor stamps requests that have no id yet.
func RequestIDInterceptor() httpclient.RequestInterceptor {
	return func(_ context.Context, req *httpclient.Request) error {
		if req.Headers[RequestIDHeader] == "" {
			req.SetHeader(RequestIDHeader, uuid.NewString())
		}
		return nil
	}
}
