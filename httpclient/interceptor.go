package httpclient

import "context"

// RequestInterceptor transforms an outbound request in place. Returning an
// error skips the exchange; the error then flows through the response
// chain's error handlers.
type RequestInterceptor func(ctx context.Context, req *Request) error

// SuccessHandler transforms a settled result. It may turn it into an error.
type SuccessHandler func(ctx context.Context, res *Result) (*Result, error)

// ErrorHandler handles a failure. It may recover by returning a result and
// a nil error, or pass on the same or a different error.
type ErrorHandler func(ctx context.Context, err error) (*Result, error)

// ResponseInterceptor is a pair of optional handlers. A nil handler passes
// its input through unchanged.
type ResponseInterceptor struct {
	// Name identifies the interceptor in logs.
	Name      string
	OnSuccess SuccessHandler
	OnError   ErrorHandler
}

// runResponseChain threads a result or error through the interceptors in
// registration order.
func runResponseChain(ctx context.Context, chain []ResponseInterceptor, res *Result, err error) (*Result, error) {
	for _, ic := range chain {
		if err != nil {
			if ic.OnError != nil {
				res, err = ic.OnError(ctx, err)
			}
			continue
		}
		if ic.OnSuccess != nil {
			res, err = ic.OnSuccess(ctx, res)
		}
	}
	return res, err
}
