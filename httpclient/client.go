package httpclient

import (
	"context"
	"slices"
	"sync"
)

// Client sends requests through the request interceptor chain, the
// Adapter, and the response interceptor chain, in that order.
type Client struct {
	adapter *Adapter

	mu       sync.RWMutex
	requests []RequestInterceptor
	results  []ResponseInterceptor
}

// NewClient creates a client with a fresh Adapter.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewClientWithAdapter(a), nil
}

// NewClientWithAdapter creates a client around an existing adapter. Several
// clients may share one adapter.
func NewClientWithAdapter(a *Adapter) *Client {
	return &Client{adapter: a}
}

// Adapter returns the underlying transport adapter.
func (c *Client) Adapter() *Adapter {
	return c.adapter
}

// AddRequestInterceptor appends a request interceptor.
func (c *Client) AddRequestInterceptor(ic RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, ic)
}

// AddResponseInterceptor appends a response interceptor.
func (c *Client) AddResponseInterceptor(ic ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, ic)
}

// Do sends req through the full pipeline. req is copied, so the caller's
// value is never mutated; its attempt state (retry marker, attached token)
// carries over, which makes Do suitable for replays too.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	r := req.Clone()

	c.mu.RLock()
	requests := slices.Clone(c.requests)
	results := slices.Clone(c.results)
	c.mu.RUnlock()

	var (
		res *Result
		err = bufferBody(r)
	)
	for _, ic := range requests {
		if err != nil {
			break
		}
		err = ic(ctx, r)
	}

	if err == nil {
		var resp *Response
		resp, err = c.adapter.Do(ctx, *r)
		if err != nil {
			if e, ok := AsError(err); ok {
				e.Request = r
			}
		} else {
			res = &Result{Request: r, Response: resp}
		}
	}

	res, err = runResponseChain(ctx, results, res, err)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{Request: r}
	}
	return res, nil
}

// Close releases the adapter's idle connections.
func (c *Client) Close(ctx context.Context) error {
	return c.adapter.Close(ctx)
}
