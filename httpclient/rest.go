package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.SetHeader(key, value)
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithReturn selects the response shape for the request.
func WithReturn(mode ReturnMode) RequestOption {
	return func(r *Request) {
		r.Return = mode
	}
}

// Get performs a GET request and decodes the payload into T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (T, error) {
	return doTyped[T](c, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the payload into T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (T, error) {
	return doTyped[T](c, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the payload into T.
func Put[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (T, error) {
	return doTyped[T](c, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the payload into T.
func Patch[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (T, error) {
	return doTyped[T](c, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the payload into T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (T, error) {
	return doTyped[T](c, ctx, http.MethodDelete, path, nil, opts...)
}

// Send performs req and decodes the payload into T.
func Send[T any](c *Client, ctx context.Context, req Request) (T, error) {
	var zero T
	res, err := c.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	return Decode[T](res)
}

// Decode unmarshals a result into T. ReturnData and ReturnBody results
// decode the payload; ReturnRaw results decode the response body. An empty
// or null payload yields the zero value.
func Decode[T any](res *Result) (T, error) {
	var data T
	raw := res.Payload
	if res.Mode() == ReturnRaw && res.Response != nil {
		raw = res.Response.Body
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("httpclient: decode response: %w", err)
	}
	return data, nil
}

func doTyped[T any](c *Client, ctx context.Context, method, path string, body any, opts ...RequestOption) (T, error) {
	req := Request{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return Send[T](c, ctx, req)
}
