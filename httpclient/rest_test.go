package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestTypedHelpers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "1" {
			t.Errorf("expected query v=1, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Op") != r.Method {
			t.Errorf("expected X-Op=%s, got %q", r.Method, r.Header.Get("X-Op"))
		}
		var in item
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&in)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": item{ID: 7, Name: r.Method + in.Name}})
	})
	c.AddResponseInterceptor(EnvelopeInterceptor(DefaultEnvelope()))

	ctx := context.Background()
	opts := func(method string) []RequestOption {
		return []RequestOption{WithQueryParam("v", "1"), WithHeader("X-Op", method)}
	}
	body := item{Name: "!"}

	tests := []struct {
		method string
		call   func() (item, error)
		want   string
	}{
		{http.MethodGet, func() (item, error) { return Get[item](c, ctx, "/items/7", opts(http.MethodGet)...) }, "GET"},
		{http.MethodPost, func() (item, error) { return Post[item](c, ctx, "/items", body, opts(http.MethodPost)...) }, "POST!"},
		{http.MethodPut, func() (item, error) { return Put[item](c, ctx, "/items/7", body, opts(http.MethodPut)...) }, "PUT!"},
		{http.MethodPatch, func() (item, error) { return Patch[item](c, ctx, "/items/7", body, opts(http.MethodPatch)...) }, "PATCH!"},
		{http.MethodDelete, func() (item, error) { return Delete[item](c, ctx, "/items/7", opts(http.MethodDelete)...) }, "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := tt.call()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != 7 || got.Name != tt.want {
				t.Errorf("unexpected item %+v", got)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	res := &Result{Payload: json.RawMessage(`{"id":1}`)}
	got, err := Decode[item](res)
	if err != nil || got.ID != 1 {
		t.Fatalf("unexpected decode: %+v, %v", got, err)
	}

	empty, err := Decode[*item](&Result{})
	if err != nil || empty != nil {
		t.Errorf("expected zero value for empty payload, got %+v, %v", empty, err)
	}

	raw := &Result{
		Request:  &Request{Return: ReturnRaw},
		Response: &Response{StatusCode: 200, Body: []byte(`{"id":2}`)},
	}
	got, err = Decode[item](raw)
	if err != nil || got.ID != 2 {
		t.Errorf("expected raw body decode, got %+v, %v", got, err)
	}

	if _, err := Decode[item](&Result{Payload: json.RawMessage(`[`)}); err == nil {
		t.Error("expected decode error")
	}
}
