package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// SuccessMatcher decides whether an envelope's code field marks success.
// Build one with Literal or Predicate.
type SuccessMatcher interface {
	matches(code json.RawMessage) bool
}

type literalMatcher struct {
	want any
}

// Literal matches a code equal to v after JSON normalization. Types must
// agree: Literal(0) does not match "0".
func Literal(v any) SuccessMatcher {
	return literalMatcher{want: normalize(v)}
}

func (m literalMatcher) matches(code json.RawMessage) bool {
	var got any
	if err := json.Unmarshal(code, &got); err != nil {
		return false
	}
	return reflect.DeepEqual(got, m.want)
}

type predicateMatcher func(code json.RawMessage) bool

// Predicate matches when fn returns true for the raw code value.
func Predicate(fn func(code json.RawMessage) bool) SuccessMatcher {
	return predicateMatcher(fn)
}

func (m predicateMatcher) matches(code json.RawMessage) bool {
	return m(code)
}

// DataSelector picks the payload out of an envelope. Build one with Field or
// Extract.
type DataSelector interface {
	selectFrom(body map[string]json.RawMessage) (json.RawMessage, error)
}

type fieldSelector string

// Field selects a top-level field of the envelope. A missing field yields
// JSON null.
func Field(name string) DataSelector {
	return fieldSelector(name)
}

func (f fieldSelector) selectFrom(body map[string]json.RawMessage) (json.RawMessage, error) {
	if v, ok := body[string(f)]; ok {
		return v, nil
	}
	return json.RawMessage("null"), nil
}

type extractSelector func(body map[string]json.RawMessage) (json.RawMessage, error)

// Extract computes the payload from the decoded envelope fields.
func Extract(fn func(body map[string]json.RawMessage) (json.RawMessage, error)) DataSelector {
	return extractSelector(fn)
}

func (f extractSelector) selectFrom(body map[string]json.RawMessage) (json.RawMessage, error) {
	return f(body)
}

// Envelope describes the server's standard response body.
type Envelope struct {
	// CodeField names the business code field. Defaults to "code".
	CodeField string
	// Data selects the payload. Defaults to Field("data").
	Data DataSelector
	// Success recognizes the success code. Defaults to Literal(0).
	Success SuccessMatcher
}

// DefaultEnvelope returns {code, data} with code 0 as success.
func DefaultEnvelope() Envelope {
	return Envelope{CodeField: "code", Data: Field("data"), Success: Literal(0)}
}

// ApplyDefaults fills in zero-value fields.
func (e *Envelope) ApplyDefaults() {
	def := DefaultEnvelope()
	if e.CodeField == "" {
		e.CodeField = def.CodeField
	}
	if e.Data == nil {
		e.Data = def.Data
	}
	if e.Success == nil {
		e.Success = def.Success
	}
}

// Classify shapes res according to its request's return mode. ReturnRaw is
// passed through untouched. ReturnBody checks the status range and exposes
// the body. ReturnData additionally requires the success code and exposes
// the selected payload. Failures carry the response.
func (e Envelope) Classify(res *Result) (*Result, error) {
	e.ApplyDefaults()

	mode := res.Mode()
	if mode == ReturnRaw {
		return res, nil
	}
	resp := res.Response
	if resp == nil {
		return res, nil
	}
	if !resp.IsSuccess() {
		classErr := ClassifyStatusCode(resp.StatusCode, resp.Body)
		classErr.Request = res.Request
		classErr.Response = resp
		return nil, classErr
	}
	if mode == ReturnBody {
		res.Payload = json.RawMessage(resp.Body)
		return res, nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, e.fail(res, "response body is not an envelope", err)
	}
	code, ok := body[e.CodeField]
	if !ok {
		return nil, e.fail(res, fmt.Sprintf("envelope has no %q field", e.CodeField), nil)
	}
	if !e.Success.matches(code) {
		return nil, e.fail(res, fmt.Sprintf("%s %s is not a success code", e.CodeField, bytes.TrimSpace(code)), nil)
	}
	payload, err := e.Data.selectFrom(body)
	if err != nil {
		return nil, e.fail(res, "select envelope data", err)
	}
	res.Payload = payload
	return res, nil
}

func (e Envelope) fail(res *Result, msg string, cause error) error {
	be := NewBusinessError(res.Response, msg)
	be.Request = res.Request
	be.Err = cause
	return be
}

// EnvelopeInterceptor returns a response interceptor that classifies
// successful exchanges against env. It has no error handler.
func EnvelopeInterceptor(env Envelope) ResponseInterceptor {
	env.ApplyDefaults()
	return ResponseInterceptor{
		Name: "envelope",
		OnSuccess: func(_ context.Context, res *Result) (*Result, error) {
			return env.Classify(res)
		},
	}
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
