package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/seantiz/batchgate/internal/model"
)

// ErrMalformedResponse is returned when the backend reply is not a JSON object.
var ErrMalformedResponse = errors.New("malformed backend response")

// Backend is the single network operation the engine needs. Each call carries
// an entity, an action name, the payload and optional pagination fields.
type Backend interface {
	// Call performs one backend action and returns its decoded reply. An error
	// means the call itself failed (network, malformed reply); a reply with
	// OK=false is not an error.
	Call(ctx context.Context, entity, action string, payload, page model.Payload) (*Response, error)
}

// Func adapts an ordinary function to the Backend interface.
type Func func(ctx context.Context, entity, action string, payload, page model.Payload) (*Response, error)

// Call implements Backend.
func (f Func) Call(ctx context.Context, entity, action string, payload, page model.Payload) (*Response, error) {
	return f(ctx, entity, action, payload, page)
}

// Record is one row returned by a search-style call.
type Record map[string]any

// Response is a decoded backend reply.
type Response struct {
	// OK is true only when the reply's "ok" member is the boolean true.
	OK bool
	// Code is the reply's "code" member, or nil.
	Code any
	// Resource lists the records in the reply's "resource" member when it is
	// an array; it is nil otherwise.
	Resource []Record
	// Raw is the full reply.
	Raw map[string]any
}

// HasMatches reports whether the reply listed at least one record.
func (r *Response) HasMatches() bool {
	return r != nil && len(r.Resource) > 0
}

// NewResponse derives a Response from a decoded reply object.
func NewResponse(raw map[string]any) *Response {
	resp := &Response{Raw: raw}
	if ok, isBool := raw["ok"].(bool); isBool {
		resp.OK = ok
	}
	resp.Code = raw["code"]

	if items, isArray := raw["resource"].([]any); isArray {
		resp.Resource = make([]Record, len(items))
		for i, item := range items {
			if m, isObject := item.(map[string]any); isObject {
				resp.Resource[i] = Record(m)
			}
		}
	}
	return resp
}

// DecodeResponse reads a JSON reply object from r. Numbers are kept as
// json.Number so identifiers compare by their literal text.
func DecodeResponse(r io.Reader) (*Response, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: reply is %T, not an object", ErrMalformedResponse, raw)
	}
	return NewResponse(obj), nil
}
