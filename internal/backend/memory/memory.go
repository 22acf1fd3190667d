// Package memory implements backend.Backend with records held in process.
// It honours the metadata registry the way the remote backend does (unique
// fields on ADD and EDIT, primary keys on EDIT and DELETE) and records every
// call so tests can assert which actions were issued.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
)

// Reply codes returned by the in-memory backend.
const (
	CodeAddOK         = "ADD_OK"
	CodeEditOK        = "EDIT_OK"
	CodeDeleteOK      = "DELETE_OK"
	CodeSearchOK      = "RECSET_DATOS"
	CodeDuplicate     = "SQL_KO"
	CodeNotFound      = "NOT_FOUND"
	CodeMissingKey    = "MISSING_PK"
	CodeMissingField  = "MISSING_FIELD"
	CodeUnknownAction = "UNKNOWN_ACTION"
)

// Call is one recorded invocation.
type Call struct {
	Entity  string
	Action  string
	Payload model.Payload
}

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Backend)(nil)

// Backend is an in-memory CRUD store. It is safe for concurrent use.
type Backend struct {
	registry *metadata.Registry

	mu       sync.Mutex
	records  map[string][]backend.Record
	calls    []Call
	failures map[string]error
	nextID   int
}

// New creates an empty backend enforcing the constraints in reg.
func New(reg *metadata.Registry) *Backend {
	return &Backend{
		registry: reg,
		records:  make(map[string][]backend.Record),
		failures: make(map[string]error),
		nextID:   1,
	}
}

// Seed inserts a record without validation or call recording.
func (b *Backend) Seed(entity string, rec backend.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[entity] = append(b.records[entity], copyRecord(rec))
}

// FailOn makes every later call with the given action return err. A nil err
// clears the failure.
func (b *Backend) FailOn(action string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, action)
		return
	}
	b.failures[action] = err
}

// Calls returns a copy of the recorded calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// MutationCalls counts recorded calls whose action changes state.
func (b *Backend) MutationCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if model.IsMutation(c.Action) {
			n++
		}
	}
	return n
}

// Records returns a copy of the records stored for entity.
func (b *Backend) Records(entity string) []backend.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.Record, len(b.records[entity]))
	for i, r := range b.records[entity] {
		out[i] = copyRecord(r)
	}
	return out
}

// Call implements backend.Backend.
func (b *Backend) Call(ctx context.Context, entity, action string, payload, _ model.Payload) (*backend.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Entity: entity, Action: action, Payload: payload})
	if err := b.failures[action]; err != nil {
		return nil, err
	}

	meta := b.registry.Lookup(entity)
	switch model.NormalizeAction(action) {
	case model.ActionSearch:
		return b.search(entity, payload), nil
	case model.ActionCreate:
		return b.add(entity, meta, payload), nil
	case model.ActionUpdate:
		return b.edit(entity, meta, payload), nil
	case model.ActionDelete:
		return b.remove(entity, meta, payload), nil
	default:
		return reply(false, CodeUnknownAction, nil), nil
	}
}

func (b *Backend) search(entity string, filter model.Payload) *backend.Response {
	matches := []any{}
	for _, rec := range b.records[entity] {
		if matchesFilter(rec, filter) {
			matches = append(matches, map[string]any(copyRecord(rec)))
		}
	}
	return reply(true, CodeSearchOK, matches)
}

func (b *Backend) add(entity string, meta metadata.Entity, payload model.Payload) *backend.Response {
	for _, f := range meta.RequiredOnCreate {
		if payload.Get(f).Blank() {
			return reply(false, CodeMissingField, nil)
		}
	}
	if b.duplicates(entity, meta, payload, -1) {
		return reply(false, CodeDuplicate, nil)
	}

	rec := toRecord(payload)
	if len(meta.PrimaryKey) == 1 {
		pk := meta.PrimaryKey[0]
		if _, ok := rec[pk]; !ok {
			rec[pk] = strconv.Itoa(b.nextID)
			b.nextID++
		}
	}
	b.records[entity] = append(b.records[entity], rec)
	return reply(true, CodeAddOK, nil)
}

func (b *Backend) edit(entity string, meta metadata.Entity, payload model.Payload) *backend.Response {
	idx, code := b.findByKey(entity, meta, payload)
	if idx < 0 {
		return reply(false, code, nil)
	}
	if b.duplicates(entity, meta, payload, idx) {
		return reply(false, CodeDuplicate, nil)
	}
	for k, v := range toRecord(payload) {
		b.records[entity][idx][k] = v
	}
	return reply(true, CodeEditOK, nil)
}

func (b *Backend) remove(entity string, meta metadata.Entity, payload model.Payload) *backend.Response {
	idx, code := b.findByKey(entity, meta, payload)
	if idx < 0 {
		return reply(false, code, nil)
	}
	recs := b.records[entity]
	b.records[entity] = append(recs[:idx], recs[idx+1:]...)
	return reply(true, CodeDeleteOK, nil)
}

// findByKey locates the record whose primary key matches payload.
func (b *Backend) findByKey(entity string, meta metadata.Entity, payload model.Payload) (int, string) {
	if len(meta.PrimaryKey) == 0 {
		return -1, CodeMissingKey
	}
	filter := model.Payload{}
	for _, pk := range meta.PrimaryKey {
		v := payload.Get(pk)
		if !v.Usable() {
			return -1, CodeMissingKey
		}
		filter[pk] = v
	}
	for i, rec := range b.records[entity] {
		if matchesFilter(rec, filter) {
			return i, ""
		}
	}
	return -1, CodeNotFound
}

// duplicates reports whether any unique value in payload is held by a record
// other than the one at skip.
func (b *Backend) duplicates(entity string, meta metadata.Entity, payload model.Payload, skip int) bool {
	for _, field := range meta.Unique {
		v := payload.Get(field)
		if !v.Usable() {
			continue
		}
		for i, rec := range b.records[entity] {
			if i != skip && model.Stringify(rec[field]) == v.Text() {
				return true
			}
		}
	}
	return false
}

func matchesFilter(rec backend.Record, filter model.Payload) bool {
	for k, v := range filter {
		if v.IsNull() {
			continue
		}
		got, ok := rec[k]
		if !ok || model.Stringify(got) != v.Text() {
			return false
		}
	}
	return true
}

// toRecord stores values the way a form-fed backend sees them: as text, with
// attachments reduced to their file name.
func toRecord(payload model.Payload) backend.Record {
	rec := make(backend.Record, len(payload))
	for k, v := range payload {
		if v.IsNull() {
			continue
		}
		if a, ok := v.Attachment(); ok {
			rec[k] = a.Name
			continue
		}
		rec[k] = v.Text()
	}
	return rec
}

func copyRecord(rec backend.Record) backend.Record {
	out := make(backend.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func reply(ok bool, code string, resource []any) *backend.Response {
	raw := map[string]any{"ok": ok, "code": code}
	if resource != nil {
		raw["resource"] = resource
	}
	return backend.NewResponse(raw)
}

