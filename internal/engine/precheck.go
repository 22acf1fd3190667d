package engine

import (
	"context"
	"fmt"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
)

// noteNoPrecheck explains outcomes for actions that have no precheck.
const noteNoPrecheck = "no precheck for this action; assumed executable"

// prechecker validates requests without mutating backend state. Every lookup
// is a SEARCH call. One prechecker serves exactly one strict run.
type prechecker struct {
	backend  backend.Backend
	registry *metadata.Registry
	reserved reservations
}

func newPrechecker(be backend.Backend, reg *metadata.Registry) *prechecker {
	return &prechecker{
		backend:  be,
		registry: reg,
		reserved: make(reservations),
	}
}

// fieldValue is a payload field selected for a key or uniqueness check.
type fieldValue struct {
	field string
	value model.Value
}

func (p *prechecker) check(ctx context.Context, index int, req model.Request) model.Outcome {
	o := newOutcome(index, req)
	meta := p.registry.Lookup(req.Entity)

	var conflicts []model.Conflict
	switch model.NormalizeAction(req.Action) {
	case model.ActionCreate:
		conflicts = p.create(ctx, req, meta)
	case model.ActionUpdate:
		conflicts = p.update(ctx, req, meta)
	case model.ActionDelete:
		conflicts = p.delete(ctx, req, meta)
	default:
		o.Verdict = &model.Verdict{
			Executable: true,
			Conflicts:  []model.Conflict{},
			Note:       noteNoPrecheck,
		}
		return o
	}

	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	o.Verdict = &model.Verdict{
		Executable: len(conflicts) == 0,
		Conflicts:  conflicts,
	}
	return o
}

// create runs every stage even after earlier stages found conflicts, and
// reserves the request's unique values only when nothing was found.
func (p *prechecker) create(ctx context.Context, req model.Request, meta metadata.Entity) []model.Conflict {
	var out []model.Conflict

	for _, field := range meta.RequiredOnCreate {
		if req.Payload.Get(field).Blank() {
			out = append(out, model.Conflict{
				Kind:    model.ConflictMissingRequiredField,
				Field:   field,
				Message: fmt.Sprintf("missing required field: %s", field),
			})
		}
	}

	if rule := meta.Attachment; rule != nil {
		out = append(out, checkAttachment(*rule, req.Payload.Get(rule.Field))...)
	}

	uniques := usableFields(req.Payload, meta.Unique)
	for _, fv := range uniques {
		if p.reserved.has(req.Entity, fv.field, fv.value.Text()) {
			out = append(out, model.Conflict{
				Kind:    model.ConflictUniqueInBatch,
				Field:   fv.field,
				Value:   fv.value.Summary(),
				Message: fmt.Sprintf("an earlier request in this batch already uses %s=%s", fv.field, fv.value.Text()),
			})
		}
	}

	for _, fv := range uniques {
		resp, err := p.search(ctx, req.Entity, model.Payload{fv.field: fv.value})
		if err != nil {
			out = append(out, lookupError(fv, err))
			continue
		}
		if resp.HasMatches() {
			out = append(out, model.Conflict{
				Kind:    model.ConflictUniqueInStore,
				Field:   fv.field,
				Value:   fv.value.Summary(),
				Message: fmt.Sprintf("a stored record already has %s=%s", fv.field, fv.value.Text()),
			})
		}
	}

	if len(out) == 0 {
		for _, fv := range uniques {
			p.reserved.add(req.Entity, fv.field, fv.value.Text())
		}
	}
	return out
}

func checkAttachment(rule metadata.AttachmentRule, v model.Value) []model.Conflict {
	a, ok := v.Attachment()
	if !ok {
		return []model.Conflict{{
			Kind:    model.ConflictMissingAttachment,
			Field:   rule.Field,
			Message: fmt.Sprintf("missing required attachment: %s", rule.Field),
		}}
	}

	var out []model.Conflict
	if !rule.AllowsType(a.MIMEType) {
		out = append(out, model.Conflict{
			Kind:    model.ConflictAttachmentWrongType,
			Field:   rule.Field,
			Value:   a.MIMEType,
			Message: fmt.Sprintf("attachment type not allowed: %s", a.MIMEType),
		})
	}
	if rule.TooLarge(a.Size) {
		out = append(out, model.Conflict{
			Kind:    model.ConflictAttachmentTooLarge,
			Field:   rule.Field,
			Value:   a.Size,
			Message: fmt.Sprintf("attachment too large: %d bytes (limit %d)", a.Size, *rule.MaxBytes),
		})
	}
	return out
}

// delete checks the record exists, which needs the complete primary key.
func (p *prechecker) delete(ctx context.Context, req model.Request, meta metadata.Entity) []model.Conflict {
	var out []model.Conflict

	filter := model.Payload{}
	for _, pk := range meta.PrimaryKey {
		v := req.Payload.Get(pk)
		if !v.Usable() {
			out = append(out, model.Conflict{
				Kind:    model.ConflictMissingPrimaryKey,
				Field:   pk,
				Message: fmt.Sprintf("missing primary key for delete: %s", pk),
			})
			continue
		}
		filter[pk] = v
	}

	if len(out) == 0 && len(filter) > 0 {
		out = append(out, p.mustExist(ctx, req.Entity, filter, "delete")...)
	}
	return out
}

// update checks the record exists by whichever key fields were supplied, then
// that no other record already holds the new unique values. A matching record
// whose supplied key fields equal the request's is the record being edited;
// with a partial composite key a different record can pass for it.
func (p *prechecker) update(ctx context.Context, req model.Request, meta metadata.Entity) []model.Conflict {
	keys := usableFields(req.Payload, meta.PrimaryKey)
	filter := make(model.Payload, len(keys))
	for _, fv := range keys {
		filter[fv.field] = fv.value
	}

	if len(meta.PrimaryKey) > 0 && len(keys) == 0 {
		return []model.Conflict{{
			Kind:    model.ConflictMissingPrimaryKey,
			Message: "cannot verify update without a primary key",
		}}
	}

	var out []model.Conflict
	if len(keys) > 0 {
		out = append(out, p.mustExist(ctx, req.Entity, filter, "update")...)
	}

	for _, fv := range usableFields(req.Payload, meta.Unique) {
		resp, err := p.search(ctx, req.Entity, model.Payload{fv.field: fv.value})
		if err != nil {
			out = append(out, lookupError(fv, err))
			continue
		}
		if resp.HasMatches() && !containsSelf(resp.Resource, keys) {
			out = append(out, model.Conflict{
				Kind:    model.ConflictUniqueInStore,
				Field:   fv.field,
				Value:   fv.value.Summary(),
				Message: fmt.Sprintf("value %s=%s is already in use", fv.field, fv.value.Text()),
			})
		}
	}
	return out
}

// mustExist searches by filter and reports a conflict when nothing matches.
func (p *prechecker) mustExist(ctx context.Context, entity string, filter model.Payload, verb string) []model.Conflict {
	resp, err := p.search(ctx, entity, filter)
	if err != nil {
		return []model.Conflict{{
			Kind:    model.ConflictLookupError,
			Message: fmt.Sprintf("existence check failed: %v", err),
		}}
	}
	if !resp.HasMatches() {
		return []model.Conflict{{
			Kind:    model.ConflictRecordNotFound,
			Message: fmt.Sprintf("no record to %s matches the primary key", verb),
		}}
	}
	return nil
}

func (p *prechecker) search(ctx context.Context, entity string, filter model.Payload) (*backend.Response, error) {
	return callBackend(ctx, p.backend, entity, model.ActionSearch, filter, nil)
}

func lookupError(fv fieldValue, err error) model.Conflict {
	return model.Conflict{
		Kind:    model.ConflictLookupError,
		Field:   fv.field,
		Value:   fv.value.Summary(),
		Message: fmt.Sprintf("lookup of %s failed: %v", fv.field, err),
	}
}

// usableFields returns the fields of payload, in the given order, that carry
// a usable value.
func usableFields(payload model.Payload, fields []string) []fieldValue {
	var out []fieldValue
	for _, f := range fields {
		v := payload.Get(f)
		if v.Usable() {
			out = append(out, fieldValue{field: f, value: v})
		}
	}
	return out
}

// containsSelf reports whether some record matches every supplied key value.
func containsSelf(records []backend.Record, keys []fieldValue) bool {
	if len(keys) == 0 {
		return false
	}
	for _, rec := range records {
		self := true
		for _, k := range keys {
			if model.Stringify(rec[k.field]) != k.value.Text() {
				self = false
				break
			}
		}
		if self {
			return true
		}
	}
	return false
}
