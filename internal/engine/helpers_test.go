package engine_test

import (
	"testing"

	"github.com/seantiz/batchgate/internal/backend/memory"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
)

// testRegistry holds a small catalog with a single-field key, a unique field
// and a 100-byte attachment limit.
func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	reg, err := metadata.NewRegistry(
		metadata.Entity{
			Name:             "person",
			PrimaryKey:       []string{"id"},
			Unique:           []string{"login", "email"},
			RequiredOnCreate: []string{"login", "email"},
		},
		metadata.Entity{
			Name:             "photo",
			PrimaryKey:       []string{"id"},
			RequiredOnCreate: []string{"title"},
			Attachment: &metadata.AttachmentRule{
				Field:            "file",
				AllowedMIMETypes: []string{"image/jpeg"},
				MaxBytes:         metadata.Bytes(100),
			},
		},
		metadata.Entity{
			Name:       "enrolment",
			PrimaryKey: []string{"student", "course"},
			Unique:     []string{"seat"},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func newMemoryBackend(t *testing.T, reg *metadata.Registry) *memory.Backend {
	t.Helper()
	return memory.New(reg)
}

func person(login, email string) model.Payload {
	return model.Payload{
		"login": model.String(login),
		"email": model.String(email),
	}
}

func request(entity, action string, payload model.Payload) model.Request {
	return model.Request{Entity: entity, Action: action, Payload: payload}
}

func conflictKinds(o model.Outcome) []model.ConflictKind {
	if o.Verdict == nil {
		return nil
	}
	kinds := make([]model.ConflictKind, len(o.Verdict.Conflicts))
	for i, c := range o.Verdict.Conflicts {
		kinds[i] = c.Kind
	}
	return kinds
}

func hasConflict(o model.Outcome, kind model.ConflictKind, field string) bool {
	if o.Verdict == nil {
		return false
	}
	for _, c := range o.Verdict.Conflicts {
		if c.Kind == kind && (field == "" || c.Field == field) {
			return true
		}
	}
	return false
}
