package demo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seantiz/batchgate/internal/backend/memory"
	"github.com/seantiz/batchgate/internal/demo"
	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
)

func TestLoginShape(t *testing.T) {
	g := demo.NewSeeded(1)
	for range 50 {
		login := g.Login()
		if len(login) != 10 || !strings.HasPrefix(login, "Marc") {
			t.Fatalf("login %q, want Marc + 6 letters", login)
		}
		for _, c := range login {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				t.Fatalf("login %q contains non-letter %q", login, c)
			}
		}
	}
}

func TestDNIControlLetter(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{12345678, "12345678Z"},
		{0, "00000000T"},
		{22, "00000022E"},
		{99999999, "99999999R"},
	}
	for _, tt := range tests {
		if got := demo.DNIFor(tt.n); got != tt.want {
			t.Errorf("DNIFor(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	g := demo.NewSeeded(7)
	for range 50 {
		if dni := g.DNI(); !demo.ValidDNI(dni) {
			t.Fatalf("generated invalid DNI %q", dni)
		}
	}
}

func TestValidDNIRejects(t *testing.T) {
	for _, s := range []string{"", "12345678", "12345678A", "1234567AZ", "123456789Z"} {
		if demo.ValidDNI(s) {
			t.Errorf("ValidDNI(%q) = true", s)
		}
	}
}

func TestStudentIsExecutable(t *testing.T) {
	reg := metadata.Default()
	be := memory.New(reg)
	photo := demo.SamplePhoto()

	req := demo.NewSeeded(3).Student(&photo)
	login := req.Payload.Get("alumnograduacion_login").Text()
	if got := req.Payload.Get("alumnograduacion_email").Text(); got != strings.ToLower(login)+"@example.com" {
		t.Errorf("email = %q, want lowercase login at example.com", got)
	}

	outcomes := engine.NewBatch([]model.Request{req}, model.ModeStrict, be, reg).Run(context.Background())
	if !outcomes[0].Verdict.Executable {
		t.Errorf("conflicts = %v, want none", outcomes[0].Verdict.Conflicts)
	}
}

func TestStrictBatch(t *testing.T) {
	reg := metadata.Default()
	be := memory.New(reg)
	photo := demo.SamplePhoto()

	reqs := demo.NewSeeded(5).StrictBatch(&photo)
	if len(reqs) != 2 {
		t.Fatalf("len = %d, want 2", len(reqs))
	}

	outcomes := engine.NewBatch(reqs, model.ModeStrict, be, reg).Run(context.Background())
	if outcomes[0].Verdict.Executable {
		t.Error("incomplete request judged executable")
	}
	if !outcomes[1].Verdict.Executable {
		t.Errorf("valid request conflicts = %v", outcomes[1].Verdict.Conflicts)
	}
	if be.MutationCalls() != 0 {
		t.Errorf("MutationCalls = %d, want 0", be.MutationCalls())
	}
}

func TestStandardBatchWithoutPhotoIsRejected(t *testing.T) {
	reg := metadata.Default()
	be := memory.New(reg)

	reqs := demo.NewSeeded(9).StandardBatch(nil)
	if _, ok := reqs[0].Payload[demo.PhotoField]; ok {
		t.Fatal("photo field set without a photo")
	}

	outcomes := engine.NewBatch(reqs, model.ModeStrict, be, reg).Run(context.Background())
	if outcomes[0].Verdict.Executable {
		t.Error("student without photo judged executable")
	}
}

func TestLoadPhoto(t *testing.T) {
	photo := demo.SamplePhoto()
	path := filepath.Join(t.TempDir(), "acto.jpg")
	if err := os.WriteFile(path, photo.Content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := demo.LoadPhoto(path)
	if err != nil {
		t.Fatalf("LoadPhoto: %v", err)
	}
	if got.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", got.MIMEType)
	}
	if got.Name != "acto.jpg" || got.Size != photo.Size {
		t.Errorf("attachment = %+v", got)
	}

	if _, err := demo.LoadPhoto(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}
