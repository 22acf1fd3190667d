// Package demo builds sample batches for the graduation-records catalog: a
// complete student that satisfies every constraint and a deliberately
// incomplete duplicate that exercises the strict prechecks.
package demo

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/seantiz/batchgate/internal/model"
)

const (
	// Entity is the catalog entity every demo request targets.
	Entity = "alumnograduacion"
	// PhotoField is the attachment field of Entity.
	PhotoField = "nuevo_alumnograduacion_fotoacto"

	loginPrefix  = "Marc"
	loginSuffix  = 6
	letters      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	dniLetters   = "TRWAGMYFPDXBNJZSQVHLCKE"
	emailDomain  = "@example.com"
	maxDNINumber = 100_000_000
)

// Generator produces demo values from its random source.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator seeded from the runtime's random source.
func New() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic generator.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Login returns a letters-only login: the fixed prefix plus six random letters.
func (g *Generator) Login() string {
	var sb strings.Builder
	sb.WriteString(loginPrefix)
	for range loginSuffix {
		sb.WriteByte(letters[g.rng.IntN(len(letters))])
	}
	return sb.String()
}

// DNI returns eight digits followed by the matching control letter.
func (g *Generator) DNI() string {
	return DNIFor(g.rng.IntN(maxDNINumber))
}

// DNIFor formats n as a DNI with its control letter.
func DNIFor(n int) string {
	return fmt.Sprintf("%08d%c", n, dniLetters[n%len(dniLetters)])
}

// ValidDNI reports whether s is eight digits followed by the correct control
// letter.
func ValidDNI(s string) bool {
	if len(s) != 9 {
		return false
	}
	n := 0
	for _, c := range s[:8] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return s[8] == dniLetters[n%len(dniLetters)]
}

// Student returns a complete create request with fresh unique values. photo
// is attached when non-nil.
func (g *Generator) Student(photo *model.Attachment) model.Request {
	login := g.Login()
	payload := model.Payload{
		"alumnograduacion_login":      model.String(login),
		"alumnograduacion_password":   model.String("MiclaveSegura"),
		"alumnograduacion_nombre":     model.String("Alvaro"),
		"alumnograduacion_apellidos":  model.String("Garcia Lopez"),
		"alumnograduacion_titulacion": model.String("GREI"),
		"alumnograduacion_dni":        model.String(g.DNI()),
		"alumnograduacion_telefono":   model.String("612345678"),
		"alumnograduacion_direccion":  model.String("Rua do Sol 15"),
		"alumnograduacion_email":      model.String(strings.ToLower(login) + emailDomain),
	}
	if photo != nil {
		payload[PhotoField] = model.File(*photo)
	}
	return model.Request{Entity: Entity, Action: model.ActionCreate, Payload: payload}
}

// Incomplete returns a create request that carries only the unique fields,
// with fixed values likely to already exist.
func Incomplete() model.Request {
	return model.Request{
		Entity: Entity,
		Action: model.ActionCreate,
		Payload: model.Payload{
			"alumnograduacion_login": model.String(loginPrefix),
			"alumnograduacion_dni":   model.String("12345678Z"),
			"alumnograduacion_email": model.String(strings.ToLower(loginPrefix) + emailDomain),
		},
	}
}

// StrictBatch is the precheck demo: an incomplete duplicate followed by a
// valid student.
func (g *Generator) StrictBatch(photo *model.Attachment) []model.Request {
	return []model.Request{Incomplete(), g.Student(photo)}
}

// StandardBatch is the execution demo: a single valid student.
func (g *Generator) StandardBatch(photo *model.Attachment) []model.Request {
	return []model.Request{g.Student(photo)}
}

// samplePhoto is a minimal JPEG: start-of-image, an empty JFIF header and
// end-of-image.
var samplePhoto = []byte{
	0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0xFF, 0xD9,
}

// SamplePhoto returns a tiny built-in JPEG attachment.
func SamplePhoto() model.Attachment {
	return model.Attachment{
		Name:     "fotoacto.jpg",
		MIMEType: "image/jpeg",
		Size:     int64(len(samplePhoto)),
		Content:  append([]byte(nil), samplePhoto...),
	}
}

// LoadPhoto reads an attachment from disk, sniffing its MIME type.
func LoadPhoto(path string) (model.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("read photo: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return model.Attachment{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Content:  data,
	}, nil
}
