package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindAttachment
)

// String returns the lower-case name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindAttachment:
		return "attachment"
	default:
		return "null"
	}
}

// fileKey marks a JSON object as an encoded attachment.
const fileKey = "$file"

// Attachment is a binary file carried in a request payload.
// Size is authoritative even when Content is empty, so a dry run can be
// described by metadata alone.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"type"`
	Size     int64  `json:"size"`
	Content  []byte `json:"content,omitempty"`
}

// Summary renders the attachment the way outcome reports show it.
func (a Attachment) Summary() string {
	return fmt.Sprintf("[File: %s, %s, %d bytes]", a.Name, a.MIMEType, a.Size)
}

// Value is a payload value: null, a scalar, or an attachment.
type Value struct {
	kind ValueKind
	text string
	num  float64
	b    bool
	file *Attachment
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number wraps a numeric scalar.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, text: formatNumber(f)}
}

// Int wraps an integer scalar.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: float64(i), text: strconv.FormatInt(i, 10)}
}

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b, text: strconv.FormatBool(b)} }

// File wraps an attachment.
func File(a Attachment) Value {
	a2 := a
	return Value{kind: KindAttachment, file: &a2}
}

// numberFromText parses a JSON number literal. Spellings of the same number
// ("5", "5.0", "5e0") share one canonical text. Literals beyond float64 range
// become infinities.
func numberFromText(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("parse number %q: %w", s, err)
	}
	return Number(f), nil
}

// formatNumber renders f in its shortest plain decimal form.
func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Attachment returns the attachment held by v, if any.
func (v Value) Attachment() (Attachment, bool) {
	if v.kind != KindAttachment || v.file == nil {
		return Attachment{}, false
	}
	return *v.file, true
}

// Text is the string conversion used for form fields, reservation keys and
// record comparison. Null converts to the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindAttachment:
		return v.file.Summary()
	default:
		return v.text
	}
}

// Blank reports whether v is null or converts to whitespace-only text.
func (v Value) Blank() bool {
	if v.kind == KindNull {
		return true
	}
	return strings.TrimSpace(v.Text()) == ""
}

// Usable reports whether v counts as a supplied value for key and uniqueness
// checks: empty strings, zero, false and null do not.
func (v Value) Usable() bool {
	switch v.kind {
	case KindString:
		return v.text != ""
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.b
	case KindAttachment:
		return true
	default:
		return false
	}
}

// Summary returns a JSON-friendly rendering with attachments replaced by a
// short description.
func (v Value) Summary() any {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return v.text
		}
		return json.Number(v.text)
	case KindBool:
		return v.b
	case KindAttachment:
		return v.file.Summary()
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindAttachment {
		return json.Marshal(map[string]*Attachment{fileKey: v.file})
	}
	return json.Marshal(v.Summary())
}

// UnmarshalJSON implements json.Unmarshaler. Objects other than an encoded
// attachment, and arrays, are kept as their raw JSON text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}

	switch t := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	case json.Number:
		n, err := numberFromText(t.String())
		if err != nil {
			return err
		}
		*v = n
	case map[string]any:
		if _, ok := t[fileKey]; ok && len(t) == 1 {
			var wrapped map[string]Attachment
			if err := json.Unmarshal(data, &wrapped); err != nil {
				return fmt.Errorf("decode attachment: %w", err)
			}
			a := wrapped[fileKey]
			if a.Size == 0 {
				a.Size = int64(len(a.Content))
			}
			*v = File(a)
			return nil
		}
		*v = String(string(bytes.TrimSpace(data)))
	default:
		*v = String(string(bytes.TrimSpace(data)))
	}
	return nil
}

// Stringify converts a decoded JSON value to text the same way Value.Text does,
// so backend records can be compared against payload values.
func Stringify(x any) string {
	switch t := x.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return t.String()
		}
		return formatNumber(f)
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Payload maps field names to values.
type Payload map[string]Value

// Get returns the value for field, or null when absent.
func (p Payload) Get(field string) Value {
	if p == nil {
		return Null()
	}
	return p[field]
}

// Summary renders every field with Value.Summary. A nil payload yields an
// empty map.
func (p Payload) Summary() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Summary()
	}
	return out
}
