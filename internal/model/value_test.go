package model

import (
	"encoding/json"
	"testing"
)

func TestValueBlank(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"empty string", String(""), true},
		{"whitespace", String("  \t"), true},
		{"text", String("x"), false},
		{"zero", Int(0), false},
		{"false", Bool(false), false},
		{"attachment", File(Attachment{Name: "a.jpg"}), false},
	}
	for _, tt := range tests {
		if got := tt.v.Blank(); got != tt.want {
			t.Errorf("%s: Blank() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValueUsable(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"empty string", String(""), false},
		{"whitespace", String(" "), true},
		{"zero", Int(0), false},
		{"number", Int(5), true},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"attachment", File(Attachment{}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Usable(); got != tt.want {
			t.Errorf("%s: Usable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValueJSONScalars(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"id":5,"name":"Ana","active":true,"gone":null,"ratio":1.50}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if p["id"].Kind() != KindNumber || p["id"].Text() != "5" {
		t.Errorf("id = %v %q, want number 5", p["id"].Kind(), p["id"].Text())
	}
	if p["ratio"].Text() != "1.5" {
		t.Errorf("ratio text = %q, want canonical 1.5", p["ratio"].Text())
	}
	if p["name"].Kind() != KindString || p["name"].Text() != "Ana" {
		t.Errorf("name = %v %q", p["name"].Kind(), p["name"].Text())
	}
	if p["active"].Kind() != KindBool {
		t.Errorf("active kind = %v, want bool", p["active"].Kind())
	}
	if !p["gone"].IsNull() {
		t.Errorf("gone kind = %v, want null", p["gone"].Kind())
	}
	if !p.Get("missing").IsNull() {
		t.Error("missing field should read as null")
	}
}

func TestValueJSONAttachment(t *testing.T) {
	var v Value
	data := `{"$file":{"name":"foto.jpg","type":"image/jpeg","content":"aGVsbG8="}}`
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	a, ok := v.Attachment()
	if !ok {
		t.Fatalf("kind = %v, want attachment", v.Kind())
	}
	if a.Name != "foto.jpg" || a.MIMEType != "image/jpeg" {
		t.Errorf("attachment = %+v", a)
	}
	if a.Size != 5 {
		t.Errorf("Size = %d, want 5 derived from content", a.Size)
	}
	if got := v.Summary(); got != "[File: foto.jpg, image/jpeg, 5 bytes]" {
		t.Errorf("Summary() = %v", got)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Value
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal round trip: %v", err)
	}
	if b, _ := back.Attachment(); string(b.Content) != "hello" {
		t.Errorf("round trip content = %q, want hello", b.Content)
	}
}

func TestValueJSONNestedKeptAsText(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(` [1, 2] `), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.Kind() != KindString || v.Text() != "[1, 2]" {
		t.Errorf("got %v %q, want raw text", v.Kind(), v.Text())
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"5", "5"},
		{json.Number("5"), "5"},
		{json.Number("5.0"), "5"},
		{json.Number("5e0"), "5"},
		{json.Number("1e400"), "Infinity"},
		{float64(5), "5"},
		{float64(2.5), "2.5"},
		{true, "true"},
		{nil, "null"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValueNumberSpellingsShareText(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"a":5,"b":5.0,"c":5e0,"d":50e-1,"e":-0.250}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		if got := p[k].Text(); got != "5" {
			t.Errorf("%s text = %q, want 5", k, got)
		}
	}
	if got := p["e"].Text(); got != "-0.25" {
		t.Errorf("e text = %q, want -0.25", got)
	}
	if got := Number(5).Text(); got != p["b"].Text() {
		t.Errorf("Number(5) text = %q, decoded 5.0 text = %q", got, p["b"].Text())
	}
}

func TestValueNumberOverflow(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"big":1e400,"small":-1e400}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p["big"].Kind() != KindNumber || p["big"].Text() != "Infinity" {
		t.Errorf("big = %v %q, want number Infinity", p["big"].Kind(), p["big"].Text())
	}
	if p["small"].Text() != "-Infinity" {
		t.Errorf("small text = %q, want -Infinity", p["small"].Text())
	}
	if !p["big"].Usable() {
		t.Error("infinity should be usable")
	}

	// Outcome reports must still encode.
	out, err := json.Marshal(p.Summary())
	if err != nil {
		t.Fatalf("Marshal summary: %v", err)
	}
	if string(out) != `{"big":"Infinity","small":"-Infinity"}` {
		t.Errorf("summary = %s", out)
	}
}
