package metadata

import "slices"

// AttachmentRule constrains the single file a create request must carry.
type AttachmentRule struct {
	Field string `json:"field" yaml:"field"`
	// AllowedMIMETypes lists the accepted types. Nil leaves the type
	// unchecked; an empty list accepts nothing.
	AllowedMIMETypes []string `json:"allowed_mime_types" yaml:"allowed_mime_types"`
	// MaxBytes is the largest accepted size. Nil leaves the size unchecked.
	MaxBytes *int64 `json:"max_bytes,omitempty" yaml:"max_bytes"`
}

// Bytes returns a pointer to n for use as AttachmentRule.MaxBytes.
func Bytes(n int64) *int64 { return &n }

// AllowsType reports whether mimeType is accepted.
func (r AttachmentRule) AllowsType(mimeType string) bool {
	return r.AllowedMIMETypes == nil || slices.Contains(r.AllowedMIMETypes, mimeType)
}

// TooLarge reports whether size exceeds the limit.
func (r AttachmentRule) TooLarge(size int64) bool {
	return r.MaxBytes != nil && size > *r.MaxBytes
}

// Entity is the static description of one backend entity.
type Entity struct {
	Name             string          `json:"name" yaml:"name"`
	PrimaryKey       []string        `json:"primary_key" yaml:"primary_key"`
	Unique           []string        `json:"unique" yaml:"unique"`
	RequiredOnCreate []string        `json:"required_on_create" yaml:"required_on_create"`
	Attachment       *AttachmentRule `json:"attachment,omitempty" yaml:"attachment"`
}

// clone returns a deep copy so registry contents cannot be changed through a
// returned value.
func (e Entity) clone() Entity {
	out := Entity{
		Name:             e.Name,
		PrimaryKey:       slices.Clone(e.PrimaryKey),
		Unique:           slices.Clone(e.Unique),
		RequiredOnCreate: slices.Clone(e.RequiredOnCreate),
	}
	if e.Attachment != nil {
		a := *e.Attachment
		a.AllowedMIMETypes = slices.Clone(a.AllowedMIMETypes)
		if a.MaxBytes != nil {
			a.MaxBytes = Bytes(*a.MaxBytes)
		}
		out.Attachment = &a
	}
	return out
}
