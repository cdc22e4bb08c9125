// Package form implements the input form that accompanies a query: typed
// fields parsed from request data, validation, HTML rendering and the AJAX
// choice endpoints used for autocompletion.
package form

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/nlstn/go-iommi/internal/traversal"
	"gorm.io/gorm"
)

// Kind selects how a field parses and renders its value.
type Kind string

const (
	KindText                Kind = "text"
	KindChoice              Kind = "choice"
	KindChoiceQueryset      Kind = "choice_queryset"
	KindMultiChoiceQueryset Kind = "multi_choice_queryset"
	KindBoolean             Kind = "boolean"
	KindBooleanTristate     Kind = "boolean_tristate"
	KindInteger             Kind = "integer"
	KindFloat               Kind = "float"
	KindDecimal             Kind = "decimal"
	KindDate                Kind = "date"
	KindDateTime            Kind = "datetime"
	KindTime                Kind = "time"
	KindEmail               Kind = "email"
	KindURL                 Kind = "url"
	KindUUID                Kind = "uuid"
)

var (
	ErrRequired     = errors.New("this field is required")
	ErrInvalidValue = errors.New("invalid value")
	ErrNoChoice     = errors.New("not in available choices")
	ErrNoDatabase   = errors.New("no database configured for model choices")
	ErrUnknownField = errors.New("unknown field")
)

// Field declares one input.
type Field struct {
	Name        string
	DisplayName string
	Kind        Kind
	Required    bool
	// Choices lists the allowed values of a KindChoice field.
	Choices []string
	// Source loads the rows offered by the queryset kinds.
	Source *ModelChoices
}

// IsList reports whether the field holds several values.
func (f Field) IsList() bool {
	return f.Kind == KindMultiChoiceQueryset
}

// Label returns the display name, derived from the name when unset.
func (f Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	label := strings.ReplaceAll(f.Name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// DeclaredMembers implements traversal.Node.
func (Field) DeclaredMembers() []traversal.Member { return nil }

// Form is an ordered set of fields.
type Form struct {
	Fields []Field
}

// New creates a form.
func New(fields ...Field) *Form {
	return &Form{Fields: fields}
}

// DeclaredMembers implements traversal.Node.
func (f *Form) DeclaredMembers() []traversal.Member {
	fields := make(traversal.Namespace, len(f.Fields))
	for i, field := range f.Fields {
		fields[i] = traversal.Member{Name: field.Name, Node: field}
	}
	return []traversal.Member{{Name: "fields", Node: fields}}
}

// BoundField is a field with the request data parsed.
type BoundField struct {
	Field
	Raw    []string
	Value  interface{}
	Values []interface{}
	Err    error
}

// IsEmpty reports whether the field carries no value.
func (b *BoundField) IsEmpty() bool {
	if b.IsList() {
		return len(b.Values) == 0
	}
	if b.Value == nil {
		return true
	}
	s, ok := b.Value.(string)
	return ok && s == ""
}

// RawValue returns the first submitted string.
func (b *BoundField) RawValue() string {
	if len(b.Raw) == 0 {
		return ""
	}
	return b.Raw[0]
}

// Bound is a form bound to request data.
type Bound struct {
	Form   *Form
	Fields []*BoundField
	ctx    context.Context
	db     *gorm.DB
	byName map[string]*BoundField
}

// Bind parses data into the form's fields. db is only needed for the queryset kinds.
func (f *Form) Bind(ctx context.Context, db *gorm.DB, data url.Values) *Bound {
	if ctx == nil {
		ctx = context.Background()
	}
	b := &Bound{
		Form:   f,
		Fields: make([]*BoundField, len(f.Fields)),
		ctx:    ctx,
		db:     db,
		byName: make(map[string]*BoundField, len(f.Fields)),
	}
	for i, field := range f.Fields {
		bf := &BoundField{Field: field, Raw: data[field.Name]}
		b.parse(bf)
		b.Fields[i] = bf
		b.byName[field.Name] = bf
	}
	return b
}

func (b *Bound) parse(bf *BoundField) {
	raws := make([]string, 0, len(bf.Raw))
	for _, r := range bf.Raw {
		if r = strings.TrimSpace(r); r != "" {
			raws = append(raws, r)
		}
	}

	if len(raws) == 0 {
		if bf.Required {
			bf.Err = ErrRequired
		}
		return
	}

	if bf.IsList() {
		for _, raw := range raws {
			v, err := parseValue(b.ctx, b.db, bf.Field, raw)
			if err != nil {
				bf.Err = err
				return
			}
			bf.Values = append(bf.Values, v)
		}
		return
	}

	bf.Value, bf.Err = parseValue(b.ctx, b.db, bf.Field, raws[0])
}

// IsValid reports whether every field parsed.
func (b *Bound) IsValid() bool {
	for _, f := range b.Fields {
		if f.Err != nil {
			return false
		}
	}
	return true
}

// Errors maps field names to their errors.
func (b *Bound) Errors() map[string]error {
	errs := map[string]error{}
	for _, f := range b.Fields {
		if f.Err != nil {
			errs[f.Name] = f.Err
		}
	}
	return errs
}

// Field returns the bound field with the given name.
func (b *Bound) Field(name string) (*BoundField, bool) {
	f, ok := b.byName[name]
	return f, ok
}
