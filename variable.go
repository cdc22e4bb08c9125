package iommi

import (
	"strings"

	"github.com/nlstn/go-iommi/internal/form"
	"github.com/nlstn/go-iommi/internal/traversal"
	"gorm.io/gorm"
)

// Last can be used as Variable.After to place a variable after all others.
const Last = "<last>"

// Form field kinds a variable can pair with.
const (
	KindText                = form.KindText
	KindChoice              = form.KindChoice
	KindChoiceQueryset      = form.KindChoiceQueryset
	KindMultiChoiceQueryset = form.KindMultiChoiceQueryset
	KindBoolean             = form.KindBoolean
	KindBooleanTristate     = form.KindBooleanTristate
	KindInteger             = form.KindInteger
	KindFloat               = form.KindFloat
	KindDecimal             = form.KindDecimal
	KindDate                = form.KindDate
	KindDateTime            = form.KindDateTime
	KindTime                = form.KindTime
	KindEmail               = form.KindEmail
	KindURL                 = form.KindURL
	KindUUID                = form.KindUUID
)

var lookupByOperator = map[string]Lookup{
	">":  GT,
	"=>": GTE,
	">=": GTE,
	"<":  LT,
	"<=": LTE,
	"=<": LTE,
	"=":  IExact,
	":":  IContains,
}

// DefaultOpToLookup maps a query operator to its case insensitive lookup.
func DefaultOpToLookup(op string) (Lookup, bool) {
	l, ok := lookupByOperator[op]
	return l, ok
}

// CaseSensitiveOpToLookup is DefaultOpToLookup with exact matching for = and :.
func CaseSensitiveOpToLookup(op string) (Lookup, bool) {
	switch op {
	case "=":
		return Exact, true
	case ":":
		return Contains, true
	}
	return DefaultOpToLookup(op)
}

func exactOpToLookup(string) (Lookup, bool) { return Exact, true }

// FieldSpec describes the input that represents a variable in the
// companion form. Nothing is rendered unless Show is set.
type FieldSpec struct {
	Show        bool
	Kind        FieldKind
	DisplayName string
	Required    bool
}

// Variable describes one filterable attribute.
//
// Variables are usually built with a shortcut such as Text or Integer and
// refined with options:
//
//	year := iommi.Integer("year", iommi.WithField())
//	owner := iommi.ChoiceQueryset("owner", &Owner{}, iommi.WithAttr("owner_id"))
type Variable struct {
	// Name is how the variable is referred to in query strings. It must be
	// unique within a query, compared case insensitively.
	Name string

	// Attr is the column the variable filters. Defaults to Name. Columns of
	// related models are not reachable; dotted attributes are rejected.
	Attr string

	// NoAttr makes every statement on the variable match all rows.
	NoAttr bool

	// After names the variable this one is ordered after, or Last.
	After string

	// Hidden removes the variable from the bound query.
	Hidden bool

	// Show is evaluated at bind time; a variable for which it returns false
	// is removed from the bound query.
	Show func(q *BoundQuery, v *BoundVariable) bool

	// Operator is used when the companion form is turned into a query string.
	Operator string

	// Freetext includes the variable in free text searches.
	Freetext bool

	// Form describes the companion form field.
	Form FieldSpec

	// OpToLookup maps query operators to lookups. Defaults to DefaultOpToLookup.
	OpToLookup func(op string) (Lookup, bool)

	// Resolver turns a statement value into a filter. Defaults to DefaultResolver.
	Resolver ValueResolver

	// Model is the GORM model whose rows the queryset kinds choose from.
	Model interface{}

	// ValueLookup is the column of Model that query string values are
	// matched against, and that model rows are rendered with.
	ValueLookup string

	// Choices lists the allowed values of a choice variable.
	Choices []string

	// ChoicesScope restricts the rows of Model offered as choices.
	ChoicesScope func(*gorm.DB) *gorm.DB
}

// DeclaredMembers implements the declarative tree node interface.
func (*Variable) DeclaredMembers() []traversal.Member { return nil }

// VariableOption refines a variable created by a shortcut.
type VariableOption func(*Variable)

// WithAttr sets the column the variable filters.
func WithAttr(attr string) VariableOption {
	return func(v *Variable) {
		v.Attr = attr
	}
}

// WithoutAttr makes the variable match all rows.
func WithoutAttr() VariableOption {
	return func(v *Variable) {
		v.NoAttr = true
	}
}

// WithAfter orders the variable after the named one.
func WithAfter(name string) VariableOption {
	return func(v *Variable) {
		v.After = name
	}
}

// WithFreetext includes the variable in free text searches.
func WithFreetext() VariableOption {
	return func(v *Variable) {
		v.Freetext = true
	}
}

// WithField shows the variable in the companion form.
func WithField() VariableOption {
	return func(v *Variable) {
		v.Form.Show = true
	}
}

// WithDisplayName sets the label of the companion form field.
func WithDisplayName(name string) VariableOption {
	return func(v *Variable) {
		v.Form.DisplayName = name
	}
}

// WithRequired makes the companion form field required.
func WithRequired() VariableOption {
	return func(v *Variable) {
		v.Form.Required = true
	}
}

// WithOperator sets the operator the companion form field is rendered with.
func WithOperator(op string) VariableOption {
	return func(v *Variable) {
		v.Operator = op
	}
}

// WithResolver replaces the value resolution of the variable.
func WithResolver(r ValueResolver) VariableOption {
	return func(v *Variable) {
		v.Resolver = r
	}
}

// WithValueLookup sets the model column values are matched against.
func WithValueLookup(column string) VariableOption {
	return func(v *Variable) {
		v.ValueLookup = column
	}
}

// WithChoicesScope restricts the rows offered by a queryset variable.
func WithChoicesScope(scope func(*gorm.DB) *gorm.DB) VariableOption {
	return func(v *Variable) {
		v.ChoicesScope = scope
	}
}

// WithShow sets the bind time visibility check.
func WithShow(show func(q *BoundQuery, v *BoundVariable) bool) VariableOption {
	return func(v *Variable) {
		v.Show = show
	}
}

// WithHidden removes the variable from bound queries.
func WithHidden() VariableOption {
	return func(v *Variable) {
		v.Hidden = true
	}
}

func newVariable(name string, kind FieldKind, opts []VariableOption, defaults ...VariableOption) Variable {
	v := Variable{
		Name:     name,
		Operator: "=",
		Form:     FieldSpec{Kind: kind},
	}
	for _, opt := range defaults {
		opt(&v)
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

// Text declares a variable compared case insensitively.
func Text(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindText, opts)
}

// CaseSensitive declares a text variable compared case sensitively.
func CaseSensitive(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindText, opts, func(v *Variable) {
		v.OpToLookup = CaseSensitiveOpToLookup
	})
}

// Choice declares a variable taking one value out of choices.
func Choice(name string, choices []string, opts ...VariableOption) Variable {
	return newVariable(name, KindChoice, opts, func(v *Variable) {
		v.Choices = choices
	})
}

func querysetDefaults(model interface{}) VariableOption {
	return func(v *Variable) {
		v.Model = model
		v.OpToLookup = exactOpToLookup
		v.ValueLookup = form.DefaultLookup
		v.Resolver = ChoiceQuerysetResolver
	}
}

// ChoiceQueryset declares a variable selecting one row of model. Values in
// query strings are matched against the ValueLookup column, and the
// variable's attribute is compared with the primary key of that row.
func ChoiceQueryset(name string, model interface{}, opts ...VariableOption) Variable {
	return newVariable(name, KindChoiceQueryset, opts, querysetDefaults(model))
}

// MultiChoiceQueryset is ChoiceQueryset with a form field selecting several rows.
func MultiChoiceQueryset(name string, model interface{}, opts ...VariableOption) Variable {
	return newVariable(name, KindMultiChoiceQueryset, opts, querysetDefaults(model))
}

// Boolean declares a variable parsing its value as a boolean.
func Boolean(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindBoolean, opts, WithResolver(BooleanResolver))
}

// BooleanTristate is Boolean with a form field that can be left unset.
func BooleanTristate(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindBooleanTristate, opts, WithResolver(BooleanResolver))
}

// Integer declares an integer variable.
func Integer(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindInteger, opts, WithResolver(IntegerResolver))
}

// Float declares a floating point variable.
func Float(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindFloat, opts, WithResolver(FloatResolver))
}

// Decimal declares a fixed point variable.
func Decimal(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindDecimal, opts, WithResolver(DecimalResolver))
}

// URL declares a variable with a URL form field.
func URL(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindURL, opts)
}

// Email declares a variable with an email form field.
func Email(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindEmail, opts)
}

// Date declares a date variable.
func Date(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindDate, opts, WithResolver(DateResolver))
}

// DateTime declares a timestamp variable.
func DateTime(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindDateTime, opts, WithResolver(DateTimeResolver))
}

// Time declares a time of day variable.
func Time(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindTime, opts, WithResolver(TimeResolver))
}

// UUID declares a UUID variable.
func UUID(name string, opts ...VariableOption) Variable {
	return newVariable(name, KindUUID, opts, WithResolver(UUIDResolver))
}

// BoundVariable is a variable bound to one BoundQuery.
type BoundVariable struct {
	Variable

	query  *BoundQuery
	source *form.ModelChoices
}

// attr returns the column v filters, or "" without one.
func (v *Variable) attr() string {
	switch {
	case v.NoAttr:
		return ""
	case v.Attr == "":
		return v.Name
	}
	return v.Attr
}

func bindVariable(v *Variable, source *form.ModelChoices, q *BoundQuery) *BoundVariable {
	bv := &BoundVariable{Variable: *v, query: q, source: source}
	bv.Attr = v.attr()
	if bv.Operator == "" {
		bv.Operator = "="
	}
	return bv
}

// Query returns the bound query owning the variable.
func (v *BoundVariable) Query() *BoundQuery {
	return v.query
}

func (v *BoundVariable) lookup(op string) (Lookup, bool) {
	if v.OpToLookup != nil {
		return v.OpToLookup(op)
	}
	return DefaultOpToLookup(op)
}

func (v *BoundVariable) resolver() ValueResolver {
	if v.Resolver != nil {
		return v.Resolver
	}
	return DefaultResolver
}

// LookupChoice loads the row of the variable's model whose ValueLookup
// column equals value.
func (v *BoundVariable) LookupChoice(value string) (ModelRecord, error) {
	if v.source == nil {
		return nil, form.ErrNoChoice
	}
	if v.query == nil || v.query.db == nil {
		return nil, form.ErrNoDatabase
	}
	return v.source.Lookup(v.query.db.WithContext(v.query.ctx), value)
}

func (v *Variable) formField(source *form.ModelChoices) form.Field {
	kind := v.Form.Kind
	if kind == "" {
		kind = KindText
	}
	return form.Field{
		Name:        v.Name,
		DisplayName: v.Form.DisplayName,
		Kind:        kind,
		Required:    v.Form.Required,
		Choices:     v.Choices,
		Source:      source,
	}
}

func isNullString(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.EqualFold(s, "null")
}
