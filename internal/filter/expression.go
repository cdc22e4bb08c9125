package filter

import (
	"fmt"
	"strings"
	"time"
)

// Lookup names the comparison a leaf expression performs.
type Lookup string

const (
	Exact     Lookup = "exact"
	IExact    Lookup = "iexact"
	Contains  Lookup = "contains"
	IContains Lookup = "icontains"
	GT        Lookup = "gt"
	GTE       Lookup = "gte"
	LT        Lookup = "lt"
	LTE       Lookup = "lte"
	IsNull    Lookup = "isnull"
)

// LogicalOperator represents logical operators for combining filters
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// Field references another attribute of the same row. Used as a comparison
// value it compares two columns instead of a column and a literal.
type Field struct {
	Attr string
}

func (f Field) String() string { return "F(" + f.Attr + ")" }

// Expression is a boolean-combinable filter. The zero value matches every row.
// Expressions are immutable once built: And, Or and Not return new values.
type Expression struct {
	Property string
	Lookup   Lookup
	Value    interface{}
	Left     *Expression
	Right    *Expression
	Logical  LogicalOperator
	IsNot    bool
}

// All returns the always-true filter.
func All() *Expression {
	return &Expression{}
}

// Compare returns a leaf comparing property against value.
func Compare(property string, lookup Lookup, value interface{}) *Expression {
	return &Expression{Property: property, Lookup: lookup, Value: value}
}

// Null returns a leaf matching rows where property IS NULL.
func Null(property string) *Expression {
	return &Expression{Property: property, Lookup: IsNull, Value: true}
}

// IsEmpty reports whether e is the always-true filter.
func (e *Expression) IsEmpty() bool {
	return e == nil || (e.Logical == "" && e.Property == "")
}

// And returns the intersection of e and other.
func (e *Expression) And(other *Expression) *Expression {
	return combine(LogicalAnd, e, other)
}

// Or returns the union of e and other.
func (e *Expression) Or(other *Expression) *Expression {
	return combine(LogicalOr, e, other)
}

// Not returns the complement of e. The complement of the always-true filter
// is itself.
func (e *Expression) Not() *Expression {
	if e.IsEmpty() {
		return All()
	}
	negated := *e
	negated.IsNot = !e.IsNot
	return &negated
}

func combine(op LogicalOperator, left, right *Expression) *Expression {
	if left.IsEmpty() {
		if right == nil {
			return All()
		}
		return right
	}
	if right.IsEmpty() {
		return left
	}
	return &Expression{Logical: op, Left: left, Right: right}
}

// String renders e in a stable, human readable form, e.g.
// (year__gt=2010 AND NOT (make__iexact="Volvo")).
func (e *Expression) String() string {
	if e.IsEmpty() {
		return "<all>"
	}
	var s string
	if e.Logical != "" {
		s = fmt.Sprintf("(%s %s %s)", e.Left, strings.ToUpper(string(e.Logical)), e.Right)
	} else {
		s = fmt.Sprintf("%s__%s=%s", e.Property, e.Lookup, formatValue(e.Value))
	}
	if e.IsNot {
		return "NOT " + s
	}
	return s
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case time.Time:
		return val.Format(time.RFC3339)
	case nil:
		return "None"
	default:
		return fmt.Sprint(val)
	}
}
