package grammar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies the literal kind on the right hand side of a statement.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInteger
	ValueReal
	ValueDate
	// ValueIdentifier is an unquoted word. It is a field reference when it
	// names a declared variable and a plain string otherwise.
	ValueIdentifier
)

// Value is a typed literal.
type Value struct {
	Kind ValueKind
	Raw  string
	Int  int64
	Real float64
	Date time.Time
}

// Interface returns the Go value of the literal.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueInteger:
		return v.Int
	case ValueReal:
		return v.Real
	case ValueDate:
		return v.Date
	default:
		return v.Raw
	}
}

func (v Value) String() string {
	if v.Kind == ValueString {
		return strconv.Quote(v.Raw)
	}
	return v.Raw
}

// Element is one item of an Expression: a *Statement, a *Freetext, a nested
// *Expression or a Connective.
type Element interface {
	element()
	String() string
}

// Connective is a boolean keyword between two conditions.
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
)

func (Connective) element()       {}
func (c Connective) String() string { return string(c) }

// Statement is a binary comparison such as year>2010.
type Statement struct {
	Variable string
	Operator string
	Value    Value
	Pos      int
}

func (*Statement) element() {}

func (s *Statement) String() string {
	return s.Variable + s.Operator + s.Value.String()
}

// Freetext is a quoted string standing on its own.
type Freetext struct {
	Term string
	Pos  int
}

func (*Freetext) element() {}

func (f *Freetext) String() string { return strconv.Quote(f.Term) }

// Expression is an infix sequence of conditions separated by connectives.
// Parenthesized groups appear as nested expressions.
type Expression struct {
	Elements []Element
}

func (*Expression) element() {}

func (e *Expression) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		if sub, ok := el.(*Expression); ok {
			parts[i] = "(" + sub.String() + ")"
			continue
		}
		parts[i] = el.String()
	}
	return strings.Join(parts, " ")
}

func parseDate(raw string) (time.Time, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrSyntax, raw)
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrSyntax, raw)
		}
		ymd[i] = n
	}
	year, month, day := ymd[0], ymd[1], ymd[2]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if year < 1 || year > 9999 || t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, &DateRangeError{Year: year, Month: month, Day: day}
	}
	return t, nil
}

func newValue(tok *Token) (Value, error) {
	v := Value{Raw: tok.Value}
	switch tok.Type {
	case TokenString:
		v.Kind = ValueString
	case TokenIdentifier:
		v.Kind = ValueIdentifier
	case TokenInteger:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err == nil {
			v.Kind = ValueInteger
			v.Int = n
			break
		}
		// Integers beyond int64 degrade to reals.
		f, ferr := strconv.ParseFloat(tok.Value, 64)
		if ferr != nil {
			return Value{}, fmt.Errorf("%w: integer %s out of range", ErrSyntax, tok.Value)
		}
		v.Kind = ValueReal
		v.Real = f
	case TokenReal:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: real %s out of range", ErrSyntax, tok.Value)
		}
		v.Kind = ValueReal
		v.Real = f
	case TokenDate:
		d, err := parseDate(tok.Value)
		if err != nil {
			return Value{}, err
		}
		v.Kind = ValueDate
		v.Date = d
	default:
		return Value{}, fmt.Errorf("%w: unexpected %s at position %d", ErrSyntax, tok.Type, tok.Pos)
	}
	return v, nil
}
