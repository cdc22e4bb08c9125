package iommi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nlstn/go-iommi/internal/filter"
	"github.com/nlstn/go-iommi/internal/form"
	"github.com/shopspring/decimal"
)

// ValueResolver turns the value of a statement into a filter.
//
// value is a string, an int64, a float64, a time.Time for date literals, or
// a FieldRef when the value names another variable. op is the operator as
// written, including a leading "!" for negated operators.
//
// A resolver that finds nothing for value returns an error wrapping
// ErrNoMatch, or a nil filter; either is reported to the user as an
// unknown value. Errors wrapping ErrInvalidOperator are reported as such.
type ValueResolver interface {
	ValueToFilter(v *BoundVariable, op string, value interface{}) (*Filter, error)
}

// ResolverFunc adapts a function to ValueResolver.
type ResolverFunc func(v *BoundVariable, op string, value interface{}) (*Filter, error)

// ValueToFilter implements ValueResolver.
func (f ResolverFunc) ValueToFilter(v *BoundVariable, op string, value interface{}) (*Filter, error) {
	return f(v, op, value)
}

type defaultResolver struct{}

// DefaultResolver compares the variable's attribute with the value using
// the lookup its operator maps to. The string "null" in any case matches
// NULL, and a "!" operator prefix negates the result.
var DefaultResolver ValueResolver = defaultResolver{}

func (defaultResolver) ValueToFilter(v *BoundVariable, op string, value interface{}) (*Filter, error) {
	if v.Attr == "" {
		return filter.All(), nil
	}

	negated := false
	if len(op) > 1 && op[0] == '!' {
		negated = true
		op = op[1:]
	}

	var expr *Filter
	if isNullString(value) {
		expr = filter.Null(v.Attr)
	} else {
		lookup, ok := v.lookup(op)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOperator, op)
		}
		expr = filter.Compare(v.Attr, lookup, value)
	}

	if negated {
		return expr.Not(), nil
	}
	return expr, nil
}

// CoercingResolver converts literal values with Coerce before handing them
// to DefaultResolver. Field references and "null" are passed through.
type CoercingResolver struct {
	Coerce func(value interface{}) (interface{}, error)
}

// ValueToFilter implements ValueResolver.
func (r CoercingResolver) ValueToFilter(v *BoundVariable, op string, value interface{}) (*Filter, error) {
	if _, isRef := value.(FieldRef); !isRef && !isNullString(value) && v.Attr != "" {
		coerced, err := r.Coerce(value)
		if err != nil {
			return nil, err
		}
		value = coerced
	}
	return DefaultResolver.ValueToFilter(v, op, value)
}

// Resolvers of the built-in variable shortcuts.
var (
	BooleanResolver  ValueResolver = CoercingResolver{Coerce: coerceBool}
	IntegerResolver  ValueResolver = CoercingResolver{Coerce: coerceInteger}
	FloatResolver    ValueResolver = CoercingResolver{Coerce: coerceFloat}
	DecimalResolver  ValueResolver = CoercingResolver{Coerce: coerceDecimal}
	DateResolver     ValueResolver = CoercingResolver{Coerce: coerceTime(form.DateLayouts)}
	DateTimeResolver ValueResolver = CoercingResolver{Coerce: coerceTime(form.DateTimeLayouts)}
	TimeResolver     ValueResolver = CoercingResolver{Coerce: coerceTime(form.TimeLayouts)}
	UUIDResolver     ValueResolver = CoercingResolver{Coerce: coerceUUID}

	ChoiceQuerysetResolver ValueResolver = choiceQuerysetResolver{}
)

func noMatch(value interface{}) error {
	return fmt.Errorf("%w: %v", ErrNoMatch, value)
}

func coerceBool(value interface{}) (interface{}, error) {
	switch x := value.(type) {
	case string:
		b, err := form.ParseBool(x)
		if err != nil {
			return nil, noMatch(x)
		}
		return b, nil
	case int64:
		switch x {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
		return nil, noMatch(x)
	}
	return value, nil
}

func coerceInteger(value interface{}) (interface{}, error) {
	if s, ok := value.(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, noMatch(s)
		}
		return n, nil
	}
	return value, nil
}

func coerceFloat(value interface{}) (interface{}, error) {
	switch x := value.(type) {
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, noMatch(x)
		}
		return f, nil
	case int64:
		return float64(x), nil
	}
	return value, nil
}

func coerceDecimal(value interface{}) (interface{}, error) {
	switch x := value.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return nil, noMatch(x)
		}
		return d, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return value, nil
}

func coerceTime(layouts []string) func(interface{}) (interface{}, error) {
	return func(value interface{}) (interface{}, error) {
		switch x := value.(type) {
		case string:
			t, err := form.ParseTime(x, layouts)
			if err != nil {
				return nil, noMatch(x)
			}
			return t, nil
		case time.Time:
			return x, nil
		}
		return nil, noMatch(value)
	}
}

func coerceUUID(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, noMatch(value)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, noMatch(s)
	}
	return id, nil
}

type choiceQuerysetResolver struct{}

// ValueToFilter accepts only "=". The value is looked up in the variable's
// model by its ValueLookup column and the attribute is compared with the
// primary key of the row found.
func (choiceQuerysetResolver) ValueToFilter(v *BoundVariable, op string, value interface{}) (*Filter, error) {
	if op != "=" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOperator, op)
	}
	if v.Attr == "" {
		return filter.All(), nil
	}
	if isNullString(value) {
		return filter.Null(v.Attr), nil
	}
	if ref, ok := value.(FieldRef); ok {
		return filter.Compare(v.Attr, filter.Exact, ref), nil
	}

	row, err := v.LookupChoice(fmt.Sprint(value))
	if errors.Is(err, form.ErrNoChoice) {
		return nil, noMatch(value)
	}
	if err != nil {
		return nil, err
	}
	return filter.Compare(v.Attr, filter.Exact, row[v.source.KeyColumn]), nil
}
