package iommi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nlstn/go-iommi/internal/compiler"
	"github.com/nlstn/go-iommi/internal/filter"
	"github.com/nlstn/go-iommi/internal/form"
	"github.com/nlstn/go-iommi/internal/grammar"
	"github.com/nlstn/go-iommi/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ToQueryString returns the query string equivalent to the request data.
//
// A non-blank advanced query parameter is returned verbatim. Otherwise the
// companion form is used: every non-empty field becomes a statement using
// the variable's operator, statements are joined with "and", multi-valued
// fields become a parenthesized "or" group and a free text search becomes
// an "or" group over the free text variables. When the form does not
// validate the result is empty, which matches everything.
func (b *BoundQuery) ToQueryString() string {
	f := b.Form()
	if b.isAdvanced() {
		return b.AdvancedQuery()
	}
	if !f.IsValid() {
		b.logger.Debug("query form did not validate", "errors", f.Errors())
		return ""
	}

	var parts []string
	for _, field := range f.Fields {
		if field.Name == FreetextSearchName || field.IsEmpty() {
			continue
		}
		v, ok := b.Variable(field.Name)
		if !ok {
			continue
		}
		if field.IsList() {
			terms := make([]string, len(field.Values))
			for i, value := range field.Values {
				terms[i] = v.Name + v.Operator + formatValue(v, value)
			}
			parts = append(parts, "("+strings.Join(terms, " or ")+")")
			continue
		}
		parts = append(parts, v.Name+v.Operator+formatValue(v, field.Value))
	}

	if term, ok := f.Field(FreetextSearchName); ok {
		if s, _ := term.Value.(string); s != "" {
			variables := b.freetextVariables()
			terms := make([]string, len(variables))
			for i, v := range variables {
				terms[i] = fmt.Sprintf(`%s:"%s"`, v.Name, s)
			}
			parts = append(parts, "("+strings.Join(terms, " or ")+")")
		}
	}

	qs := strings.Join(parts, " and ")
	b.logger.Debug("synthesized query string", "query", qs)
	return qs
}

// formatValue renders a form value as a query string literal. Strings are
// quoted without escaping, so values containing a double quote do not
// survive the round trip.
func formatValue(v *BoundVariable, value interface{}) string {
	switch x := value.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatReal(x)
	case form.Record:
		return `"` + fmt.Sprint(x[v.ValueLookup]) + `"`
	case time.Time:
		switch v.Form.Kind {
		case KindDate:
			return `"` + x.Format(form.DateLayouts[0]) + `"`
		case KindTime:
			return `"` + x.Format(form.TimeLayouts[0]) + `"`
		}
		return `"` + x.Format(time.RFC3339) + `"`
	}
	return `"` + fmt.Sprint(value) + `"`
}

// formatReal renders f so that it always lexes as a real literal.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ToFilter parses the query string of the request into a filter.
func (b *BoundQuery) ToFilter() (*Filter, error) {
	return b.Parse(b.ToQueryString())
}

// Apply restricts db to the rows matching the request. On error db is
// returned unchanged.
func (b *BoundQuery) Apply(db *gorm.DB) (*gorm.DB, error) {
	expr, err := b.ToFilter()
	if err != nil {
		return db, err
	}
	return filter.Apply(db, expr), nil
}

// Parse compiles a query string into a filter. Blank input matches every
// row. Failures are returned as *QueryError.
func (b *BoundQuery) Parse(query string) (*Filter, error) {
	obs := b.obs
	advanced := b.isAdvanced()

	ctx, span := obs.Tracer().StartParse(b.ctx, query, advanced)
	defer span.End()
	timing := observability.StartServerTimingWithDesc(ctx, "query-parse", "query parsing")
	defer timing.Stop()
	start := time.Now()

	expr, err := b.parse(query)
	if err != nil {
		obs.Tracer().RecordError(span, err)
		obs.Metrics().RecordError(ctx, errorCode(err))
		logger := observability.LoggerWithTrace(ctx, b.logger)
		if IsUserError(err) {
			logger.Warn("query rejected", "query", query, "error", err)
		} else {
			logger.Error("query compilation failed", "query", query, "error", err)
		}
		return nil, err
	}

	obs.Metrics().RecordParse(ctx, time.Since(start), advanced)
	return expr, nil
}

func (b *BoundQuery) parse(query string) (*Filter, error) {
	if strings.TrimSpace(query) == "" {
		return filter.All(), nil
	}

	tree, err := grammar.Parse(query)
	if err != nil {
		return nil, syntaxError(query, err)
	}

	expr, err := b.Compile(tree)
	if err != nil {
		var qerr *QueryError
		if errors.As(err, &qerr) {
			qerr.Query = query
		}
		return nil, err
	}
	return expr, nil
}

// Compile reduces a parse tree to one filter. Parenthesized groups are
// compiled first; "and" binds tighter than "or".
func (b *BoundQuery) Compile(tree *ParseTree) (*Filter, error) {
	if tree == nil || len(tree.Elements) == 0 {
		return filter.All(), nil
	}

	_, span := b.obs.Tracer().StartSpan(b.ctx, "iommi.query.compile",
		attribute.Int(observability.AttrVariableCount, len(b.variables)))
	defer span.End()

	items := make([]compiler.Item[*Filter], 0, len(tree.Elements))
	for _, el := range tree.Elements {
		var (
			expr *Filter
			err  error
		)
		switch el := el.(type) {
		case grammar.Connective:
			items = append(items, compiler.Operator[*Filter](compiler.Connective(el)))
			continue
		case *grammar.Statement:
			expr, err = b.statementFilter(el)
		case *grammar.Freetext:
			expr, err = b.freetextFilter(el)
		case *grammar.Expression:
			expr, err = b.Compile(el)
		default:
			err = b.internalError(fmt.Errorf("unexpected parse tree element %T", el))
		}
		if err != nil {
			return nil, err
		}
		items = append(items, compiler.Operand(expr))
	}
	return compiler.Reduce(items), nil
}

func (b *BoundQuery) statementFilter(st *grammar.Statement) (*Filter, error) {
	v, ok := b.Variable(st.Variable)
	if !ok {
		return nil, newQueryError(ErrorCodeUnknownVariable,
			fmt.Errorf("%w: %s", ErrUnknownVariable, st.Variable),
			`Unknown variable "%s"`, st.Variable)
	}

	value := st.Value.Interface()
	if st.Value.Kind == grammar.ValueIdentifier {
		if ref, ok := b.Variable(st.Value.Raw); ok && ref.Attr != "" {
			value = FieldRef{Attr: ref.Attr}
		}
	}

	expr, err := v.resolver().ValueToFilter(v, st.Operator, value)
	switch {
	case err == nil && expr != nil:
		return expr, nil
	case err == nil, errors.Is(err, ErrNoMatch):
		return nil, newQueryError(ErrorCodeUnknownValue,
			fmt.Errorf("%w: %s", ErrUnknownValue, st.Value.Raw),
			`Unknown value "%s" for variable "%s"`, st.Value.Raw, v.Name)
	case errors.Is(err, ErrInvalidOperator):
		return nil, newQueryError(ErrorCodeInvalidOperator, err,
			`Invalid operator "%s" for variable "%s"`, st.Operator, v.Name)
	}
	return nil, b.internalError(err)
}

func (b *BoundQuery) freetextFilter(ft *grammar.Freetext) (*Filter, error) {
	variables := b.freetextVariables()
	if len(variables) == 0 {
		return nil, b.internalError(errors.New("free text search without free text variables"))
	}

	var expr *Filter
	for _, v := range variables {
		if v.Attr == "" {
			continue
		}
		lookup, ok := v.lookup(":")
		if !ok {
			lookup = IContains
		}
		expr = expr.Or(filter.Compare(v.Attr, lookup, ft.Term))
	}
	if expr == nil {
		return filter.All(), nil
	}
	return expr, nil
}

func (b *BoundQuery) internalError(err error) *QueryError {
	b.logger.Error("query invariant violated", "error", err)
	return newQueryError(ErrorCodeInternal, fmt.Errorf("%w: %w", ErrInternal, err), "Internal error")
}
