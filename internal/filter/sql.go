package filter

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect returns the active database dialect name (e.g. "sqlite", "postgres").
func Dialect(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return db.Dialector.Name()
}

// quoteIdent quotes each dot separated segment of ident.
// Embedded double quotes are escaped by doubling them per SQL standard.
func quoteIdent(ident string) string {
	if ident == "" {
		return ident
	}
	segments := strings.Split(ident, ".")
	for i, s := range segments {
		segments[i] = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return strings.Join(segments, ".")
}

// Apply restricts db to the rows matching e.
func Apply(db *gorm.DB, e *Expression) *gorm.DB {
	if e.IsEmpty() {
		return db
	}
	query, args := Build(Dialect(db), e)
	return db.Where(query, args...)
}

// Build renders e as a SQL condition with positional arguments. The
// always-true filter renders as an empty string.
//
// Negation yields the complement of the positive condition: a negated
// comparison also matches rows where its columns are NULL, and a negated
// group is pushed down to its leaves.
func Build(dialect string, e *Expression) (string, []interface{}) {
	if e.IsEmpty() {
		return "", nil
	}

	if e.Logical != "" {
		if e.IsNot {
			return buildLogicalCondition(dialect, negateGroup(e))
		}
		return buildLogicalCondition(dialect, e)
	}

	query, args := buildComparisonCondition(dialect, e)
	if !e.IsNot {
		return query, args
	}
	nullable := nullableColumns(e)
	if len(nullable) == 0 {
		return fmt.Sprintf("NOT (%s)", query), args
	}
	for i, col := range nullable {
		nullable[i] = col + " IS NULL"
	}
	return fmt.Sprintf("(NOT (%s) OR %s)", query, strings.Join(nullable, " OR ")), args
}

// negateGroup applies De Morgan's laws to a negated and/or node.
func negateGroup(e *Expression) *Expression {
	op := LogicalAnd
	if e.Logical == LogicalAnd {
		op = LogicalOr
	}
	return &Expression{Logical: op, Left: e.Left.Not(), Right: e.Right.Not()}
}

// nullableColumns lists the columns whose NULL makes the positive
// comparison unknown. NULL tests themselves are never unknown.
func nullableColumns(e *Expression) []string {
	if e.Lookup == IsNull {
		return nil
	}
	if ref, ok := e.Value.(Field); ok {
		return []string{quoteIdent(e.Property), quoteIdent(ref.Attr)}
	}
	if e.Value == nil && (e.Lookup == Exact || e.Lookup == IExact) {
		return nil
	}
	return []string{quoteIdent(e.Property)}
}

func buildLogicalCondition(dialect string, e *Expression) (string, []interface{}) {
	leftQuery, leftArgs := Build(dialect, e.Left)
	rightQuery, rightArgs := Build(dialect, e.Right)

	var query string
	switch e.Logical {
	case LogicalAnd:
		query = fmt.Sprintf("(%s) AND (%s)", leftQuery, rightQuery)
	default:
		query = fmt.Sprintf("(%s) OR (%s)", leftQuery, rightQuery)
	}

	args := make([]interface{}, 0, len(leftArgs)+len(rightArgs))
	args = append(args, leftArgs...)
	return query, append(args, rightArgs...)
}

var comparisonOperators = map[Lookup]string{
	Exact:  "=",
	IExact: "=",
	GT:     ">",
	GTE:    ">=",
	LT:     "<",
	LTE:    "<=",
}

func buildComparisonCondition(dialect string, e *Expression) (string, []interface{}) {
	columnName := quoteIdent(e.Property)

	if ref, ok := e.Value.(Field); ok {
		return buildFieldComparison(dialect, e.Lookup, columnName, quoteIdent(ref.Attr)), nil
	}

	switch e.Lookup {
	case IsNull:
		if isNull, _ := e.Value.(bool); !isNull {
			return fmt.Sprintf("%s IS NOT NULL", columnName), []interface{}{}
		}
		return fmt.Sprintf("%s IS NULL", columnName), []interface{}{}
	case Exact, IExact:
		if e.Value == nil {
			return fmt.Sprintf("%s IS NULL", columnName), []interface{}{}
		}
		if s, ok := e.Value.(string); ok && e.Lookup == IExact {
			return fmt.Sprintf("LOWER(%s) = LOWER(?)", columnName), []interface{}{s}
		}
		return fmt.Sprintf("%s = ?", columnName), []interface{}{e.Value}
	case GT, GTE, LT, LTE:
		return fmt.Sprintf("%s %s ?", columnName, comparisonOperators[e.Lookup]), []interface{}{e.Value}
	case Contains:
		switch dialect {
		case "sqlite":
			return fmt.Sprintf("INSTR(%s, ?) > 0", columnName), []interface{}{fmt.Sprint(e.Value)}
		case "postgres":
			return fmt.Sprintf("STRPOS(%s, ?) > 0", columnName), []interface{}{fmt.Sprint(e.Value)}
		}
		return buildLikeComparison(dialect, columnName, e.Value, false)
	case IContains:
		return buildLikeComparison(dialect, columnName, e.Value, true)
	}
	return "1 = 0", []interface{}{}
}

func buildFieldComparison(dialect string, lookup Lookup, left, right string) string {
	switch lookup {
	case IExact:
		return fmt.Sprintf("LOWER(%s) = LOWER(%s)", left, right)
	case Contains:
		if dialect == "postgres" {
			return fmt.Sprintf("STRPOS(%s, %s) > 0", left, right)
		}
		return fmt.Sprintf("INSTR(%s, %s) > 0", left, right)
	case IContains:
		if dialect == "postgres" {
			return fmt.Sprintf("STRPOS(LOWER(%s), LOWER(%s)) > 0", left, right)
		}
		return fmt.Sprintf("INSTR(LOWER(%s), LOWER(%s)) > 0", left, right)
	case IsNull:
		return fmt.Sprintf("%s IS NULL", left)
	}
	if op, ok := comparisonOperators[lookup]; ok {
		return fmt.Sprintf("%s %s %s", left, op, right)
	}
	return "1 = 0"
}
