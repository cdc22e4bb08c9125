package iommi

import (
	"github.com/nlstn/go-iommi/internal/filter"
	"github.com/nlstn/go-iommi/internal/form"
	"github.com/nlstn/go-iommi/internal/grammar"
	"github.com/nlstn/go-iommi/internal/metadata"
	"github.com/nlstn/go-iommi/internal/traversal"
	"gorm.io/gorm"
)

// Filter is a compiled, boolean-combinable filter. The zero value and
// AllFilter() match every row.
//
// Example applying a filter by hand:
//
//	expr, err := bound.ToFilter()
//	if err != nil {
//	    return err
//	}
//	db = iommi.ApplyFilter(db, expr.And(iommi.Compare("year", iommi.GT, 2010)))
type Filter = filter.Expression

// FieldRef compares a column against another column instead of a literal.
type FieldRef = filter.Field

// Lookup re-exports the comparison lookups filters are built from.
type Lookup = filter.Lookup

// Supported lookups.
const (
	Exact     = filter.Exact
	IExact    = filter.IExact
	Contains  = filter.Contains
	IContains = filter.IContains
	GT        = filter.GT
	GTE       = filter.GTE
	LT        = filter.LT
	LTE       = filter.LTE
	IsNull    = filter.IsNull
)

// ParseTree re-exports the parsed form of a query string consumed by Compile.
type ParseTree = grammar.Expression

// FieldKind re-exports the input kinds of the companion form.
type FieldKind = form.Kind

// ModelField re-exports the description of one model struct field handed to
// variable factories.
type ModelField = metadata.FieldMetadata

// Member re-exports a named child of a declarative tree.
type Member = traversal.Member

// Namespace re-exports a structural container of members.
type Namespace = traversal.Namespace

// BoundForm re-exports the companion form bound to request data.
type BoundForm = form.Bound

// ModelRecord re-exports a model row loaded as column values.
type ModelRecord = form.Record

// AllFilter returns the filter matching every row.
func AllFilter() *Filter { return filter.All() }

// Compare returns a filter comparing attr to value.
func Compare(attr string, lookup Lookup, value interface{}) *Filter {
	return filter.Compare(attr, lookup, value)
}

// ParseQueryString parses a query string without compiling it.
func ParseQueryString(s string) (*ParseTree, error) {
	return grammar.Parse(s)
}

// ApplyFilter adds f to the WHERE clause of db.
func ApplyFilter(db *gorm.DB, f *Filter) *gorm.DB {
	return filter.Apply(db, f)
}
