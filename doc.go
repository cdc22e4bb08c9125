// Package iommi filters GORM queries with a small query language and
// renders the matching rows as server side HTML tables.
//
// A Query declares the variables a query string may refer to:
//
//	year>2010 and (make=Volvo or make=Toyota) and owner=null
//	"prius"
//
// Statements compare a variable with a literal (string, integer, real or
// date) or with another variable. "and" binds tighter than "or", and a
// quoted string standing alone searches every free text variable. Bound to
// a request, a query either compiles the advanced query parameter or
// synthesizes a query string from its companion form, then adds the result
// to a *gorm.DB as a WHERE clause.
//
// Tables and pages assemble queries into a declarative tree. Every node of
// the tree gets a unique short path, which addresses the node's AJAX
// endpoints, such as the choice lookups of the companion form.
package iommi
