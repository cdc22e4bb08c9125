package iommi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/nlstn/go-iommi/internal/form"
	"github.com/nlstn/go-iommi/internal/observability"
	"github.com/nlstn/go-iommi/internal/traversal"
	"gorm.io/gorm"
)

const (
	// FreetextSearchName is the companion form field holding a free text search.
	FreetextSearchName = "term"

	// AdvancedQueryParam is the request parameter carrying a raw query string.
	// When present and not blank it is used verbatim instead of the form.
	AdvancedQueryParam = "query"

	// EndpointDispatchPrefix is the dispatch path of a query that is not part
	// of a page.
	EndpointDispatchPrefix = "query"

	// DispatchPathSeparator separates the segments of a dispatch path.
	DispatchPathSeparator = traversal.Separator
)

// Query declares a query language over a set of variables.
//
// Example:
//
//	q, err := iommi.NewQuery([]iommi.Variable{
//	    iommi.Choice("make", []string{"Toyota", "Volvo", "Ford"}),
//	    iommi.Text("model"),
//	})
//	...
//	bound, err := q.Bind(r, iommi.WithDB(db))
//	db, err = bound.Apply(db.Model(&Car{}))
type Query struct {
	variables      []*Variable
	sources        map[string]*form.ModelChoices
	dispatchPrefix string
	observability  *observability.Config
}

// QueryOption configures a Query.
type QueryOption func(*Query)

// WithEndpointDispatchPrefix sets the dispatch path of the query's AJAX endpoints.
func WithEndpointDispatchPrefix(prefix string) QueryOption {
	return func(q *Query) {
		q.dispatchPrefix = prefix
	}
}

// WithObservability enables tracing, metrics and Server-Timing for the query.
func WithObservability(o *Observability) QueryOption {
	return func(q *Query) {
		q.observability = o.config()
	}
}

// NewQuery validates the variables and orders them by their After setting.
func NewQuery(variables []Variable, opts ...QueryOption) (*Query, error) {
	q := &Query{
		sources:        map[string]*form.ModelChoices{},
		dispatchPrefix: EndpointDispatchPrefix,
	}
	for _, opt := range opts {
		opt(q)
	}

	declared := make([]*Variable, len(variables))
	seen := map[string]bool{}
	for i := range variables {
		v := variables[i]
		if v.Name == "" {
			return nil, fmt.Errorf("%w: variable %d has no name", ErrDeclaration, i)
		}
		key := strings.ToLower(v.Name)
		if seen[key] || key == FreetextSearchName {
			return nil, fmt.Errorf("%w: duplicate variable %q", ErrDeclaration, v.Name)
		}
		seen[key] = true

		if attr := v.attr(); strings.Contains(attr, ".") {
			return nil, fmt.Errorf("%w: variable %q filters %q across a relation, use ChoiceQueryset or a column of the model",
				ErrDeclaration, v.Name, attr)
		}

		switch v.Form.Kind {
		case KindChoiceQueryset, KindMultiChoiceQueryset:
			if v.Model == nil {
				return nil, fmt.Errorf("%w: variable %q needs a model", ErrDeclaration, v.Name)
			}
		}
		if v.Model != nil {
			source, err := form.NewModelChoices(v.Model, v.ValueLookup, v.ChoicesScope)
			if err != nil {
				return nil, fmt.Errorf("%w: variable %q: %w", ErrDeclaration, v.Name, err)
			}
			q.sources[v.Name] = source
		}
		declared[i] = &v
	}

	sorted, err := sortAfter(declared)
	if err != nil {
		return nil, err
	}
	q.variables = sorted

	if err := traversal.ValidateReservedNames(q); err != nil {
		return nil, err
	}
	return q, nil
}

// sortAfter keeps declaration order except for variables with After set,
// which follow the variable they name, and Last, which go to the end.
func sortAfter(variables []*Variable) ([]*Variable, error) {
	var head, last []*Variable
	pending := map[string][]*Variable{}
	for _, v := range variables {
		switch v.After {
		case "":
			head = append(head, v)
		case Last:
			last = append(last, v)
		default:
			pending[strings.ToLower(v.After)] = append(pending[strings.ToLower(v.After)], v)
		}
	}

	out := make([]*Variable, 0, len(variables))
	var place func(v *Variable)
	place = func(v *Variable) {
		out = append(out, v)
		key := strings.ToLower(v.Name)
		followers := pending[key]
		delete(pending, key)
		for _, f := range followers {
			place(f)
		}
	}
	for _, v := range head {
		place(v)
	}
	for _, v := range last {
		place(v)
	}

	if len(pending) > 0 {
		missing := make([]string, 0, len(pending))
		for name := range pending {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: variables placed after unknown or circular names: %s", ErrDeclaration, strings.Join(missing, ", "))
	}
	return out, nil
}

// Variables returns the declared variables in order.
func (q *Query) Variables() []Variable {
	out := make([]Variable, len(q.variables))
	for i, v := range q.variables {
		out[i] = *v
	}
	return out
}

func (q *Query) hasFreetext(variables []*Variable) bool {
	for _, v := range variables {
		if v.Freetext {
			return true
		}
	}
	return false
}

func freetextField() form.Field {
	return form.Field{Name: FreetextSearchName, DisplayName: "Search", Kind: form.KindText}
}

// declaredForm is the companion form of all declared variables.
func (q *Query) declaredForm() *form.Form {
	var fields []form.Field
	if q.hasFreetext(q.variables) {
		fields = append(fields, freetextField())
	}
	for _, v := range q.variables {
		if v.Form.Show {
			fields = append(fields, v.formField(q.sources[v.Name]))
		}
	}
	return form.New(fields...)
}

// DeclaredMembers implements the declarative tree node interface: the
// companion form, then the variables.
func (q *Query) DeclaredMembers() []traversal.Member {
	variables := make(traversal.Namespace, len(q.variables))
	for i, v := range q.variables {
		variables[i] = traversal.Member{Name: v.Name, Node: v}
	}
	return []traversal.Member{
		{Name: "gui", Node: q.declaredForm()},
		{Name: "variables", Node: variables},
	}
}

type bindConfig struct {
	db      *gorm.DB
	data    url.Values
	hasData bool
	logger  *slog.Logger
}

// BindOption configures Bind.
type BindOption func(*bindConfig)

// WithDB sets the database used for model choice lookups.
func WithDB(db *gorm.DB) BindOption {
	return func(c *bindConfig) {
		c.db = db
	}
}

// WithData binds to data instead of the request parameters.
func WithData(data url.Values) BindOption {
	return func(c *bindConfig) {
		c.data = data
		c.hasData = true
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) BindOption {
	return func(c *bindConfig) {
		c.logger = logger
	}
}

func newBindConfig(opts []BindOption) *bindConfig {
	cfg := &bindConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// requestData returns the parameters of a GET request or the form body of
// a POST request.
func requestData(r *http.Request) (url.Values, error) {
	switch r.Method {
	case http.MethodGet, "":
		return r.URL.Query(), nil
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method)
}

// BoundQuery is a query bound to one request.
type BoundQuery struct {
	query          *Query
	request        *http.Request
	ctx            context.Context
	data           url.Values
	db             *gorm.DB
	logger         *slog.Logger
	obs            *observability.Config
	dispatchPrefix string

	variables []*BoundVariable
	byName    map[string]*BoundVariable
	form      *form.Bound
}

// Bind binds the query to a request. r may be nil when WithData is given.
func (q *Query) Bind(r *http.Request, opts ...BindOption) (*BoundQuery, error) {
	return q.bind(r, newBindConfig(opts))
}

func (q *Query) bind(r *http.Request, cfg *bindConfig) (*BoundQuery, error) {
	data := cfg.data
	if !cfg.hasData {
		if r == nil {
			data = url.Values{}
		} else {
			var err error
			if data, err = requestData(r); err != nil {
				return nil, err
			}
		}
	}
	if data == nil {
		data = url.Values{}
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}

	b := &BoundQuery{
		query:          q,
		request:        r,
		ctx:            ctx,
		data:           data,
		db:             cfg.db,
		logger:         observability.LoggerWithTrace(ctx, cfg.logger),
		obs:            q.observability,
		dispatchPrefix: q.dispatchPrefix,
		byName:         make(map[string]*BoundVariable, len(q.variables)),
	}

	for _, v := range q.variables {
		bv := bindVariable(v, q.sources[v.Name], b)
		if bv.Hidden || (bv.Show != nil && !bv.Show(b, bv)) {
			continue
		}
		b.variables = append(b.variables, bv)
		b.byName[strings.ToLower(bv.Name)] = bv
	}
	return b, nil
}

// Variables returns the bound variables in order.
func (b *BoundQuery) Variables() []*BoundVariable {
	return b.variables
}

// Variable returns the bound variable with the given name, compared case
// insensitively.
func (b *BoundQuery) Variable(name string) (*BoundVariable, bool) {
	v, ok := b.byName[strings.ToLower(name)]
	return v, ok
}

// Request returns the request the query is bound to. It is nil for queries
// bound to data only.
func (b *BoundQuery) Request() *http.Request {
	return b.request
}

// Data returns the request data the query is bound to.
func (b *BoundQuery) Data() url.Values {
	return b.data
}

// DB returns the database given with WithDB.
func (b *BoundQuery) DB() *gorm.DB {
	return b.db
}

// AdvancedQuery returns the raw query string from the request data.
func (b *BoundQuery) AdvancedQuery() string {
	return b.data.Get(AdvancedQueryParam)
}

func (b *BoundQuery) isAdvanced() bool {
	return strings.TrimSpace(b.AdvancedQuery()) != ""
}

func (b *BoundQuery) freetextVariables() []*BoundVariable {
	var out []*BoundVariable
	for _, v := range b.variables {
		if v.Freetext {
			out = append(out, v)
		}
	}
	return out
}

// Form returns the companion form bound to the request data. It is built
// on first use.
func (b *BoundQuery) Form() *BoundForm {
	if b.form != nil {
		return b.form
	}

	var fields []form.Field
	if len(b.freetextVariables()) > 0 {
		fields = append(fields, freetextField())
	}
	for _, v := range b.variables {
		if v.Form.Show {
			fields = append(fields, v.formField(v.source))
		}
	}
	b.form = form.New(fields...).Bind(b.ctx, b.db, b.data)
	return b.form
}

// EndpointDispatch serves AJAX calls addressed to the query. key is the
// dispatch path without the leading separator, such as
// "query/gui/field/owner"; value is the search term. ok is false when key
// does not address this query.
func (b *BoundQuery) EndpointDispatch(key, value string) (resp interface{}, ok bool, err error) {
	prefix := "gui" + DispatchPathSeparator
	if b.dispatchPrefix != "" {
		prefix = b.dispatchPrefix + DispatchPathSeparator + prefix
	}
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return nil, false, nil
	}

	ctx, span := b.obs.Tracer().StartEndpoint(b.ctx, key)
	defer span.End()

	resp, ok, err = b.Form().EndpointDispatch(rest, value)
	if err != nil {
		b.obs.Tracer().RecordError(span, err)
		observability.LoggerWithTrace(ctx, b.logger).Error("endpoint dispatch failed", "key", key, "error", err)
	}
	return resp, ok, err
}

// errorCode returns the code recorded in metrics for err.
func errorCode(err error) string {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return string(qerr.Code)
	}
	return string(ErrorCodeInternal)
}
