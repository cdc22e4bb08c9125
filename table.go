package iommi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nlstn/go-iommi/internal/metadata"
	"github.com/nlstn/go-iommi/internal/observability"
	"github.com/nlstn/go-iommi/internal/traversal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is one column of a Table.
type Column struct {
	Name        string
	Attr        string
	DisplayName string
	// Filter, when set, makes the column filterable. Its Name and Attr
	// default to the column's.
	Filter *Variable
}

// DeclaredMembers implements the declarative tree node interface.
func (*Column) DeclaredMembers() []traversal.Member { return nil }

func (c *Column) attr() string {
	if c.Attr != "" {
		return c.Attr
	}
	return c.Name
}

// Label returns the display name, derived from the name when unset.
func (c *Column) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return fieldLabel(c.Name)
}

// Table lists the rows of a GORM model, filtered by its Query.
type Table struct {
	Model    interface{}
	Columns  []*Column
	Query    *Query
	Scope    func(*gorm.DB) *gorm.DB
	PageSize int

	meta *metadata.ModelMetadata
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithColumns sets the columns. Without it every field of the model gets a column.
func WithColumns(columns ...Column) TableOption {
	return func(t *Table) {
		t.Columns = make([]*Column, len(columns))
		for i := range columns {
			c := columns[i]
			t.Columns[i] = &c
		}
	}
}

// WithTableQuery sets the query filtering the table. Without it the query
// is derived from the columns that have a Filter.
func WithTableQuery(q *Query) TableOption {
	return func(t *Table) {
		t.Query = q
	}
}

// WithScope restricts the rows of the table.
func WithScope(scope func(*gorm.DB) *gorm.DB) TableOption {
	return func(t *Table) {
		t.Scope = scope
	}
}

// WithPageSize limits the number of rows rendered.
func WithPageSize(n int) TableOption {
	return func(t *Table) {
		t.PageSize = n
	}
}

// NewTable declares a table over model.
func NewTable(model interface{}, opts ...TableOption) (*Table, error) {
	meta, err := metadata.AnalyzeModel(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeclaration, err)
	}
	t := &Table{Model: model, meta: meta}
	for _, opt := range opts {
		opt(t)
	}

	if t.Columns == nil {
		for _, f := range meta.Fields {
			if f.IsRelation || f.Exclude {
				continue
			}
			t.Columns = append(t.Columns, &Column{Name: f.Column, DisplayName: f.Label})
		}
	}

	if t.Query == nil {
		var variables []Variable
		for _, c := range t.Columns {
			if c.Filter == nil {
				continue
			}
			v := *c.Filter
			if v.Name == "" {
				v.Name = c.Name
			}
			if v.Attr == "" && !v.NoAttr {
				v.Attr = c.attr()
			}
			variables = append(variables, v)
		}
		if len(variables) > 0 {
			if t.Query, err = NewQuery(variables); err != nil {
				return nil, err
			}
		}
	}

	if err := traversal.ValidateReservedNames(t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeclaredMembers implements the declarative tree node interface: the
// query, when there is one, then the columns.
func (t *Table) DeclaredMembers() []traversal.Member {
	var members []traversal.Member
	if t.Query != nil {
		members = append(members, traversal.Member{Name: "query", Node: t.Query})
	}
	columns := make(traversal.Namespace, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = traversal.Member{Name: c.Name, Node: c}
	}
	return append(members, traversal.Member{Name: "columns", Node: columns})
}

// BoundTable is a table bound to one request.
type BoundTable struct {
	Table *Table
	Name  string
	Path  string
	Query *BoundQuery
	Rows  []ModelRecord
	// Err is the query error shown above the rows, if any.
	Err error

	ctx context.Context
	db  *gorm.DB
	obs *observability.Config
}

// Bind binds the table and its query to a request.
func (t *Table) Bind(r *http.Request, opts ...BindOption) (*BoundTable, error) {
	return t.bind(r, newBindConfig(opts), "", EndpointDispatchPrefix, nil)
}

func (t *Table) bind(r *http.Request, cfg *bindConfig, path, queryPath string, obs *observability.Config) (*BoundTable, error) {
	bt := &BoundTable{Table: t, Path: path, ctx: context.Background(), db: cfg.db, obs: obs}
	if r != nil {
		bt.ctx = r.Context()
	}
	if t.Query != nil {
		bq, err := t.Query.bind(r, cfg)
		if err != nil {
			return nil, err
		}
		bq.dispatchPrefix = queryPath
		if bq.obs == nil {
			bq.obs = obs
		}
		bt.Query = bq
	}
	return bt, nil
}

// Load fetches the rows matching the request. A query error is kept in Err
// and leaves the table empty.
func (bt *BoundTable) Load() error {
	if bt.db == nil {
		return fmt.Errorf("%w: table %s has no database", ErrDeclaration, bt.Table.meta.ModelName)
	}

	ctx, span := bt.obs.Tracer().StartTableRender(bt.ctx, bt.Table.meta.TableName)
	defer span.End()
	timing := observability.StartServerTiming(ctx, "table-load")
	defer timing.Stop()

	tx := bt.db.WithContext(ctx).Model(bt.Table.Model)
	if bt.Table.Scope != nil {
		tx = tx.Scopes(bt.Table.Scope)
	}
	if bt.Query != nil {
		var err error
		if tx, err = bt.Query.Apply(tx); err != nil {
			bt.Err = err
			bt.Rows = nil
			return nil
		}
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: bt.Table.meta.KeyField.Column}})
	if bt.Table.PageSize > 0 {
		tx = tx.Limit(bt.Table.PageSize)
	}

	var rows []map[string]interface{}
	if err := tx.Find(&rows).Error; err != nil {
		bt.obs.Tracer().RecordError(span, err)
		return err
	}
	bt.Rows = make([]ModelRecord, len(rows))
	for i, row := range rows {
		bt.Rows[i] = ModelRecord(row)
	}
	span.SetAttributes(observability.ResultCountAttr(len(rows)))
	bt.obs.Metrics().RecordResultCount(ctx, bt.Table.meta.TableName, int64(len(rows)))
	return nil
}

// Cell returns the value of column c in row.
func (bt *BoundTable) Cell(row ModelRecord, c *Column) interface{} {
	return row[c.attr()]
}
