package iommi

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"

	"github.com/nlstn/go-iommi/internal/form"
	"github.com/nlstn/go-iommi/internal/observability"
	"github.com/nlstn/go-iommi/internal/traversal"
)

// Fragment is a piece of static content on a page. Text is escaped when
// rendered, HTML is not.
type Fragment struct {
	Text string
	HTML template.HTML
}

// DeclaredMembers implements the declarative tree node interface.
func (*Fragment) DeclaredMembers() []traversal.Member { return nil }

// NewFragment returns a fragment rendering text escaped.
func NewFragment(text string) *Fragment {
	return &Fragment{Text: text}
}

// HTMLFragment returns a fragment rendering trusted HTML as is.
func HTMLFragment(html template.HTML) *Fragment {
	return &Fragment{HTML: html}
}

func (f *Fragment) render() template.HTML {
	if f.HTML != "" {
		return f.HTML
	}
	return template.HTML(template.HTMLEscapeString(f.Text))
}

// Page is the root of a declarative tree of parts.
type Page struct {
	Parts []traversal.Member

	observability *observability.Config
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithPageObservability enables tracing and metrics for the tables of the page.
func WithPageObservability(o *Observability) PageOption {
	return func(p *Page) {
		p.observability = o.config()
	}
}

// Part names a member of a page.
func Part(name string, node traversal.Node) traversal.Member {
	return traversal.Member{Name: name, Node: node}
}

// NewPage declares a page. Reserved names and parts resolving to the same
// path are rejected here rather than when a request is served.
//
// Example:
//
//	page, err := iommi.NewPage(
//	    []iommi.Member{
//	        iommi.Part("title", iommi.NewFragment("Cars")),
//	        iommi.Part("cars", carsTable),
//	    },
//	)
func NewPage(parts []traversal.Member, opts ...PageOption) (*Page, error) {
	p := &Page{Parts: parts}
	for _, opt := range opts {
		opt(p)
	}
	if err := traversal.ValidateReservedNames(p); err != nil {
		return nil, err
	}
	if _, err := traversal.BuildLongPathByPath(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeclaredMembers implements the declarative tree node interface.
func (p *Page) DeclaredMembers() []traversal.Member {
	return p.Parts
}

// BoundPage is a page bound to one request.
type BoundPage struct {
	Page   *Page
	Tree   *traversal.Bound
	Tables []*BoundTable

	ctx  context.Context
	data url.Values
}

// Bind resolves the paths of the page and binds its tables to the request.
func (p *Page) Bind(r *http.Request, opts ...BindOption) (*BoundPage, error) {
	cfg := newBindConfig(opts)
	if !cfg.hasData && r != nil {
		data, err := requestData(r)
		if err != nil {
			return nil, err
		}
		cfg.data, cfg.hasData = data, true
	}

	tree, err := traversal.Bind(p)
	if err != nil {
		return nil, err
	}

	bp := &BoundPage{Page: p, Tree: tree, ctx: context.Background(), data: cfg.data}
	if r != nil {
		bp.ctx = r.Context()
	}

	var bindErr error
	tree.Walk(func(n *traversal.Bound) {
		t, ok := n.Node.(*Table)
		if !ok || bindErr != nil {
			return
		}
		queryPath := ""
		for _, c := range n.Children {
			if c.Node == t.Query && t.Query != nil {
				queryPath = c.Path
			}
		}
		bt, err := t.bind(r, cfg, n.Path, queryPath, p.observability)
		if err != nil {
			bindErr = err
			return
		}
		bt.Name = n.Name
		bp.Tables = append(bp.Tables, bt)
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return bp, nil
}

// Paths returns the short path to long path table of the bound tree.
func (bp *BoundPage) Paths() map[string]string {
	return bp.Tree.Paths()
}

// DebugPath is one entry of the debug tree endpoint.
type DebugPath struct {
	Path       string `json:"path"`
	LongPath   string `json:"long_path"`
	DunderPath string `json:"dunder_path"`
	Type       string `json:"type"`
}

func (bp *BoundPage) debugTree() []DebugPath {
	var out []DebugPath
	bp.Tree.Walk(func(n *traversal.Bound) {
		out = append(out, DebugPath{
			Path:       n.Path,
			LongPath:   n.LongPath,
			DunderPath: n.DunderPath,
			Type:       fmt.Sprintf("%T", n.Node),
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].LongPath < out[j].LongPath })
	return out
}

// EndpointDispatch serves the AJAX call addressed by key, a dispatch path
// without its leading separator. "debug_tree" lists the bound paths; other
// keys are offered to the queries of the page's tables.
func (bp *BoundPage) EndpointDispatch(key, value string) (interface{}, bool, error) {
	if key == "debug_tree" {
		return bp.debugTree(), true, nil
	}
	for _, bt := range bp.Tables {
		if bt.Query == nil {
			continue
		}
		if resp, ok, err := bt.Query.EndpointDispatch(key, value); ok {
			return resp, true, err
		}
	}
	return nil, false, nil
}

func fieldLabel(name string) string {
	return form.Field{Name: name}.Label()
}

// Render loads the tables and renders the page as HTML.
func (bp *BoundPage) Render() (template.HTML, error) {
	var parts []template.HTML
	tables := map[*Table]*BoundTable{}
	for _, bt := range bp.Tables {
		tables[bt.Table] = bt
	}

	for _, m := range bp.Page.Parts {
		switch n := m.Node.(type) {
		case *Fragment:
			parts = append(parts, n.render())
		case *Table:
			bt, ok := tables[n]
			if !ok {
				continue
			}
			html, err := bt.Render()
			if err != nil {
				return "", err
			}
			parts = append(parts, html)
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, parts); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<body>
{{- range .}}
{{.}}
{{- end}}
</body>
</html>`))

var tableTemplate = template.Must(template.New("table").Parse(`<div class="table" id="{{.ID}}">
{{- with .Form}}
{{.}}
{{- end}}
{{- if .HasQuery}}
<form method="get" class="advanced">
<input type="text" name="{{.AdvancedParam}}" value="{{.Advanced}}">
<button type="submit">Search</button>
</form>
{{- end}}
{{- with .Error}}
<div class="error">{{.}}</div>
{{- end}}
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</div>`))

// Render loads the rows and renders the table with its filter form.
func (bt *BoundTable) Render() (template.HTML, error) {
	if err := bt.Load(); err != nil {
		return "", err
	}

	view := struct {
		ID            string
		Form          template.HTML
		HasQuery      bool
		AdvancedParam string
		Advanced      string
		Error         string
		Headers       []string
		Rows          [][]string
	}{
		ID:            bt.Name,
		AdvancedParam: AdvancedQueryParam,
	}

	if bt.Query != nil {
		prefix := "/gui/"
		if bt.Query.dispatchPrefix != "" {
			prefix = "/" + bt.Query.dispatchPrefix + prefix
		}
		html, err := bt.Query.Form().Render(form.RenderOptions{EndpointPrefix: prefix})
		if err != nil {
			return "", err
		}
		view.Form = html
		view.HasQuery = true
		view.Advanced = bt.Query.AdvancedQuery()
	}
	if bt.Err != nil {
		view.Error = bt.Err.Error()
	}
	for _, c := range bt.Table.Columns {
		view.Headers = append(view.Headers, c.Label())
	}
	for _, row := range bt.Rows {
		cells := make([]string, len(bt.Table.Columns))
		for i, c := range bt.Table.Columns {
			if v := bt.Cell(row, c); v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		view.Rows = append(view.Rows, cells)
	}

	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
