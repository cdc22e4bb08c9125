package form

import (
	"bytes"
	"html/template"
	"slices"
)

var formTemplate = template.Must(template.New("form").Parse(`<form method="get"{{if .Action}} action="{{.Action}}"{{end}}>
{{- range .Fields}}
<div class="field">
<label for="id_{{.Name}}">{{.Label}}</label>
{{- if eq .Widget "select"}}
<select id="id_{{.Name}}" name="{{.Name}}"{{if .Multiple}} multiple{{end}}{{if .Endpoint}} data-choices-endpoint="{{.Endpoint}}"{{end}}>
{{- if not .Multiple}}<option value=""></option>{{end}}
{{- range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
</select>
{{- else if eq .Widget "checkbox"}}
<input type="checkbox" id="id_{{.Name}}" name="{{.Name}}" value="1"{{if .Checked}} checked{{end}}>
{{- else}}
<input type="{{.Widget}}" id="id_{{.Name}}" name="{{.Name}}" value="{{.Value}}">
{{- end}}
{{- with .Error}}<span class="error">{{.}}</span>{{end}}
</div>
{{- end}}
<button type="submit">Filter</button>
</form>`))

type option struct {
	Value    string
	Label    string
	Selected bool
}

type renderField struct {
	Name     string
	Label    string
	Widget   string
	Value    string
	Multiple bool
	Checked  bool
	Endpoint string
	Options  []option
	Error    string
}

var inputTypes = map[Kind]string{
	KindInteger:  "number",
	KindFloat:    "number",
	KindDecimal:  "number",
	KindDate:     "date",
	KindDateTime: "datetime-local",
	KindTime:     "time",
	KindEmail:    "email",
	KindURL:      "url",
}

// RenderOptions controls Render.
type RenderOptions struct {
	Action string
	// EndpointPrefix is prepended to field/<name> for AJAX choice endpoints.
	EndpointPrefix string
}

// Render renders the bound form as HTML. Queryset choices are not listed
// inline; the select points at the field's choice endpoint instead, with
// the currently selected rows as options.
func (b *Bound) Render(opts RenderOptions) (template.HTML, error) {
	fields := make([]renderField, 0, len(b.Fields))
	for _, f := range b.Fields {
		rf := renderField{
			Name:   f.Name,
			Label:  f.Label(),
			Widget: "text",
			Value:  f.RawValue(),
		}
		if f.Err != nil {
			rf.Error = f.Err.Error()
		}
		if t, ok := inputTypes[f.Kind]; ok {
			rf.Widget = t
		}

		switch f.Kind {
		case KindChoice:
			rf.Widget = "select"
			for _, c := range f.Choices {
				rf.Options = append(rf.Options, option{Value: c, Label: c, Selected: slices.Contains(f.Raw, c)})
			}
		case KindChoiceQueryset, KindMultiChoiceQueryset:
			rf.Widget = "select"
			rf.Multiple = f.IsList()
			rf.Endpoint = "?" + opts.EndpointPrefix + "field/" + f.Name
			for _, v := range selected(f) {
				if rec, ok := v.(Record); ok && f.Source != nil {
					rf.Options = append(rf.Options, option{Value: f.Source.Key(rec), Label: f.Source.Label(rec), Selected: true})
				}
			}
		case KindBooleanTristate:
			rf.Widget = "select"
			current, _ := f.Value.(bool)
			rf.Options = []option{
				{Value: "1", Label: "Yes", Selected: f.Value != nil && current},
				{Value: "0", Label: "No", Selected: f.Value != nil && !current},
			}
		case KindBoolean:
			rf.Widget = "checkbox"
			rf.Checked, _ = f.Value.(bool)
		}
		fields = append(fields, rf)
	}

	var buf bytes.Buffer
	err := formTemplate.Execute(&buf, map[string]interface{}{
		"Action": opts.Action,
		"Fields": fields,
	})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func selected(f *BoundField) []interface{} {
	if f.IsList() {
		return f.Values
	}
	if f.Value == nil {
		return nil
	}
	return []interface{}{f.Value}
}
