package form

import (
	"fmt"
	"strings"
)

// ChoicesPageSize bounds the rows returned by one choice endpoint call.
const ChoicesPageSize = 20

// Choice is one entry of a choice endpoint response.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChoicesResponse is the JSON body returned by choice endpoints.
type ChoicesResponse struct {
	Results    []Choice `json:"results"`
	Pagination struct {
		More bool `json:"more"`
	} `json:"pagination"`
}

// EndpointDispatch serves AJAX calls addressed to the form. The only
// endpoint is field/<name>, which lists the choices of a field matching
// term. ok is false when key addresses nothing in this form.
func (b *Bound) EndpointDispatch(key, term string) (resp interface{}, ok bool, err error) {
	name, found := strings.CutPrefix(key, "field/")
	if !found {
		return nil, false, nil
	}
	f, found := b.byName[name]
	if !found {
		return nil, false, nil
	}

	out := &ChoicesResponse{Results: []Choice{}}
	switch f.Kind {
	case KindChoice:
		needle := strings.ToLower(term)
		for _, c := range f.Choices {
			if strings.Contains(strings.ToLower(c), needle) {
				out.Results = append(out.Results, Choice{ID: c, Text: c})
			}
		}
	case KindChoiceQueryset, KindMultiChoiceQueryset:
		if f.Source == nil || b.db == nil {
			return nil, true, ErrNoDatabase
		}
		rows, err := f.Source.Search(b.db.WithContext(b.ctx), term, ChoicesPageSize+1)
		if err != nil {
			return nil, true, err
		}
		if len(rows) > ChoicesPageSize {
			rows = rows[:ChoicesPageSize]
			out.Pagination.More = true
		}
		for _, row := range rows {
			out.Results = append(out.Results, Choice{ID: f.Source.Key(row), Text: f.Source.Label(row)})
		}
	default:
		return nil, true, fmt.Errorf("%w: field %s has no choices", ErrUnknownField, name)
	}
	return out, true, nil
}
