package main

import "github.com/nlstn/go-iommi"

// carsPage declares the demo page: a heading and a filterable car table.
func carsPage(pageSize int, obs *iommi.Observability) (*iommi.Page, error) {
	variables, err := iommi.VariablesFromModel(&Car{}, nil, []string{"registered_at"})
	if err != nil {
		return nil, err
	}
	for i := range variables {
		variables[i].Form.Show = true
	}
	variables = append(variables, iommi.Date("registered", iommi.WithAttr("registered_at"), iommi.WithAfter(iommi.Last), iommi.WithField()))

	query, err := iommi.NewQuery(variables, iommi.WithObservability(obs))
	if err != nil {
		return nil, err
	}

	cars, err := iommi.NewTable(&Car{},
		iommi.WithTableQuery(query),
		iommi.WithPageSize(pageSize),
		iommi.WithColumns(
			iommi.Column{Name: "make"},
			iommi.Column{Name: "model"},
			iommi.Column{Name: "year"},
			iommi.Column{Name: "price"},
			iommi.Column{Name: "electric"},
			iommi.Column{Name: "registered", Attr: "registered_at"},
			iommi.Column{Name: "owner", Attr: "owner_id", DisplayName: "Owner id"},
		),
	)
	if err != nil {
		return nil, err
	}

	return iommi.NewPage([]iommi.Member{
		iommi.Part("title", iommi.HTMLFragment("<h1>Cars</h1>")),
		iommi.Part("help", iommi.NewFragment(`Try: year>2010 and (make=volvo or electric=1), or a free text search like "prius".`)),
		iommi.Part("cars", cars),
	}, iommi.WithPageObservability(obs))
}
