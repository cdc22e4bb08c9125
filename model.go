package iommi

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/nlstn/go-iommi/internal/metadata"
)

// VariablesFromModel creates one variable per field of a GORM model using
// the registered variable factories. The primary key is always skipped.
// include, when not empty, limits the variables to the named fields, and
// exclude drops fields; both take variable names (column names).
//
// Struct fields referencing another model become ChoiceQueryset variables
// filtering the foreign key column; the foreign key field itself is skipped.
// The iommi struct tag refines the result:
//
//	type Car struct {
//	    ID      uint
//	    Make    string `iommi:"freetext"`
//	    Model   string `iommi:"freetext,label=Model name"`
//	    OwnerID uint
//	    Owner   Owner  `iommi:"lookup=name"`
//	    Secret  string `iommi:"-"`
//	}
func VariablesFromModel(model interface{}, include, exclude []string) ([]Variable, error) {
	meta, err := metadata.AnalyzeModel(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeclaration, err)
	}

	foreignKeys := map[string]bool{}
	for _, f := range meta.Fields {
		if f.IsRelation {
			foreignKeys[f.ForeignKey] = true
		}
	}

	var variables []Variable
	for _, f := range meta.Fields {
		if f.IsKey || f.Exclude || foreignKeys[f.Name] {
			continue
		}
		name := f.Column
		if len(include) > 0 && !slices.Contains(include, name) {
			continue
		}
		if slices.Contains(exclude, name) {
			continue
		}

		v, ok, err := variableFromField(meta, f)
		if err != nil {
			return nil, err
		}
		if ok {
			variables = append(variables, v)
		}
	}
	return variables, nil
}

func variableFromField(meta *metadata.ModelMetadata, f metadata.FieldMetadata) (Variable, bool, error) {
	var v Variable
	if f.IsRelation {
		fk := meta.FindField(f.ForeignKey)
		if fk == nil {
			return v, false, fmt.Errorf("%w: %s.%s has no foreign key field %s", ErrDeclaration, meta.ModelName, f.Name, f.ForeignKey)
		}
		target := reflect.New(f.RelationTarget).Interface()
		v = ChoiceQueryset(f.Column, target, WithAttr(fk.Column))
	} else {
		factory, ok := lookupVariableFactory(f.Type)
		if !ok {
			return v, false, nil
		}
		v = factory(f.Column, f)
	}

	if f.Freetext {
		v.Freetext = true
	}
	if f.Label != "" {
		v.Form.DisplayName = f.Label
	}
	if f.ChoiceLookup != "" {
		v.ValueLookup = f.ChoiceLookup
	}
	return v, true, nil
}

// QueryFromModel creates a query over the variables of a GORM model. See
// VariablesFromModel for include and exclude.
func QueryFromModel(model interface{}, include, exclude []string, opts ...QueryOption) (*Query, error) {
	variables, err := VariablesFromModel(model, include, exclude)
	if err != nil {
		return nil, err
	}
	return NewQuery(variables, opts...)
}
