package iommi

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paintColour string

type modelWithTypes struct {
	ID         uint `gorm:"primaryKey"`
	Name       string
	Seats      *int
	Weight     float32
	Price      decimal.Decimal
	Serial     uuid.UUID
	Checked    *bool
	BuiltAt    time.Time
	Colour     paintColour
	Notes      []byte
	Internal   string `iommi:"-"`
	LegacyCode string `gorm:"column:legacy"`
}

func TestVariablesFromModel(t *testing.T) {
	variables, err := VariablesFromModel(&testCar{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"make", "model", "year", "electric", "owner"}, variableNames(variables))

	byName := map[string]Variable{}
	for _, v := range variables {
		byName[v.Name] = v
	}

	assert.Equal(t, KindText, byName["make"].Form.Kind)
	assert.True(t, byName["make"].Freetext)
	assert.False(t, byName["year"].Freetext)
	assert.Equal(t, KindInteger, byName["year"].Form.Kind)
	assert.Equal(t, KindBoolean, byName["electric"].Form.Kind)

	owner := byName["owner"]
	assert.Equal(t, KindChoiceQueryset, owner.Form.Kind)
	assert.Equal(t, "owner_id", owner.Attr)
	assert.Equal(t, "name", owner.ValueLookup)
	assert.IsType(t, &testOwner{}, owner.Model)
}

func TestVariablesFromModelIncludeExclude(t *testing.T) {
	variables, err := VariablesFromModel(&testCar{}, []string{"year", "owner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "owner"}, variableNames(variables))

	variables, err = VariablesFromModel(&testCar{}, nil, []string{"make", "electric"})
	require.NoError(t, err)
	assert.Equal(t, []string{"model", "year", "owner"}, variableNames(variables))

	_, err = VariablesFromModel(struct{ Name string }{}, nil, nil)
	assert.ErrorIs(t, err, ErrDeclaration)
}

func TestVariablesFromModelTypes(t *testing.T) {
	variables, err := VariablesFromModel(modelWithTypes{}, nil, nil)
	require.NoError(t, err)

	kinds := map[string]FieldKind{}
	for _, v := range variables {
		kinds[v.Name] = v.Form.Kind
	}
	assert.Equal(t, map[string]FieldKind{
		"name":     KindText,
		"seats":    KindInteger,
		"weight":   KindFloat,
		"price":    KindDecimal,
		"serial":   KindUUID,
		"checked":  KindBooleanTristate,
		"built_at": KindDateTime,
		"colour":   KindText,
		"legacy":   KindText,
	}, kinds)
}

func TestRegisterVariableFactory(t *testing.T) {
	type trim string
	RegisterVariableFactory(reflect.TypeOf(trim("")), func(name string, field ModelField) Variable {
		return Choice(name, []string{"base", "sport"}, WithDisplayName(field.Name))
	})

	type trimmed struct {
		ID   uint
		Trim trim
	}
	variables, err := VariablesFromModel(&trimmed{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, variables, 1)
	assert.Equal(t, KindChoice, variables[0].Form.Kind)
	assert.Equal(t, []string{"base", "sport"}, variables[0].Choices)
	assert.Equal(t, "Trim", variables[0].Form.DisplayName)

	factory, ok := lookupVariableFactory(reflect.TypeOf((*trim)(nil)))
	require.True(t, ok)
	assert.Equal(t, KindChoice, factory("x", ModelField{}).Form.Kind)
}

func TestQueryFromModel(t *testing.T) {
	db := setupTestDB(t)
	q, err := QueryFromModel(&testCar{}, nil, []string{"electric"})
	require.NoError(t, err)
	bq := bindData(t, q, db, nil)

	assert.Equal(t, []string{"V70"}, modelsMatching(t, db, bq, "owner=alice and year<2010"))
	assert.Equal(t, []string{"V70", "XC90"}, modelsMatching(t, db, bq, `"volvo"`))

	_, err = bq.Parse("electric=1")
	requireQueryError(t, err, ErrorCodeUnknownVariable)
}
