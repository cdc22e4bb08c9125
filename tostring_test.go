package iommi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToQueryStringFromForm(t *testing.T) {
	db := setupTestDB(t)
	q := newCarQuery(t)

	tests := []struct {
		name string
		data url.Values
		want string
	}{
		{"empty", url.Values{}, ""},
		{"text", url.Values{"make": {"Volvo"}}, `make="Volvo"`},
		{"integer", url.Values{"year": {"2019"}}, "year=2019"},
		{"queryset by key", url.Values{"owner": {"2"}}, `owner="bob"`},
		{"blank values are skipped", url.Values{"make": {"  "}, "year": {""}}, ""},
		{"statements in declaration order", url.Values{"year": {"2019"}, "make": {"Volvo"}}, `make="Volvo" and year=2019`},
		{"free text", url.Values{"term": {"co"}}, `(make:"co" or model:"co")`},
		{"free text last", url.Values{"term": {"co"}, "year": {"2012"}}, `year=2012 and (make:"co" or model:"co")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bq := bindData(t, q, db, tt.data)
			assert.Equal(t, tt.want, bq.ToQueryString())
		})
	}
}

func TestToQueryStringRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	bq := bindData(t, newCarQuery(t), db, url.Values{"make": {"volvo"}, "year": {"2019"}})

	expr, err := bq.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"XC90"}, modelsFor(t, db, expr))

	bq = bindData(t, newCarQuery(t), db, url.Values{"owner": {"1"}, "term": {"3"}})
	assert.Equal(t, `owner="alice" and (make:"3" or model:"3")`, bq.ToQueryString())
	expr, err = bq.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"Model 3"}, modelsFor(t, db, expr))
}

func TestToQueryStringAdvanced(t *testing.T) {
	db := setupTestDB(t)
	q := newCarQuery(t)

	bq := bindData(t, q, db, url.Values{AdvancedQueryParam: {"year>2012"}, "make": {"Volvo"}})
	assert.Equal(t, "year>2012", bq.ToQueryString())
	assert.Equal(t, "year>2012", bq.AdvancedQuery())

	tx, err := bq.Apply(db.Model(&testCar{}))
	require.NoError(t, err)
	var cars []testCar
	require.NoError(t, tx.Order("id").Find(&cars).Error)
	require.Len(t, cars, 2)
	assert.Equal(t, "XC90", cars[0].Model)

	// A blank advanced query falls back to the form.
	bq = bindData(t, q, db, url.Values{AdvancedQueryParam: {"   "}, "make": {"Volvo"}})
	assert.Equal(t, `make="Volvo"`, bq.ToQueryString())
}

func TestToQueryStringInvalidForm(t *testing.T) {
	db := setupTestDB(t)
	bq := bindData(t, newCarQuery(t), db, url.Values{"year": {"abc"}, "make": {"Volvo"}})

	assert.False(t, bq.Form().IsValid())
	assert.Equal(t, "", bq.ToQueryString())

	expr, err := bq.ToFilter()
	require.NoError(t, err)
	assert.True(t, expr.IsEmpty())
}

func TestToQueryStringBoolean(t *testing.T) {
	q, err := NewQuery([]Variable{Boolean("electric", WithField()), BooleanTristate("used", WithField())})
	require.NoError(t, err)

	bq := bindData(t, q, nil, url.Values{"electric": {"on"}, "used": {"0"}})
	assert.Equal(t, "electric=1 and used=0", bq.ToQueryString())

	bq = bindData(t, q, nil, url.Values{"electric": {"false"}})
	assert.Equal(t, "electric=0", bq.ToQueryString())
}

func TestToQueryStringMultiChoice(t *testing.T) {
	db := setupTestDB(t)
	q, err := NewQuery([]Variable{
		MultiChoiceQueryset("owners", &testOwner{}, WithAttr("owner_id"), WithField()),
	})
	require.NoError(t, err)

	bq := bindData(t, q, db, url.Values{"owners": {"1", "2"}})
	assert.Equal(t, `(owners="alice" or owners="bob")`, bq.ToQueryString())

	expr, err := bq.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"V70", "Corolla", "Model 3"}, modelsFor(t, db, expr))
}

func TestToQueryStringOperatorAndTypes(t *testing.T) {
	q, err := NewQuery([]Variable{
		Text("model", WithField(), WithOperator(":")),
		Float("weight", WithField(), WithOperator(">")),
		Date("registered", WithField()),
		Choice("fuel", []string{"petrol", "diesel"}, WithField()),
	})
	require.NoError(t, err)

	bq := bindData(t, q, nil, url.Values{
		"model":      {"rol"},
		"weight":     {"1500.5"},
		"registered": {"2021-06-01"},
		"fuel":       {"diesel"},
	})
	assert.Equal(t, `model:"rol" and weight>1500.5 and registered="2021-06-01" and fuel="diesel"`, bq.ToQueryString())

	expr, err := bq.ToFilter()
	require.NoError(t, err)
	assert.Equal(t,
		`(((model__icontains="rol" AND weight__gt=1500.5) AND registered__iexact=2021-06-01T00:00:00Z) AND fuel__iexact="diesel")`,
		expr.String())

	bq = bindData(t, q, nil, url.Values{"fuel": {"electric"}})
	assert.Equal(t, "", bq.ToQueryString())
}

func TestToQueryStringSkipsHiddenFreetext(t *testing.T) {
	q, err := NewQuery([]Variable{
		Text("make", WithFreetext()),
		Text("vin", WithFreetext(), WithHidden()),
	})
	require.NoError(t, err)

	bq := bindData(t, q, nil, url.Values{"term": {"x"}})
	assert.Equal(t, `(make:"x")`, bq.ToQueryString())
	_, err = bq.ToFilter()
	require.NoError(t, err)
}

func TestToQueryStringFloatRoundTrip(t *testing.T) {
	q, err := NewQuery([]Variable{Float("weight", WithField())})
	require.NoError(t, err)

	tests := []struct {
		raw   string
		query string
		want  float64
	}{
		{"1500.5", "weight=1500.5", 1500.5},
		{"100", "weight=100.0", 100},
		{"1e20", "weight=1e+20", 1e20},
		{"-3.5e300", "weight=-3.5e+300", -3.5e300},
		{"0.000025", "weight=2.5e-05", 0.000025},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			bq := bindData(t, q, nil, url.Values{"weight": {tt.raw}})
			assert.Equal(t, tt.query, bq.ToQueryString())

			expr, err := bq.ToFilter()
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.Value)
		})
	}

	bq := bindData(t, q, nil, url.Values{"weight": {"NaN"}})
	assert.Equal(t, "", bq.ToQueryString())
}

func TestToQueryStringNonASCII(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&testCar{Make: "Škoda", Model: "Octavia", Year: 2018}).Error)

	bq := bindData(t, newCarQuery(t), db, url.Values{"make": {"Škoda"}})
	assert.Equal(t, `make="Škoda"`, bq.ToQueryString())

	expr, err := bq.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, `make__iexact="Škoda"`, expr.String())
	assert.Equal(t, []string{"Octavia"}, modelsFor(t, db, expr))
}
