package form

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type owner struct {
	ID   uint
	Name string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&owner{}))
	require.NoError(t, db.Create(&[]owner{{Name: "alice"}, {Name: "bob"}, {Name: "albert"}}).Error)
	return db
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		kind Kind
		raw  string
		want interface{}
	}{
		{KindText, "hello", "hello"},
		{KindInteger, "42", int64(42)},
		{KindFloat, "1.5", 1.5},
		{KindDecimal, "10.25", decimal.RequireFromString("10.25")},
		{KindBoolean, "on", true},
		{KindBooleanTristate, "0", false},
		{KindDate, "2020-02-29", time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)},
		{KindDateTime, "2020-02-29 10:30", time.Date(2020, 2, 29, 10, 30, 0, 0, time.UTC)},
		{KindTime, "10:30", time.Date(0, 1, 1, 10, 30, 0, 0, time.UTC)},
		{KindEmail, "a@example.com", "a@example.com"},
		{KindURL, "https://example.com/x", "https://example.com/x"},
		{KindUUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := parseValue(context.Background(), nil, Field{Name: "f", Kind: tt.kind}, tt.raw)
			require.NoError(t, err)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKindsInvalid(t *testing.T) {
	tests := []struct {
		kind Kind
		raw  string
	}{
		{KindInteger, "x"},
		{KindFloat, "1,5"},
		{KindDecimal, "ten"},
		{KindBoolean, "maybe"},
		{KindDate, "2020-02-30"},
		{KindEmail, "not an email"},
		{KindURL, "example.com"},
		{KindUUID, "123"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, err := parseValue(context.Background(), nil, Field{Name: "f", Kind: tt.kind}, tt.raw)
			assert.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
		})
	}
}

func TestBind(t *testing.T) {
	f := New(
		Field{Name: "make", Kind: KindChoice, Choices: []string{"Volvo", "Tesla"}},
		Field{Name: "year", Kind: KindInteger},
		Field{Name: "term", Kind: KindText},
	)

	b := f.Bind(context.Background(), nil, url.Values{"make": {"Volvo"}, "year": {" "}})
	require.True(t, b.IsValid())
	mk, ok := b.Field("make")
	require.True(t, ok)
	assert.Equal(t, "Volvo", mk.Value)
	year, _ := b.Field("year")
	assert.True(t, year.IsEmpty())

	b = f.Bind(context.Background(), nil, url.Values{"make": {"Saab"}, "year": {"soon"}})
	assert.False(t, b.IsValid())
	errs := b.Errors()
	assert.Len(t, errs, 2)
	assert.True(t, errors.Is(errs["make"], ErrNoChoice))
}

func TestBindRequired(t *testing.T) {
	f := New(Field{Name: "name", Kind: KindText, Required: true})
	b := f.Bind(context.Background(), nil, url.Values{})
	assert.False(t, b.IsValid())
	assert.Equal(t, ErrRequired, b.Errors()["name"])
}

func TestModelChoices(t *testing.T) {
	db := setupTestDB(t)
	src, err := NewModelChoices(&owner{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "id", src.KeyColumn)
	assert.Equal(t, "name", src.LookupColumn)

	row, err := src.Get(db, "2")
	require.NoError(t, err)
	assert.Equal(t, "bob", src.Label(row))
	assert.Equal(t, "2", src.Key(row))

	_, err = src.Get(db, "99")
	assert.True(t, errors.Is(err, ErrNoChoice))
	_, err = src.Get(db, "abc")
	assert.True(t, errors.Is(err, ErrNoChoice))

	row, err = src.Lookup(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", src.Key(row))

	rows, err := src.Search(db, "AL", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "albert", src.Label(rows[0]))
	assert.Equal(t, "alice", src.Label(rows[1]))
}

func TestModelChoicesScope(t *testing.T) {
	db := setupTestDB(t)
	src, err := NewModelChoices(&owner{}, "name", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("name <> ?", "bob")
	})
	require.NoError(t, err)

	_, err = src.Get(db, "2")
	assert.True(t, errors.Is(err, ErrNoChoice))
}

func TestBindQueryset(t *testing.T) {
	db := setupTestDB(t)
	src, err := NewModelChoices(&owner{}, "", nil)
	require.NoError(t, err)

	f := New(
		Field{Name: "owner", Kind: KindChoiceQueryset, Source: src},
		Field{Name: "owners", Kind: KindMultiChoiceQueryset, Source: src},
	)
	b := f.Bind(context.Background(), db, url.Values{"owner": {"1"}, "owners": {"2", "3"}})
	require.True(t, b.IsValid(), "%v", b.Errors())

	o, _ := b.Field("owner")
	assert.Equal(t, "alice", src.Label(o.Value.(Record)))
	os, _ := b.Field("owners")
	require.Len(t, os.Values, 2)
	assert.Equal(t, "albert", src.Label(os.Values[1].(Record)))

	b = f.Bind(context.Background(), nil, url.Values{"owner": {"1"}})
	assert.False(t, b.IsValid())
}

func TestEndpointDispatch(t *testing.T) {
	db := setupTestDB(t)
	src, err := NewModelChoices(&owner{}, "", nil)
	require.NoError(t, err)

	f := New(
		Field{Name: "owner", Kind: KindChoiceQueryset, Source: src},
		Field{Name: "color", Kind: KindChoice, Choices: []string{"Red", "Green", "Grey"}},
		Field{Name: "term", Kind: KindText},
	)
	b := f.Bind(context.Background(), db, url.Values{})

	resp, ok, err := b.EndpointDispatch("field/owner", "b")
	require.NoError(t, err)
	require.True(t, ok)
	choices := resp.(*ChoicesResponse)
	assert.Equal(t, []Choice{{ID: "3", Text: "albert"}, {ID: "2", Text: "bob"}}, choices.Results)
	assert.False(t, choices.Pagination.More)

	resp, ok, err = b.EndpointDispatch("field/color", "gr")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []Choice{{ID: "Green", Text: "Green"}, {ID: "Grey", Text: "Grey"}}, resp.(*ChoicesResponse).Results)

	_, ok, _ = b.EndpointDispatch("field/missing", "")
	assert.False(t, ok)
	_, ok, _ = b.EndpointDispatch("other", "")
	assert.False(t, ok)

	_, ok, err = b.EndpointDispatch("field/term", "")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	f := New(
		Field{Name: "make", Kind: KindChoice, Choices: []string{"Volvo", "Tesla"}},
		Field{Name: "year", Kind: KindInteger, DisplayName: "Model year"},
		Field{Name: "electric", Kind: KindBooleanTristate},
		Field{Name: "term", Kind: KindText},
	)
	b := f.Bind(context.Background(), nil, url.Values{"make": {"Tesla"}, "year": {"x<y"}, "electric": {"1"}})

	html, err := b.Render(RenderOptions{})
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, `<option value="Tesla" selected>Tesla</option>`)
	assert.Contains(t, out, `<label for="id_year">Model year</label>`)
	assert.Contains(t, out, `value="x&lt;y"`)
	assert.Contains(t, out, `<span class="error">`)
	assert.Contains(t, out, `<option value="1" selected>Yes</option>`)
	assert.Contains(t, out, `<label for="id_term">Term</label>`)
}

func TestDeclaredMembers(t *testing.T) {
	f := New(Field{Name: "a"}, Field{Name: "b"})
	members := f.DeclaredMembers()
	require.Len(t, members, 1)
	assert.Equal(t, "fields", members[0].Name)
	assert.Len(t, members[0].Node.DeclaredMembers(), 2)
}
