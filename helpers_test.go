package iommi

import (
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testOwner struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func (testOwner) TableName() string { return "owners" }

type testCar struct {
	ID       uint   `gorm:"primaryKey"`
	Make     string `iommi:"freetext"`
	Model    string `iommi:"freetext"`
	Year     int
	Electric bool
	OwnerID  *uint
	Owner    *testOwner `iommi:"lookup=name"`
}

func (testCar) TableName() string { return "cars" }

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// setupTestDB seeds two owners and five cars:
//
//	1 Volvo  V70     2005 alice
//	2 Volvo  XC90    2019
//	3 Toyota Corolla 2012 bob
//	4 Tesla  Model 3 2020 alice (electric)
//	5 Ford   Focus   2012
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&testOwner{}, &testCar{}))

	owners := []testOwner{{Name: "alice"}, {Name: "bob"}}
	require.NoError(t, db.Create(&owners).Error)
	alice, bob := owners[0].ID, owners[1].ID

	cars := []testCar{
		{Make: "Volvo", Model: "V70", Year: 2005, OwnerID: &alice},
		{Make: "Volvo", Model: "XC90", Year: 2019},
		{Make: "Toyota", Model: "Corolla", Year: 2012, OwnerID: &bob},
		{Make: "Tesla", Model: "Model 3", Year: 2020, Electric: true, OwnerID: &alice},
		{Make: "Ford", Model: "Focus", Year: 2012},
	}
	require.NoError(t, db.Create(&cars).Error)
	return db
}

func carVariables() []Variable {
	return []Variable{
		Text("make", WithFreetext(), WithField()),
		Text("model", WithFreetext()),
		Integer("year", WithField()),
		Boolean("electric"),
		ChoiceQueryset("owner", &testOwner{}, WithAttr("owner_id"), WithField()),
	}
}

func newCarQuery(t *testing.T, extra ...Variable) *Query {
	t.Helper()
	q, err := NewQuery(append(carVariables(), extra...))
	require.NoError(t, err)
	return q
}

func bindData(t *testing.T, q *Query, db *gorm.DB, data url.Values) *BoundQuery {
	t.Helper()
	bq, err := q.Bind(nil, WithDB(db), WithData(data), WithLogger(discardLogger))
	require.NoError(t, err)
	return bq
}

// modelsMatching returns the model names of the cars matching query, in id order.
func modelsMatching(t *testing.T, db *gorm.DB, bq *BoundQuery, query string) []string {
	t.Helper()
	expr, err := bq.Parse(query)
	require.NoError(t, err)
	return modelsFor(t, db, expr)
}

func modelsFor(t *testing.T, db *gorm.DB, expr *Filter) []string {
	t.Helper()
	var cars []testCar
	require.NoError(t, ApplyFilter(db.Model(&testCar{}), expr).Order("id").Find(&cars).Error)
	models := make([]string, 0, len(cars))
	for _, c := range cars {
		models = append(models, c.Model)
	}
	return models
}
