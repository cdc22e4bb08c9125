package form

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/nlstn/go-iommi/internal/filter"
	"github.com/nlstn/go-iommi/internal/metadata"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLookup is the column model choices are displayed and looked up by.
const DefaultLookup = "name"

// Record is one model row loaded as a map of column values.
type Record map[string]interface{}

// ModelChoices offers the rows of a GORM model as choices.
type ModelChoices struct {
	Model        interface{}
	KeyColumn    string
	LookupColumn string
	Scope        func(*gorm.DB) *gorm.DB

	keyKind reflect.Kind
}

// NewModelChoices describes the rows of model. lookupColumn defaults to DefaultLookup.
func NewModelChoices(model interface{}, lookupColumn string, scope func(*gorm.DB) *gorm.DB) (*ModelChoices, error) {
	meta, err := metadata.AnalyzeModel(model)
	if err != nil {
		return nil, err
	}
	if lookupColumn == "" {
		lookupColumn = DefaultLookup
	}
	keyType := meta.KeyField.Type
	if keyType.Kind() == reflect.Ptr {
		keyType = keyType.Elem()
	}
	return &ModelChoices{
		Model:        model,
		KeyColumn:    meta.KeyField.Column,
		LookupColumn: lookupColumn,
		Scope:        scope,
		keyKind:      keyType.Kind(),
	}, nil
}

func (c *ModelChoices) query(db *gorm.DB) *gorm.DB {
	tx := db.Model(c.Model)
	if c.Scope != nil {
		tx = tx.Scopes(c.Scope)
	}
	return tx
}

func (c *ModelChoices) take(db *gorm.DB, column string, value interface{}) (Record, error) {
	row := map[string]interface{}{}
	err := filter.Apply(c.query(db), filter.Compare(column, filter.Exact, value)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%v %w", value, ErrNoChoice)
	}
	if err != nil {
		return nil, err
	}
	return Record(row), nil
}

// Get loads the row with the given primary key.
func (c *ModelChoices) Get(db *gorm.DB, key string) (Record, error) {
	var value interface{} = key
	switch c.keyKind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %w", key, ErrNoChoice)
		}
		value = n
	}
	return c.take(db, c.KeyColumn, value)
}

// Lookup loads the row whose lookup column equals value.
func (c *ModelChoices) Lookup(db *gorm.DB, value string) (Record, error) {
	return c.take(db, c.LookupColumn, value)
}

// Search returns up to limit rows whose lookup column contains term.
func (c *ModelChoices) Search(db *gorm.DB, term string, limit int) ([]Record, error) {
	var rows []map[string]interface{}
	tx := filter.Apply(c.query(db), filter.Compare(c.LookupColumn, filter.IContains, term))
	order := clause.OrderByColumn{Column: clause.Column{Name: c.LookupColumn}}
	if err := tx.Order(order).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

// Key returns the primary key of row as a string.
func (c *ModelChoices) Key(row Record) string {
	return fmt.Sprint(row[c.KeyColumn])
}

// Label returns the lookup column of row as a string.
func (c *ModelChoices) Label(row Record) string {
	return fmt.Sprint(row[c.LookupColumn])
}
