package metadata

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Owner struct {
	ID   uint
	Name string `iommi:"freetext,lookup=name"`
}

type Car struct {
	ID         uint   `gorm:"primaryKey"`
	Make       string `iommi:"freetext,label=Manufacturer"`
	ModelName  string `gorm:"column:model"`
	Price      decimal.Decimal
	Registered time.Time
	OwnerID    *uint
	Owner      *Owner
	Secret     string `iommi:"-"`
	Ignored    string `gorm:"-"`
	internal   string
}

type tabled struct {
	Code string `gorm:"primaryKey"`
}

func (tabled) TableName() string { return "legacy_codes" }

func TestAnalyzeModel(t *testing.T) {
	meta, err := AnalyzeModel(&Car{})
	require.NoError(t, err)

	assert.Equal(t, "Car", meta.ModelName)
	assert.Equal(t, "cars", meta.TableName)
	require.NotNil(t, meta.KeyField)
	assert.Equal(t, "ID", meta.KeyField.Name)
	assert.Equal(t, "id", meta.KeyField.Column)

	names := make([]string, len(meta.Fields))
	for i, f := range meta.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"ID", "Make", "ModelName", "Price", "Registered", "OwnerID", "Owner", "Secret"}, names)

	mk := meta.FindField("Make")
	require.NotNil(t, mk)
	assert.True(t, mk.Freetext)
	assert.Equal(t, "Manufacturer", mk.Label)

	assert.Equal(t, "model", meta.FindField("ModelName").Column)
	assert.Equal(t, "owner_id", meta.FindField("OwnerID").Column)
	assert.False(t, meta.FindField("Price").IsRelation)
	assert.False(t, meta.FindField("Registered").IsRelation)
	assert.True(t, meta.FindField("Secret").Exclude)

	owner := meta.FindField("Owner")
	require.NotNil(t, owner)
	assert.True(t, owner.IsRelation)
	assert.Equal(t, reflect.TypeOf(Owner{}), owner.RelationTarget)
	assert.Equal(t, "OwnerID", owner.ForeignKey)
	assert.Nil(t, meta.FindField("Missing"))
}

func TestAnalyzeModelTableNameAndKey(t *testing.T) {
	meta, err := AnalyzeModel(tabled{})
	require.NoError(t, err)
	assert.Equal(t, "legacy_codes", meta.TableName)
	assert.Equal(t, "code", meta.KeyField.Column)
}

func TestAnalyzeModelErrors(t *testing.T) {
	_, err := AnalyzeModel(42)
	assert.Error(t, err)

	_, err = AnalyzeModel(nil)
	assert.Error(t, err)

	type noKey struct{ Name string }
	_, err = AnalyzeModel(noKey{})
	assert.Error(t, err)
}
