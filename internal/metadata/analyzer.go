package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm/schema"
)

var naming = schema.NamingStrategy{}

// ModelMetadata holds what the query layer needs to know about a GORM model
type ModelMetadata struct {
	ModelType reflect.Type
	ModelName string
	TableName string
	Fields    []FieldMetadata
	KeyField  *FieldMetadata
}

// FieldMetadata describes one exported struct field of a model
type FieldMetadata struct {
	Name      string
	Type      reflect.Type
	Column    string
	IsKey     bool
	GormTag   string
	IsPointer bool
	// Relations: a struct-typed field referencing another model through a foreign key column
	IsRelation     bool
	RelationTarget reflect.Type
	ForeignKey     string // Go field name holding the foreign key
	// iommi tag options
	Freetext     bool
	Exclude      bool
	Label        string
	ChoiceLookup string
}

// scalarStructs are struct types stored in a single column.
var scalarStructs = map[string]bool{
	"time.Time":           true,
	"decimal.Decimal":     true,
	"decimal.NullDecimal": true,
	"uuid.UUID":           true,
	"uuid.NullUUID":       true,
	"sql.NullString":      true,
	"sql.NullInt64":       true,
	"sql.NullTime":        true,
	"gorm.DeletedAt":      true,
	"datatypes.JSON":      true,
}

// AnalyzeModel extracts metadata from a GORM model struct
func AnalyzeModel(model interface{}) (*ModelMetadata, error) {
	modelType := reflect.TypeOf(model)
	if modelType == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}

	// Handle pointer types
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}

	metadata := &ModelMetadata{
		ModelType: modelType,
		ModelName: modelType.Name(),
		TableName: tableName(model, modelType),
		Fields:    make([]FieldMetadata, 0, modelType.NumField()),
	}

	analyzeFields(modelType, metadata)

	for i := range metadata.Fields {
		if metadata.Fields[i].IsKey {
			metadata.KeyField = &metadata.Fields[i]
			break
		}
	}
	if metadata.KeyField == nil {
		return nil, fmt.Errorf("model %s must have a primary key (use `gorm:\"primaryKey\"` or name a field 'ID')", metadata.ModelName)
	}

	return metadata, nil
}

func analyzeFields(modelType reflect.Type, metadata *ModelMetadata) {
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)

		if !field.IsExported() {
			continue
		}

		// Embedded structs such as gorm.Model contribute their fields
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			analyzeFields(field.Type, metadata)
			continue
		}

		gormTag := field.Tag.Get("gorm")
		if gormTag == "-" {
			continue
		}

		metadata.Fields = append(metadata.Fields, analyzeField(field, gormTag))
	}
}

func analyzeField(field reflect.StructField, gormTag string) FieldMetadata {
	fieldType := field.Type
	property := FieldMetadata{
		Name:    field.Name,
		Type:    fieldType,
		Column:  columnName(field.Name, gormTag),
		GormTag: gormTag,
	}

	if fieldType.Kind() == reflect.Ptr {
		property.IsPointer = true
		fieldType = fieldType.Elem()
	}

	if hasGormOption(gormTag, "primarykey") || (field.Name == "ID" && !strings.Contains(strings.ToLower(gormTag), "primarykey:false")) {
		property.IsKey = true
	}

	if fieldType.Kind() == reflect.Struct && !scalarStructs[fieldType.String()] {
		property.IsRelation = true
		property.RelationTarget = fieldType
		property.ForeignKey = gormOption(gormTag, "foreignkey")
		if property.ForeignKey == "" {
			property.ForeignKey = field.Name + "ID"
		}
	}

	analyzeIommiTags(&property, field)
	return property
}

// analyzeIommiTags processes the comma separated options of the iommi tag
func analyzeIommiTags(property *FieldMetadata, field reflect.StructField) {
	tag := field.Tag.Get("iommi")
	if tag == "" {
		return
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "freetext":
			property.Freetext = true
		case part == "-", part == "exclude":
			property.Exclude = true
		case strings.HasPrefix(part, "label="):
			property.Label = strings.TrimPrefix(part, "label=")
		case strings.HasPrefix(part, "lookup="):
			property.ChoiceLookup = strings.TrimPrefix(part, "lookup=")
		}
	}
}

// FindField returns the field with the given Go name.
func (m *ModelMetadata) FindField(name string) *FieldMetadata {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// ColumnName converts a Go field name to its column name using GORM's default naming.
func ColumnName(name string) string {
	return naming.ColumnName("", name)
}

func columnName(name, gormTag string) string {
	if col := gormOption(gormTag, "column"); col != "" {
		return col
	}
	return ColumnName(name)
}

func tableName(model interface{}, modelType reflect.Type) string {
	if tabler, ok := model.(schema.Tabler); ok {
		return tabler.TableName()
	}
	if tabler, ok := reflect.New(modelType).Interface().(schema.Tabler); ok {
		return tabler.TableName()
	}
	return naming.TableName(modelType.Name())
}

// gormOption returns the value of key in a gorm tag such as "column:name;not null".
func gormOption(gormTag, key string) string {
	for _, part := range strings.Split(gormTag, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), ":")
		if found && strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func hasGormOption(gormTag, key string) bool {
	for _, part := range strings.Split(gormTag, ";") {
		k, _, _ := strings.Cut(strings.TrimSpace(part), ":")
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
