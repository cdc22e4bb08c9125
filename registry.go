package iommi

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariableFactory creates the variable for a model field. name is the
// variable name derived from the field.
type VariableFactory func(name string, field ModelField) Variable

var (
	factoriesMu   sync.RWMutex
	factoryByType = map[reflect.Type]VariableFactory{}
	factoryByKind = map[reflect.Kind]VariableFactory{}
)

var (
	boolPointerType = reflect.TypeOf((*bool)(nil))
	timeType        = reflect.TypeOf(time.Time{})
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
	uuidType        = reflect.TypeOf(uuid.UUID{})
	nullUUIDType    = reflect.TypeOf(uuid.NullUUID{})

	integerKinds = []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64}
	floatKinds   = []reflect.Kind{reflect.Float32, reflect.Float64}
)

func init() {
	text := func(name string, _ ModelField) Variable { return Text(name) }
	integer := func(name string, _ ModelField) Variable { return Integer(name) }
	float := func(name string, _ ModelField) Variable { return Float(name) }

	factoryByKind[reflect.String] = text
	factoryByKind[reflect.Bool] = func(name string, _ ModelField) Variable { return Boolean(name) }
	for _, k := range integerKinds {
		factoryByKind[k] = integer
	}
	for _, k := range floatKinds {
		factoryByKind[k] = float
	}

	RegisterVariableFactory(boolPointerType, func(name string, _ ModelField) Variable { return BooleanTristate(name) })
	RegisterVariableFactory(timeType, func(name string, _ ModelField) Variable { return DateTime(name) })
	RegisterVariableFactory(decimalType, func(name string, _ ModelField) Variable { return Decimal(name) })
	RegisterVariableFactory(nullDecimalType, func(name string, _ ModelField) Variable { return Decimal(name) })
	RegisterVariableFactory(uuidType, func(name string, _ ModelField) Variable { return UUID(name) })
	RegisterVariableFactory(nullUUIDType, func(name string, _ ModelField) Variable { return UUID(name) })
}

// RegisterVariableFactory sets the factory used for model fields of type t.
// A later registration for the same type replaces the earlier one.
//
// Example registering a factory for a custom type:
//
//	iommi.RegisterVariableFactory(reflect.TypeOf(Color("")), func(name string, _ iommi.ModelField) iommi.Variable {
//	    return iommi.Choice(name, []string{"red", "green", "blue"})
//	})
func RegisterVariableFactory(t reflect.Type, factory VariableFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factoryByType[t] = factory
}

// lookupVariableFactory finds the factory for t: an exact registration
// first, then the pointed-to type, then the underlying kind.
func lookupVariableFactory(t reflect.Type) (VariableFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	if f, ok := factoryByType[t]; ok {
		return f, true
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		if f, ok := factoryByType[t]; ok {
			return f, true
		}
	}
	f, ok := factoryByKind[t.Kind()]
	return f, ok
}
