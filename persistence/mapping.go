package persistence

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
	jsoniter "github.com/json-iterator/go"
)

const identityKeySeparator = "|"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Column is one mapped struct field.
type Column struct {
	Name       string
	Field      string
	Type       reflect.Type
	Index      []int
	PrimaryKey bool
	Auto       bool
	JSON       bool
}

// Mapping describes how one entity struct type corresponds to one table.
// A Mapping is immutable once registered.
type Mapping struct {
	Table      string
	Type       reflect.Type
	Columns    []Column
	PrimaryKey []Column
	byName     map[string]int
}

// Column returns the column with the given name.
func (m *Mapping) Column(name string) (Column, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Column{}, false
	}

	return m.Columns[i], true
}

// ColumnNames returns all column names in field order.
func (m *Mapping) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, column := range m.Columns {
		names[i] = column.Name
	}

	return names
}

// New allocates a zero entity and returns the pointer.
func (m *Mapping) New() reflect.Value {
	return reflect.New(m.Type)
}

// Entity validates that entity is a non-nil pointer to the mapped struct type and returns the addressable struct value.
func (m *Mapping) Entity(entity any) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != m.Type {
		return reflect.Value{}, errors.Join(ErrNotAStruct, fmt.Errorf("want *%s, got %T", m.Type, entity))
	}

	return v.Elem(), nil
}

// Field returns the struct field of the column, allocating nil embedded pointers on the way.
func (m *Mapping) Field(v reflect.Value, column Column) reflect.Value {
	return reflectx.FieldByIndexes(v, column.Index)
}

// Value returns the database value of one column. JSON columns are encoded to a string.
func (m *Mapping) Value(v reflect.Value, column Column) (any, error) {
	field := m.Field(v, column)

	if !column.JSON {
		return field.Interface(), nil
	}

	encoded, err := jsonAPI.Marshal(field.Interface())
	if err != nil {
		return nil, errors.Join(ErrEncodingColumnFailed, fmt.Errorf("%s.%s", m.Table, column.Name), err)
	}

	return string(encoded), nil
}

// Values returns the database values of all columns in column order.
func (m *Mapping) Values(v reflect.Value) ([]any, error) {
	values := make([]any, len(m.Columns))

	for i, column := range m.Columns {
		value, err := m.Value(v, column)
		if err != nil {
			return nil, err
		}

		values[i] = value
	}

	return values, nil
}

// IsZero reports whether the column's field holds its zero value.
func (m *Mapping) IsZero(v reflect.Value, column Column) bool {
	return m.Field(v, column).IsZero()
}

// PrimaryKeyValues returns the primary key values of the entity in primary key order.
func (m *Mapping) PrimaryKeyValues(v reflect.Value) []any {
	values := make([]any, len(m.PrimaryKey))
	for i, column := range m.PrimaryKey {
		values[i] = m.Field(v, column).Interface()
	}

	return values
}

// ConvertPrimaryKey checks the arity of the supplied key values and converts them to the field types,
// so that Get(ctx, s, 1) finds an entity whose ID is an int64.
func (m *Mapping) ConvertPrimaryKey(values []any) ([]any, error) {
	if len(values) != len(m.PrimaryKey) {
		return nil, errors.Join(
			ErrInvalidPrimaryKey,
			fmt.Errorf("%s wants %d values, got %d", m.Table, len(m.PrimaryKey), len(values)),
		)
	}

	converted := make([]any, len(values))

	for i, column := range m.PrimaryKey {
		value, err := convertTo(values[i], column.Type)
		if err != nil {
			return nil, errors.Join(ErrInvalidPrimaryKey, fmt.Errorf("%s.%s", m.Table, column.Name), err)
		}

		converted[i] = value
	}

	return converted, nil
}

// IdentityKey builds the identity map key of a converted primary key.
func (m *Mapping) IdentityKey(primaryKey []any) string {
	parts := make([]string, 0, len(primaryKey)+1)
	parts = append(parts, m.Table)

	for _, value := range primaryKey {
		parts = append(parts, fmt.Sprintf("%T:%v", value, value))
	}

	return strings.Join(parts, identityKeySeparator)
}

// ScanTargets returns one scan destination per column of columns, pointing into v.
// JSON columns are scanned into a buffer; the returned finish func decodes them and must be called after Scan.
func (m *Mapping) ScanTargets(v reflect.Value, columns []Column) ([]any, func() error) {
	targets := make([]any, len(columns))
	decoders := make([]func() error, 0)

	for i, column := range columns {
		field := m.Field(v, column)

		if !column.JSON {
			targets[i] = field.Addr().Interface()
			continue
		}

		buffer := new([]byte)
		targets[i] = buffer
		name := column.Name
		decoders = append(decoders, func() error {
			if len(*buffer) == 0 {
				return nil
			}

			if err := jsonAPI.Unmarshal(*buffer, field.Addr().Interface()); err != nil {
				return errors.Join(ErrScanningDBRowFailed, fmt.Errorf("%s.%s", m.Table, name), err)
			}

			return nil
		})
	}

	finish := func() error {
		for _, decode := range decoders {
			if err := decode(); err != nil {
				return err
			}
		}

		return nil
	}

	return targets, finish
}

func convertTo(value any, target reflect.Type) (any, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil, fmt.Errorf("nil is not a valid %s", target)
	}

	switch {
	case v.Type().AssignableTo(target):
		return v.Convert(target).Interface(), nil
	case isNumeric(v.Kind()) && isNumeric(target.Kind()):
		return convertNumber(v, target)
	case v.Kind() == target.Kind() && v.Type().ConvertibleTo(target):
		return v.Convert(target).Interface(), nil
	default:
		return nil, fmt.Errorf("%T is not convertible to %s", value, target)
	}
}

// convertNumber converts between numeric kinds only when the value is represented exactly.
func convertNumber(v reflect.Value, target reflect.Type) (any, error) {
	converted := reflect.New(target).Elem()

	switch {
	case converted.CanFloat():
		var f float64

		switch {
		case v.CanInt():
			f = float64(v.Int())
		case v.CanUint():
			f = float64(v.Uint())
		default:
			f = v.Float()
		}

		if converted.OverflowFloat(f) {
			return nil, fmt.Errorf("%v overflows %s", v, target)
		}

		converted.SetFloat(f)

	case converted.CanInt():
		var i int64

		switch {
		case v.CanInt():
			i = v.Int()
		case v.CanUint():
			if v.Uint() > math.MaxInt64 {
				return nil, fmt.Errorf("%v overflows %s", v, target)
			}

			i = int64(v.Uint()) //nolint:gosec // checked above
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, fmt.Errorf("%v is not a whole %s", v, target)
			}

			i = int64(f)
		}

		if converted.OverflowInt(i) {
			return nil, fmt.Errorf("%v overflows %s", v, target)
		}

		converted.SetInt(i)

	default:
		var u uint64

		switch {
		case v.CanInt():
			if v.Int() < 0 {
				return nil, fmt.Errorf("%v is negative, %s is unsigned", v, target)
			}

			u = uint64(v.Int())
		case v.CanUint():
			u = v.Uint()
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return nil, fmt.Errorf("%v is not a whole %s", v, target)
			}

			u = uint64(f)
		}

		if converted.OverflowUint(u) {
			return nil, fmt.Errorf("%v overflows %s", v, target)
		}

		converted.SetUint(u)
	}

	return converted.Interface(), nil
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
