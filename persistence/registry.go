package persistence

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx/reflectx"
)

const (
	tagName       = "db"
	tagOptPK      = "pk"
	tagOptAuto    = "auto"
	tagOptJSON    = "json"
	pathSeparator = "."
)

// Where is an equality filter: every column must equal its value.
type Where map[string]any

// Registry is the explicit mapping table between entity struct types and database tables.
//
// A Registry is built once at startup, handed to the engine when the session factory is created,
// and sealed at that point: every session created afterward sees the same immutable set of mappings.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	mapper  *reflectx.Mapper
	byType  map[reflect.Type]*Mapping
	byTable map[string]*Mapping
	sealed  bool
}

// NewRegistry creates an empty, unsealed Registry.
// Columns are resolved from `db` struct tags; untagged exported fields use their lower-cased name.
func NewRegistry() *Registry {
	return &Registry{
		mapper:  reflectx.NewMapperFunc(tagName, strings.ToLower),
		byType:  make(map[reflect.Type]*Mapping),
		byTable: make(map[string]*Mapping),
	}
}

// Register maps the struct type of entity to the given table.
//
// Supported tag options (comma separated after the column name):
//
//	pk    the column is (part of) the primary key
//	auto  the value is generated by the database; omitted on insert while zero and read back afterward
//	json  the field is stored as JSON
func (r *Registry) Register(entity any, table string) (*Mapping, error) {
	if table == "" {
		return nil, ErrEmptyTableName
	}

	structType, err := structTypeOf(entity)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, errors.Join(ErrRegistrySealed, fmt.Errorf("registering %s", structType))
	}

	if _, exists := r.byType[structType]; exists {
		return nil, errors.Join(ErrDuplicateMapping, fmt.Errorf("type %s", structType))
	}

	if _, exists := r.byTable[table]; exists {
		return nil, errors.Join(ErrDuplicateMapping, fmt.Errorf("table %s", table))
	}

	mapping, err := r.buildMapping(structType, table)
	if err != nil {
		return nil, err
	}

	r.byType[structType] = mapping
	r.byTable[table] = mapping

	return mapping, nil
}

// MustRegister is like Register but panics on error. Intended for package-level setup code.
func (r *Registry) MustRegister(entity any, table string) *Mapping {
	mapping, err := r.Register(entity, table)
	if err != nil {
		panic(err)
	}

	return mapping
}

// MappingFor returns the Mapping of the entity's struct type.
func (r *Registry) MappingFor(entity any) (*Mapping, error) {
	structType, err := structTypeOf(entity)
	if err != nil {
		return nil, err
	}

	return r.MappingForType(structType)
}

// MappingForType returns the Mapping of a struct type (pointer types are dereferenced).
func (r *Registry) MappingForType(t reflect.Type) (*Mapping, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, ok := r.byType[t]
	if !ok {
		return nil, errors.Join(ErrUnmappedEntity, fmt.Errorf("type %v", t))
	}

	return mapping, nil
}

// MappingForTable returns the Mapping registered for the table.
func (r *Registry) MappingForTable(table string) (*Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, ok := r.byTable[table]

	return mapping, ok
}

// Mappings returns all mappings ordered by table name.
func (r *Registry) Mappings() []*Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mappings := make([]*Mapping, 0, len(r.byTable))
	for _, mapping := range r.byTable {
		mappings = append(mappings, mapping)
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Table < mappings[j].Table
	})

	return mappings
}

// Seal prevents further registrations. Sealing twice is a no-op.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
}

// IsSealed reports whether Seal was called.
func (r *Registry) IsSealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sealed
}

func (r *Registry) buildMapping(structType reflect.Type, table string) (*Mapping, error) {
	structMap := r.mapper.TypeMap(structType)

	mapping := &Mapping{
		Table:  table,
		Type:   structType,
		byName: make(map[string]int),
	}

	for _, fieldInfo := range structMap.Index {
		// embedded structs contribute their promoted fields, nested struct fields are single columns
		if fieldInfo.Embedded || strings.Contains(fieldInfo.Path, pathSeparator) {
			continue
		}

		column := Column{
			Name:  fieldInfo.Name,
			Field: fieldInfo.Field.Name,
			Type:  fieldInfo.Field.Type,
			Index: fieldInfo.Index,
		}
		_, column.PrimaryKey = fieldInfo.Options[tagOptPK]
		_, column.Auto = fieldInfo.Options[tagOptAuto]
		_, column.JSON = fieldInfo.Options[tagOptJSON]

		if _, exists := mapping.byName[column.Name]; exists {
			return nil, errors.Join(ErrDuplicateMapping, fmt.Errorf("column %s of %s", column.Name, structType))
		}

		mapping.byName[column.Name] = len(mapping.Columns)
		mapping.Columns = append(mapping.Columns, column)

		if column.PrimaryKey {
			mapping.PrimaryKey = append(mapping.PrimaryKey, column)
		}
	}

	if len(mapping.PrimaryKey) == 0 {
		return nil, errors.Join(ErrNoPrimaryKey, fmt.Errorf("type %s", structType))
	}

	return mapping, nil
}

func structTypeOf(entity any) (reflect.Type, error) {
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Join(ErrNotAStruct, fmt.Errorf("got %T", entity))
	}

	return t, nil
}
