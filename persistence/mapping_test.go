package persistence_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

type serial struct {
	Number uint32 `db:"number,pk"`
}

type code struct {
	Value int8 `db:"value,pk"`
}

func todoMapping(t *testing.T) *persistence.Mapping {
	t.Helper()

	return persistence.NewRegistry().MustRegister(&todo{}, "todos")
}

func Test_Entity_AcceptsOnlyPointersToTheMappedType(t *testing.T) {
	// setup
	mapping := todoMapping(t)

	// act
	value, err := mapping.Entity(&todo{Title: "write tests"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "write tests", value.FieldByName("Title").String())
	assert.True(t, value.CanSet())

	for _, invalid := range []any{todo{}, (*todo)(nil), &membership{}, nil} {
		_, err = mapping.Entity(invalid)
		assert.ErrorIs(t, err, persistence.ErrNotAStruct)
	}
}

func Test_Values_EncodesJSONColumns(t *testing.T) {
	// setup
	mapping := todoMapping(t)
	entity := &todo{ID: 3, Title: "write tests", Labels: map[string]string{"prio": "high"}}
	value, err := mapping.Entity(entity)
	require.NoError(t, err)

	// act
	values, err := mapping.Values(value)

	// assert
	require.NoError(t, err)
	require.Len(t, values, 5)
	assert.Equal(t, int64(3), values[0])
	assert.Equal(t, "write tests", values[1])
	assert.Equal(t, false, values[2])
	assert.JSONEq(t, `{"prio":"high"}`, values[3].(string))
	assert.Equal(t, []any{int64(3)}, mapping.PrimaryKeyValues(value))
}

func Test_ScanTargets_DecodesJSONColumns(t *testing.T) {
	// setup
	mapping := todoMapping(t)
	value := mapping.New().Elem()
	labels, _ := mapping.Column("labels")
	title, _ := mapping.Column("title")

	// act
	targets, finish := mapping.ScanTargets(value, []persistence.Column{title, labels})
	*targets[0].(*string) = "write tests"
	*targets[1].(*[]byte) = []byte(`{"prio":"low"}`)
	err := finish()

	// assert
	require.NoError(t, err)
	entity := value.Addr().Interface().(*todo)
	assert.Equal(t, "write tests", entity.Title)
	assert.Equal(t, map[string]string{"prio": "low"}, entity.Labels)
}

func Test_ScanTargets_ReportsBrokenJSON(t *testing.T) {
	// setup
	mapping := todoMapping(t)
	value := mapping.New().Elem()
	labels, _ := mapping.Column("labels")

	// act
	targets, finish := mapping.ScanTargets(value, []persistence.Column{labels})
	*targets[0].(*[]byte) = []byte(`{"prio":`)
	err := finish()

	// assert
	assert.ErrorIs(t, err, persistence.ErrScanningDBRowFailed)
}

func Test_ConvertPrimaryKey(t *testing.T) {
	// setup
	mapping := todoMapping(t)

	// act
	fromInt, err := mapping.ConvertPrimaryKey([]any{3})
	require.NoError(t, err)
	fromInt64, err := mapping.ConvertPrimaryKey([]any{int64(3)})
	require.NoError(t, err)
	_, arityErr := mapping.ConvertPrimaryKey([]any{3, 4})
	_, typeErr := mapping.ConvertPrimaryKey([]any{"three"})
	_, nilErr := mapping.ConvertPrimaryKey([]any{nil})

	// assert
	assert.Equal(t, []any{int64(3)}, fromInt)
	assert.Equal(t, mapping.IdentityKey(fromInt), mapping.IdentityKey(fromInt64))
	assert.ErrorIs(t, arityErr, persistence.ErrInvalidPrimaryKey)
	assert.ErrorIs(t, typeErr, persistence.ErrInvalidPrimaryKey)
	assert.ErrorIs(t, nilErr, persistence.ErrInvalidPrimaryKey)
}

func Test_ConvertPrimaryKey_RejectsInexactNumbers(t *testing.T) {
	// setup
	registry := persistence.NewRegistry()
	signed := todoMapping(t)
	unsigned := registry.MustRegister(&serial{}, "serials")
	small := registry.MustRegister(&code{}, "codes")

	testCases := []struct {
		name    string
		mapping *persistence.Mapping
		value   any
		want    any
	}{
		{name: "whole float to int64", mapping: signed, value: 2.0, want: int64(2)},
		{name: "fractional float to int64", mapping: signed, value: 1.9},
		{name: "huge uint64 to int64", mapping: signed, value: uint64(math.MaxUint64)},
		{name: "int to uint32", mapping: unsigned, value: 5, want: uint32(5)},
		{name: "negative int to uint32", mapping: unsigned, value: -1},
		{name: "negative float to uint32", mapping: unsigned, value: -1.0},
		{name: "int above uint32", mapping: unsigned, value: int64(math.MaxUint32) + 1},
		{name: "int8 in range", mapping: small, value: 127, want: int8(127)},
		{name: "int8 overflow", mapping: small, value: 128},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			converted, err := tc.mapping.ConvertPrimaryKey([]any{tc.value})

			// assert
			if tc.want == nil {
				assert.ErrorIs(t, err, persistence.ErrInvalidPrimaryKey)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, []any{tc.want}, converted)
		})
	}
}

func Test_IdentityKey_DistinguishesTablesAndValues(t *testing.T) {
	// setup
	registry := persistence.NewRegistry()
	todos := registry.MustRegister(&todo{}, "todos")
	memberships := registry.MustRegister(&membership{}, "memberships")

	// assert
	assert.NotEqual(t, todos.IdentityKey([]any{int64(1)}), todos.IdentityKey([]any{int64(2)}))
	assert.NotEqual(t,
		memberships.IdentityKey([]any{"a", "b"}),
		memberships.IdentityKey([]any{"b", "a"}),
	)
	assert.Equal(t, reflect.Pointer, todos.New().Kind())
}
