package entity

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int64
	Name string
}

type order struct {
	ID int64
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(user{}, Mapping{Table: "users", Source: "mysql"})
	require.NoError(t, err)

	m, err := reg.Lookup(user{})
	require.NoError(t, err)
	assert.Equal(t, "users", m.Table)
	assert.Equal(t, "mysql", m.Source)

	// Pointer and value resolve to the same type
	m, err = reg.Lookup(&user{})
	require.NoError(t, err)
	assert.Equal(t, "users", m.Table)

	table, err := reg.TableOf(&user{})
	require.NoError(t, err)
	assert.Equal(t, "users", table)

	source, err := reg.SourceOf(user{})
	require.NoError(t, err)
	assert.Equal(t, "mysql", source)
}

func TestLookupNotRegistered(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup(order{})
	require.Error(t, err)

	var notRegistered *ErrNotRegistered
	require.True(t, errors.As(err, &notRegistered))
	assert.Equal(t, reflect.TypeOf(order{}), notRegistered.Type)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegisterErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(user{}, Mapping{Table: "users"}))

	tests := []struct {
		name    string
		entity  interface{}
		mapping Mapping
	}{
		{
			name:    "nil entity",
			entity:  nil,
			mapping: Mapping{Table: "users"},
		},
		{
			name:    "empty table",
			entity:  order{},
			mapping: Mapping{},
		},
		{
			name:    "duplicate type",
			entity:  &user{},
			mapping: Mapping{Table: "users_v2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, reg.Register(tt.entity, tt.mapping))
		})
	}
}

func TestTypesAndLen(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(user{}, Mapping{Table: "users"}))
	require.NoError(t, reg.Register(order{}, Mapping{Table: "orders"}))

	assert.Equal(t, 2, reg.Len())

	types := reg.Types()
	require.Len(t, types, 2)
	// Sorted by type name
	assert.Equal(t, "entity.order", types[0].String())
	assert.Equal(t, "entity.user", types[1].String())
}

func TestDefaultRegistry(t *testing.T) {
	type invoice struct{ ID int64 }

	require.NoError(t, Register(invoice{}, Mapping{Table: "invoices", Source: "sqlite"}))

	table, err := TableOf(&invoice{})
	require.NoError(t, err)
	assert.Equal(t, "invoices", table)

	source, err := SourceOf(invoice{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", source)

	m, err := Lookup(invoice{})
	require.NoError(t, err)
	assert.Equal(t, Mapping{Table: "invoices", Source: "sqlite"}, m)
}

func TestLookupNilEntity(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup(nil)
	assert.Error(t, err)
}
