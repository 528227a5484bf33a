package binder

import (
	"testing"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/stretchr/testify/assert"
)

type server struct {
	Name    string
	Address string
	secret  string
}

type memberMap map[string]any

func (m memberMap) Member(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func TestGetMember(t *testing.T) {
	srv := &server{Name: "local", Address: "http://localhost", secret: "x"}

	tests := []struct {
		name string
		v    any
		key  string
		want any
	}{
		{"struct field ignores case", srv, "address", "http://localhost"},
		{"unexported field", srv, "secret", value.MissingMember},
		{"unknown field", srv, "port", value.MissingMember},
		{"map key", map[string]any{"id": float64(1)}, "id", float64(1)},
		{"missing map key", map[string]any{}, "id", value.MissingMember},
		{"non-string map", map[int]any{1: "x"}, "1", value.MissingMember},
		{"member provider", memberMap{"a": "b"}, "a", "b"},
		{"member provider missing", memberMap{}, "a", value.MissingMember},
		{"nil", nil, "a", value.MissingMember},
		{"scalar", 3.0, "a", value.MissingMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetMember(tt.v, tt.key))
		})
	}
}

func TestGetIndex(t *testing.T) {
	list := []any{"a", "b", "c"}

	assert.Equal(t, "b", GetIndex(list, float64(1)))
	assert.Equal(t, "c", GetIndex(list, -1))
	assert.Equal(t, "a", GetIndex(list, "0"))
	assert.Nil(t, GetIndex(list, 10), "out of range yields nil")
	assert.Nil(t, GetIndex(list, 1.5))
	assert.Equal(t, "e", GetIndex("hello", 1))
	assert.Equal(t, "x", GetIndex(map[string]any{"k": "x"}, "k"))
	assert.Nil(t, GetIndex(map[string]any{"k": "x"}, 2.0), "bad key type yields nil")
	assert.Nil(t, GetIndex(nil, 0))
	assert.Nil(t, GetIndex(42, 0))
}

func TestWalk(t *testing.T) {
	doc := map[string]any{
		"data": map[string]any{
			"items": []any{
				map[string]any{"name": "first"},
				map[string]any{"name": "second"},
			},
		},
	}

	assert.Equal(t, "second", Walk(doc, "data.items[1].name"))
	assert.Equal(t, "first", Walk(doc, "data.items.0.name"))
	assert.Same(t, value.MissingMember, Walk(doc, "data.nope.name"))
	assert.Nil(t, Walk(doc, "data.items[5].name"))
	assert.Equal(t, doc, Walk(doc, ""))
}
