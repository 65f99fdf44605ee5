package identity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualScalars(t *testing.T) {
	assert.True(t, Equal(String("a"), String("a")))
	assert.False(t, Equal(String("a"), String("b")))
	assert.True(t, Equal(Number(1), Number(1)))
	assert.False(t, Equal(Number(1), String("1")))
	assert.False(t, Equal(nil, nil))
	assert.False(t, Equal(String("a"), nil))
}

func TestEqualSequences(t *testing.T) {
	assert.True(t, Equal(Seq{String("r1"), String("p1")}, Seq{String("r1"), String("p1")}))
	assert.False(t, Equal(Seq{String("r1")}, Seq{String("r1"), String("p1")}))
	assert.False(t, Equal(Seq{String("r1")}, String("r1")))
	assert.True(t, Equal(Seq{}, Seq{}))
}

func TestEqualNested(t *testing.T) {
	a := Seq{String("id"), Seq{String("2024"), String("07")}, String("bucket")}
	b := Seq{String("id"), Seq{String("2024"), String("07")}, String("bucket")}
	c := Seq{String("id"), Seq{String("2024"), String("08")}, String("bucket")}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Identity
	}{
		{name: "string", in: "abc", want: String("abc")},
		{name: "int", in: 7, want: Number(7)},
		{name: "float", in: 7.5, want: Number(7.5)},
		{name: "json number", in: json.Number("12"), want: Number(12)},
		{name: "any slice", in: []any{"r1", []any{"p1", 2.0}}, want: Seq{String("r1"), Seq{String("p1"), Number(2)}}},
		{name: "typed slice", in: []string{"a", "b"}, want: Seq{String("a"), String("b")}},
		{name: "identity", in: String("x"), want: String("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestOfUnsupported(t *testing.T) {
	for _, v := range []any{nil, true, map[string]any{"a": 1}, []any{"a", false}} {
		_, err := Of(v)
		assert.True(t, errors.Is(err, ErrUnsupported), "value %v", v)
	}
}

type order struct {
	OrderID string `json:"id"`
	Shop    int
}

func TestField(t *testing.T) {
	byKey := Field[map[string]any]("id")
	id, err := byKey(map[string]any{"id": "1", "name": "x"})
	require.NoError(t, err)
	assert.Equal(t, String("1"), id)

	_, err = byKey(map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrUnsupported)

	byTag := Field[*order]("id")
	id, err = byTag(&order{OrderID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, String("o-1"), id)

	byName := Field[order]("Shop")
	id, err = byName(order{Shop: 3})
	require.NoError(t, err)
	assert.Equal(t, Number(3), id)
}

func TestSeqString(t *testing.T) {
	s := Seq{String("a"), Seq{Number(1)}}
	assert.Equal(t, `["a",[1]]`, s.String())
}
