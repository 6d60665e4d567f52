package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/titpetric/piped/internal/value"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"empty array", value.Array(nil), false},
		{"non-empty array", value.Array([]value.Value{value.Integer(0)}), true},
		{"empty dictionary", value.Dictionary(nil), false},
		{"non-empty dictionary", value.Dictionary(map[string]value.Value{"a": value.Bool(false)}), true},
		{"false", value.Bool(false), false},
		{"true", value.Bool(true), true},
		{"zero integer", value.Integer(0), false},
		{"non-zero integer", value.Integer(-1), true},
		{"empty string", value.String(""), false},
		{"non-empty string", value.String("x"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.Truthy())
		})
	}
}

func TestEqualDeep(t *testing.T) {
	a := value.Array([]value.Value{value.Integer(1), value.Integer(2)})
	b := value.Array([]value.Value{value.Integer(1), value.Integer(2)})
	c := value.Array([]value.Value{value.Integer(2), value.Integer(1)})

	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
}

func TestEqualArrayMismatchReturnsFalse(t *testing.T) {
	// Regression: an earlier revision of this routine short-circuited on the
	// first mismatched element and returned true instead of false.
	left := value.Array([]value.Value{value.Integer(1), value.Integer(2)})
	right := value.Array([]value.Value{value.Integer(1), value.Integer(3)})
	assert.False(t, value.Equal(left, right))
}

func TestEqualDictionary(t *testing.T) {
	a := value.Dictionary(map[string]value.Value{"x": value.Integer(1)})
	b := value.Dictionary(map[string]value.Value{"x": value.Integer(1)})
	c := value.Dictionary(map[string]value.Value{"x": value.Integer(2)})
	d := value.Dictionary(map[string]value.Value{"y": value.Integer(1)})

	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
	assert.False(t, value.Equal(a, d))
}

func TestEqualKindMismatch(t *testing.T) {
	assert.False(t, value.Equal(value.Integer(1), value.String("1")))
}

func TestDisplayBoundary(t *testing.T) {
	assert.Equal(t, "[]", value.Array(nil).Display())
	assert.Equal(t, "{}", value.Dictionary(nil).Display())
	assert.Equal(t, "[1, 2, 3]", value.Array([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)}).Display())
	assert.Equal(t, "hi", value.String("hi").Display())
	assert.Equal(t, "true", value.Bool(true).Display())
}

func TestDisplayDictionary(t *testing.T) {
	d := value.Dictionary(map[string]value.Value{"b": value.Integer(2), "a": value.Integer(1)})
	assert.Equal(t, `{"a": 1, "b": 2}`, d.Display())
}

func TestCloneIsIndependent(t *testing.T) {
	inner := value.Array([]value.Value{value.Integer(1)})
	original := value.Array([]value.Value{inner})
	clone := original.Clone()

	originalArr, _ := original.AsArray()
	cloneArr, _ := clone.AsArray()
	assert.True(t, value.Equal(originalArr[0], cloneArr[0]))

	originalArr[0] = value.Integer(99)
	assert.True(t, value.Equal(inner, cloneArr[0]))
}

func TestCoerceStringSliceFailsCleanly(t *testing.T) {
	mixed := value.Array([]value.Value{value.String("a"), value.Integer(1)})
	_, ok := value.CoerceStringSlice(mixed)
	assert.False(t, ok)

	clean := value.Array([]value.Value{value.String("a"), value.String("b")})
	out, ok := value.CoerceStringSlice(clean)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestCoerceStringMap(t *testing.T) {
	dict := value.Dictionary(map[string]value.Value{"K": value.String("V")})
	out, ok := value.CoerceStringMap(dict)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"K": "V"}, out)

	notDict := value.Integer(1)
	_, ok = value.CoerceStringMap(notDict)
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "array", value.KindArray.String())
	assert.Equal(t, "dictionary", value.KindDictionary.String())
	assert.Equal(t, "bool", value.KindBool.String())
	assert.Equal(t, "integer", value.KindInteger.String())
	assert.Equal(t, "string", value.KindString.String())
}
