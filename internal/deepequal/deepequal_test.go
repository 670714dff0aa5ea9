package deepequal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, Equal(1, 1))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal(1, 2))
	assert.False(t, Equal(1, "1"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 1))
	assert.False(t, Equal(map[string]any{}, nil))
}

func TestEqualNested(t *testing.T) {
	assert.True(t, Equal(
		map[string]any{"a": []any{1, 2}},
		map[string]any{"a": []any{1, 2}},
	))
	assert.False(t, Equal(
		map[string]any{"a": []any{1, 2}},
		map[string]any{"a": []any{2, 1}},
	))
}

// a map never equals a slice, even when both are empty
func TestEqualArrayness(t *testing.T) {
	assert.False(t, Equal(map[string]any{}, []any{}))
	assert.False(t, Equal([]any{}, map[string]any{}))
	assert.True(t, Equal([]any{}, []any{}))
}

func TestEqualKeySets(t *testing.T) {
	assert.False(t, Equal(
		map[string]any{"a": 1},
		map[string]any{"a": 1, "b": 2},
	))
	assert.False(t, Equal(
		map[string]any{"a": 1},
		map[string]any{"b": 1},
	))
}

func TestEqualStructs(t *testing.T) {
	type pair struct {
		A string
		B *int
	}
	three := 3
	alsoThree := 3
	assert.True(t, Equal(pair{A: "x", B: &three}, pair{A: "x", B: &alsoThree}))
	assert.False(t, Equal(pair{A: "x", B: &three}, pair{A: "x"}))
	assert.True(t, Equal(pair{A: "x"}, pair{A: "x"}))
}
