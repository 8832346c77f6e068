package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type pair struct {
	a, b interface{}
}

func TestIdentical(t *testing.T) {
	m := map[string]interface{}{"a": 1}
	s := []int{1, 2, 3}
	p := &pair{}
	f := func() {}

	assert.True(t, Identical(nil, nil))
	assert.True(t, Identical(1, 1))
	assert.True(t, Identical("x", "x"))
	assert.True(t, Identical(m, m))
	assert.True(t, Identical(s, s))
	assert.True(t, Identical(p, p))
	assert.True(t, Identical(f, f))

	assert.False(t, Identical(nil, 0))
	assert.False(t, Identical(1, int64(1)))
	assert.False(t, Identical(m, map[string]interface{}{"a": 1}))
	assert.False(t, Identical(s, s[:2]))
	assert.False(t, Identical(s, []int{1, 2, 3}))
	assert.False(t, Identical(p, &pair{}))
	assert.True(t, Identical(pair{a: 1}, pair{a: 1}))
}

func TestIdenticalStructWithReferenceFields(t *testing.T) {
	m := map[string]interface{}{"todos": []int{1}}
	s := []int{1, 2}

	assert.True(t, Identical(pair{a: m, b: s}, pair{a: m, b: s}))
	assert.True(t, Identical(pair{a: pair{a: m}}, pair{a: pair{a: m}}))
	assert.True(t, Identical([2]interface{}{m, "x"}, [2]interface{}{m, "x"}))

	assert.False(t, Identical(pair{a: m}, pair{a: map[string]interface{}{"todos": []int{1}}}))
	assert.False(t, Identical(pair{a: m, b: s}, pair{a: m, b: s[:1]}))
	assert.False(t, Identical(pair{a: m}, pair{a: m, b: 1}))
	assert.False(t, Identical(pair{a: 1}, pair{a: int64(1)}))
	assert.False(t, Identical([2]interface{}{m, "x"}, [2]interface{}{m, "y"}))
}

func TestAll(t *testing.T) {
	m := map[string]interface{}{}
	assert.True(t, All(nil, nil))
	assert.True(t, All([]interface{}{m, 1}, []interface{}{m, 1}))
	assert.False(t, All([]interface{}{m}, []interface{}{m, 1}))
	assert.False(t, All([]interface{}{m}, []interface{}{map[string]interface{}{}}))
}
