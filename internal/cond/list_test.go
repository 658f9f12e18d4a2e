package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAddAll(t *testing.T) {
	var l List
	a := Must(New("eq", nil, "a", 1))
	b := Must(New("eq", nil, "b", 2))

	ha := l.Add(a)
	hb := l.Add(b)

	assert.NotEqual(t, ha, hb)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []*Condition{a, b}, l.All())

	got, ok := l.Get(hb)
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestListDropRemovesMostRecentMatchOnly(t *testing.T) {
	var l List
	a := Must(New("eq", nil, "a", 1))
	twin := Must(New("eq", nil, "a", 1)) // equal value, different identity
	b := Must(New("eq", nil, "b", 2))

	first := l.Add(a)
	l.Add(twin)
	l.Add(b)
	second := l.Add(a)

	require.True(t, l.Drop(a))

	assert.Equal(t, []*Condition{a, twin, b}, l.All())
	_, ok := l.Get(second)
	assert.False(t, ok, "latest registration should be dropped")
	_, ok = l.Get(first)
	assert.True(t, ok, "earlier registration should survive")

	require.True(t, l.Drop(a))
	assert.Equal(t, []*Condition{twin, b}, l.All())
	assert.False(t, l.Drop(a))
}

func TestListDropAbsentDoesNotMutate(t *testing.T) {
	var l List
	a := Must(New("eq", nil, "a", 1))
	absent := Must(New("eq", nil, "a", 1))
	l.Add(a)

	assert.False(t, l.Drop(absent))
	assert.Equal(t, []*Condition{a}, l.All())
	assert.Equal(t, 1, l.Len())
}

func TestListDropHandle(t *testing.T) {
	var l List
	a := Must(New("eq", nil, "a", 1))
	b := Must(New("eq", nil, "b", 2))

	h1 := l.Add(a)
	l.Add(b)
	h3 := l.Add(a)

	require.True(t, l.DropHandle(h1))
	assert.Equal(t, []*Condition{b, a}, l.All())
	assert.False(t, l.DropHandle(h1), "double drop")

	// The remaining registration of a is still droppable by identity.
	require.True(t, l.Drop(a))
	_, ok := l.Get(h3)
	assert.False(t, ok)
	assert.Equal(t, []*Condition{b}, l.All())

	assert.False(t, l.DropHandle(Handle(-1)))
	assert.False(t, l.DropHandle(Handle(99)))
}

func TestListZeroValue(t *testing.T) {
	var l List
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.All())
	assert.False(t, l.Drop(Must(New("eq", nil, "a", 1))))
}
