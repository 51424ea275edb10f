package scheduled

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsEmpty(t *testing.T) {
	s := New[int, string]()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Len())
}

func TestScheduleAndPeek(t *testing.T) {
	s := New[int, string]()
	s.Schedule(3, "three")
	s.Schedule(1, "one")
	s.Schedule(2, "two")

	key, value, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, key)
	assert.Equal(t, "one", value)
	assert.Equal(t, 3, s.Len())
}

func TestPopUntilOrdersAscending(t *testing.T) {
	s := New[int, string]()
	s.Schedule(3, "three")
	s.Schedule(1, "one")
	s.Schedule(2, "two")
	s.Schedule(4, "four")

	got := s.PopUntil(2)
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Equal(t, 2, s.Len())

	key, value, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 3, key)
	assert.Equal(t, "three", value)
}

func TestClear(t *testing.T) {
	s := New[int, string]()
	s.Schedule(1, "one")
	s.Schedule(2, "two")
	s.Clear()
	assert.True(t, s.IsEmpty())
}

func TestPopUntilEmptyQueue(t *testing.T) {
	s := New[int, string]()
	assert.Empty(t, s.PopUntil(5))
}

func TestPopUntilNoneQualify(t *testing.T) {
	s := New[int, string]()
	s.Schedule(10, "ten")
	s.Schedule(20, "twenty")
	assert.Empty(t, s.PopUntil(5))
	assert.Equal(t, 2, s.Len())
}

func TestPopUntilFullOrdering(t *testing.T) {
	s := New[int, string]()
	s.Schedule(3, "three")
	s.Schedule(1, "one")
	s.Schedule(2, "two")
	assert.Equal(t, []string{"one", "two", "three"}, s.PopUntil(4))

	s2 := New[int, string]()
	s2.Schedule(3, "three")
	s2.Schedule(1, "one")
	s2.Schedule(2, "two")
	assert.Equal(t, []string{"one"}, s2.PopUntil(1))
}
