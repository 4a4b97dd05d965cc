package comments

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func TestAddAndList(t *testing.T) {
	m := NewManager(WithClock(fixedClock()), WithIDGenerator(sequentialIDs()))

	first := m.Add("A1", "check this", "")
	second := m.Add("A1", "done", "ana")
	m.Add("B2", "other cell", "bo")

	assert.Equal(t, Comment{ID: "c1", Content: "check this", Timestamp: fixedClock()(), Author: DefaultAuthor}, first)
	assert.Equal(t, "ana", second.Author)
	assert.Equal(t, []Comment{first, second}, m.List("A1"))
	assert.Len(t, m.List("B2"), 1)
	assert.Empty(t, m.List("C3"))

	listed := m.List("A1")
	listed[0].Content = "changed"
	assert.Equal(t, "check this", m.List("A1")[0].Content)
}

func TestDeleteAndRestore(t *testing.T) {
	m := NewManager(WithIDGenerator(sequentialIDs()))
	m.Add("A1", "one", "")
	m.Add("A1", "two", "")

	removed, ok := m.Delete("A1", "c1")
	require.True(t, ok)
	assert.Equal(t, "one", removed.Content)
	assert.Len(t, m.List("A1"), 1)

	_, ok = m.Delete("A1", "missing")
	assert.False(t, ok)
	_, ok = m.Delete("Z9", "c2")
	assert.False(t, ok)

	m.Restore("A1", removed)
	assert.Equal(t, []string{"c2", "c1"}, ids(m.List("A1")))
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	m := NewManager()
	comment := m.Add("A1", "x", "")
	_, err := uuid.Parse(comment.ID)
	assert.NoError(t, err)
	assert.False(t, comment.Timestamp.IsZero())
}

func ids(list []Comment) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}
