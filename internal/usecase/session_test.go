package usecase

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexai/internal/domain"
)

func TestSessionRegistry_GetOrCreate(t *testing.T) {
	r := NewSessionRegistry(10, discardLogger())

	s, created := r.GetOrCreate("abc")
	assert.True(t, created)
	assert.Equal(t, "abc", s.ID)

	again, created := r.GetOrCreate("abc")
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_EmptyIDGetsUUID(t *testing.T) {
	r := NewSessionRegistry(10, discardLogger())

	s, created := r.GetOrCreate("")
	require.True(t, created)
	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)

	other, _ := r.GetOrCreate("")
	assert.NotEqual(t, s.ID, other.ID)
}

func TestSessionRegistry_DeleteAndIDs(t *testing.T) {
	r := NewSessionRegistry(10, discardLogger())
	r.GetOrCreate("b")
	r.GetOrCreate("a")

	assert.Equal(t, []string{"a", "b"}, r.IDs())
	assert.True(t, r.Delete("a"))
	assert.False(t, r.Delete("a"))

	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, r.IDs())
}

func TestSession_TrimsOldestMessages(t *testing.T) {
	r := NewSessionRegistry(3, discardLogger())
	s, _ := r.GetOrCreate("s")

	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Append(domain.RoleUser, fmt.Sprintf("m%d", i), now)
	}

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m4", msgs[2].Content)

	recent := s.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "m3", recent[0].Content)
}

func TestSession_MessagesIsACopy(t *testing.T) {
	r := NewSessionRegistry(0, discardLogger())
	s, _ := r.GetOrCreate("s")
	s.Append(domain.RoleUser, "hello", time.Now())

	msgs := s.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "hello", s.Messages()[0].Content)
}

func TestSessionRegistry_Concurrent(t *testing.T) {
	r := NewSessionRegistry(100, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := r.GetOrCreate(fmt.Sprintf("s%d", i%5))
			s.Append(domain.RoleUser, "x", time.Now())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Len())
	total := 0
	for _, id := range r.IDs() {
		s, _ := r.Get(id)
		total += len(s.Messages())
	}
	assert.Equal(t, 50, total)
}
