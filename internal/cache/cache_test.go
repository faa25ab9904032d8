package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCallsOncePerKey(t *testing.T) {
	s := New[*int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.GetOrCreate("us-east-1", func() (*int, error) {
				calls.Add(1)
				n := 42
				return &n, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	stats := s.Stats()
	assert.Equal(t, 1, stats["size"])
	assert.Equal(t, 49, stats["total_hits"])
}

func TestGetOrCreateError(t *testing.T) {
	s := New[string]()

	_, err := s.GetOrCreate("k", func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	assert.Empty(t, s.Keys())

	v, err := s.GetOrCreate("k", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestStoreDelete(t *testing.T) {
	s := New[string]()
	for _, k := range []string{"a", "b"} {
		_, err := s.GetOrCreate(k, func() (string, error) { return k, nil })
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, s.Keys())

	s.Delete("a")
	assert.Equal(t, []string{"b"}, s.Keys())
	assert.Equal(t, map[string]interface{}{"size": 1, "total_hits": 0}, s.Stats())
}
