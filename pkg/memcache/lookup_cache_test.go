package mem

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetchCachesWithinTTL(t *testing.T) {
	cache := NewLookupCache()
	calls := 0

	fetch := func() (string, error) {
		calls++
		return "Pho Garden", nil
	}

	v, err := cache.GetOrFetch("restaurant:1", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "Pho Garden", v)

	v, err = cache.GetOrFetch("restaurant:1", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "Pho Garden", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchExpires(t *testing.T) {
	cache := NewLookupCache()
	calls := 0

	fetch := func() (string, error) {
		calls++
		return "v", nil
	}

	_, err := cache.GetOrFetch("k", time.Millisecond, fetch)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Peek("k")
	assert.False(t, ok)

	_, err = cache.GetOrFetch("k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	cache := NewLookupCache()
	boom := errors.New("db down")
	calls := 0

	fetch := func() (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "recovered", nil
	}

	_, err := cache.GetOrFetch("k", time.Minute, fetch)
	assert.ErrorIs(t, err, boom)

	v, err := cache.GetOrFetch("k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestClear(t *testing.T) {
	cache := NewLookupCache()
	_, err := cache.GetOrFetch("k", time.Minute, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	cache.Clear()
	_, ok := cache.Peek("k")
	assert.False(t, ok)
}
