package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_GetOrSet_CachesLoaderResult(t *testing.T) {
	cs := NewCacheService(60, 120)

	loads := 0
	loader := func() (any, error) {
		loads++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		val, err := cs.GetOrSet("k", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "value", val)
	}
	assert.Equal(t, 1, loads)
}

func TestCacheService_GetOrSet_DoesNotCacheLoaderErrors(t *testing.T) {
	cs := NewCacheService(60, 120)

	_, err := cs.GetOrSet("k", time.Minute, func() (any, error) {
		return nil, errors.New("backing store down")
	})
	require.Error(t, err)

	val, err := cs.GetOrSet("k", time.Minute, func() (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestCacheService_SetGetDelete(t *testing.T) {
	cs := NewCacheService(60, 120)

	cs.Set("cooldown:user-1", time.Now(), time.Minute)
	_, found := cs.Get("cooldown:user-1")
	assert.True(t, found)

	cs.Delete("cooldown:user-1")
	_, found = cs.Get("cooldown:user-1")
	assert.False(t, found)
}
