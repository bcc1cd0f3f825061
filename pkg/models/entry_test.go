package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyWireKey(t *testing.T) {
	k := NewCacheKey("productById", "42")
	assert.Equal(t, "productById::42", k.WireKey())
	assert.Equal(t, "productById::", k.NamespacePrefix())
	assert.Equal(t, "productById::42", k.String())
}

func TestEntryIsExpiredAbsoluteTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key := NewCacheKey("productById", "1")
	e := NewEntry(key, "P1", now, 100*time.Millisecond, 0)

	require.False(t, e.IsExpired(now.Add(50*time.Millisecond)))
	assert.True(t, e.IsExpired(now.Add(150*time.Millisecond)))
}

func TestEntryIsExpiredIdleTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key := NewCacheKey("productById", "1")
	e := NewEntry(key, "P1", now, time.Hour, 10*time.Millisecond)

	// Idle TTL fires before the absolute TTL if nothing touches the entry.
	assert.True(t, e.IsExpired(now.Add(20*time.Millisecond)))
}

func TestEntryTouchUpdatesAccessCount(t *testing.T) {
	now := time.Now()
	key := NewCacheKey("productById", "1")
	e := NewEntry(key, "P1", now, time.Hour, time.Minute)
	require.Equal(t, uint64(1), e.AccessCount())

	e.Touch(now.Add(time.Second))
	e.Touch(now.Add(2 * time.Second))
	assert.Equal(t, uint64(3), e.AccessCount())
}
