package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore(t *testing.T) {
	store := NewStateStore(time.Hour)
	defer store.Stop()

	fresh := store.Load("s1")
	assert.Equal(t, StepAdminUser, fresh.Current)
	assert.Equal(t, 0, store.Size())

	fresh.Username = "admin"
	store.Save("s1", fresh)
	fresh.Username = "changed after save"

	got, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "admin", got.Username)

	got.BasePath = "/photos"
	again := store.Load("s1")
	assert.Empty(t, again.BasePath)

	_, ok = store.Get("s2")
	assert.False(t, ok)

	store.Delete("s1")
	assert.Equal(t, 0, store.Size())
}

func TestStateStoreExpiry(t *testing.T) {
	store := NewStateStore(time.Minute)
	defer store.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Save("s1", NewState())
	store.Save("s2", NewState())

	now = now.Add(30 * time.Second)
	store.Save("s2", NewState())

	now = now.Add(45 * time.Second)
	_, ok := store.Get("s1")
	assert.False(t, ok)
	_, ok = store.Get("s2")
	assert.True(t, ok)

	store.removeExpired()
	assert.Equal(t, 1, store.Size())
}
