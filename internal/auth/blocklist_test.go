package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryBlocklist(t *testing.T) {
	bl := NewInMemoryBlocklistService(DefaultBlocklistConfig())
	signOut := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, bl.IsRevoked("fb-1", signOut.Add(-time.Minute)), "nothing revoked yet")

	bl.Revoke("fb-1", signOut)
	assert.True(t, bl.IsRevoked("fb-1", signOut.Add(-time.Minute)))
	assert.True(t, bl.IsRevoked("fb-1", signOut), "a token issued at the sign-out instant is refused")
	assert.False(t, bl.IsRevoked("fb-1", signOut.Add(time.Second)), "tokens from a later sign-in are accepted")
	assert.False(t, bl.IsRevoked("fb-2", signOut.Add(-time.Minute)))
}

func TestInMemoryBlocklist_KeepsLatestRevocation(t *testing.T) {
	bl := NewInMemoryBlocklistService(DefaultBlocklistConfig())
	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	bl.Revoke("fb-1", later)
	bl.Revoke("fb-1", later.Add(-time.Hour))

	assert.True(t, bl.IsRevoked("fb-1", later.Add(-time.Minute)))
}

func TestInMemoryBlocklist_EntriesExpire(t *testing.T) {
	bl := NewInMemoryBlocklistService(InMemoryBlocklistConfig{
		TokenLifetime:   20 * time.Millisecond,
		CleanupInterval: time.Millisecond,
	})
	now := time.Now()
	bl.Revoke("fb-1", now)
	assert.True(t, bl.IsRevoked("fb-1", now.Add(-time.Second)))

	assert.Eventually(t, func() bool {
		return !bl.IsRevoked("fb-1", now.Add(-time.Second))
	}, time.Second, 5*time.Millisecond)
}
