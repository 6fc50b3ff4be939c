// File: internal/auth/blocklist.go
package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionBlocklist remembers sign-outs so ID tokens issued before them are
// refused until they would have expired anyway.
type SessionBlocklist interface {
	// Revoke rejects every token for subject issued at or before revokedAt.
	Revoke(subject string, revokedAt time.Time)
	// IsRevoked reports whether a token issued at issuedAt has been revoked.
	IsRevoked(subject string, issuedAt time.Time) bool
}

// InMemoryBlocklistService is a SessionBlocklist backed by an expiring cache.
type InMemoryBlocklistService struct {
	cache *cache.Cache
	ttl   time.Duration
}

// InMemoryBlocklistConfig holds the configuration for the InMemoryBlocklistService.
type InMemoryBlocklistConfig struct {
	// TokenLifetime is how long an ID token stays valid; entries live that long.
	TokenLifetime   time.Duration
	CleanupInterval time.Duration
}

// DefaultBlocklistConfig matches the one hour lifetime of Firebase ID tokens.
func DefaultBlocklistConfig() InMemoryBlocklistConfig {
	return InMemoryBlocklistConfig{TokenLifetime: time.Hour, CleanupInterval: 10 * time.Minute}
}

func NewInMemoryBlocklistService(cfg InMemoryBlocklistConfig) *InMemoryBlocklistService {
	return &InMemoryBlocklistService{
		cache: cache.New(cfg.TokenLifetime, cfg.CleanupInterval),
		ttl:   cfg.TokenLifetime,
	}
}

func (s *InMemoryBlocklistService) Revoke(subject string, revokedAt time.Time) {
	if prev, ok := s.cache.Get(subject); ok && prev.(time.Time).After(revokedAt) {
		return
	}
	s.cache.Set(subject, revokedAt, s.ttl)
}

func (s *InMemoryBlocklistService) IsRevoked(subject string, issuedAt time.Time) bool {
	v, found := s.cache.Get(subject)
	if !found {
		return false
	}
	return !issuedAt.After(v.(time.Time))
}
