// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces revoked token ids in Valkey.
const keyPrefix = "revoked:"

// Revoker records and checks revoked token ids.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Denylist stores revoked token ids in Valkey until the token would have
// expired anyway, so the set never outgrows the live tokens.
type Denylist struct {
	client *redis.Client
}

// NewDenylist returns a Denylist backed by client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks jti as revoked until the given time. Tokens that have
// already expired need no entry.
func (d *Denylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, keyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// MemoryDenylist is a process-local Revoker used when Valkey is not
// configured. Entries are dropped lazily once expired.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist returns an empty MemoryDenylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti as revoked until the given time.
func (m *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !until.After(m.now()) {
		return nil
	}
	m.entries[jti] = until
	return nil
}

// IsRevoked reports whether jti has been revoked and not yet expired.
func (m *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !until.After(m.now()) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
