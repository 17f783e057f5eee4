package dedup

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Store is the redis surface the guard needs.
type Store interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	WebhookEventKey(provider, eventID string) string
}

// Manager tracks gateway event ids already handled, using SETNX with a TTL.
// Keys follow the `wnw:webhook:<provider>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a guard that remembers events for the given TTL.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("dedup store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMark returns true if the event was seen before and otherwise
// records it.
func (m *Manager) CheckAndMark(ctx context.Context, provider, eventID string) (bool, error) {
	key, err := m.key(provider, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets an event so a redelivery is processed again. Callers use it
// when handling failed after CheckAndMark.
func (m *Manager) Release(ctx context.Context, provider, eventID string) error {
	key, err := m.key(provider, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(provider, eventID string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", errors.New("provider is required")
	}
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return m.store.WebhookEventKey(provider, eventID), nil
}
