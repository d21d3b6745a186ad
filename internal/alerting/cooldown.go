package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCooldownDays is the per-device, per-alert-type throttle window.
const DefaultCooldownDays = 7

// ErrCooldownNotFound is returned when no cooldown exists for a device
// and alert type.
var ErrCooldownNotFound = errors.New("alert cooldown not found")

// Cooldown throttles repeat alerts for one device and alert type.
type Cooldown struct {
	ID          uuid.UUID `json:"id"`
	DeviceID    uuid.UUID `json:"deviceId"`
	AlertType   string    `json:"alertType"`
	LastAlertAt time.Time `json:"lastAlertAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewCooldown starts a cooldown window at now.
func NewCooldown(deviceID uuid.UUID, alertType string, now time.Time, days int) *Cooldown {
	return &Cooldown{
		ID:          uuid.New(),
		DeviceID:    deviceID,
		AlertType:   alertType,
		LastAlertAt: now,
		ExpiresAt:   now.AddDate(0, 0, days),
	}
}

// InCooldownAt reports whether the window is still active at now.
func (c *Cooldown) InCooldownAt(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// CooldownStore defines the interface for cooldown persistence. Upsert
// must be keyed on (device, alert type) so a resend restarts the window
// rather than stacking a second one.
type CooldownStore interface {
	// Get retrieves the cooldown for a device and alert type.
	Get(ctx context.Context, deviceID uuid.UUID, alertType string) (*Cooldown, error)

	// Upsert creates or restarts the cooldown window.
	Upsert(ctx context.Context, c *Cooldown) error
}

// InMemoryCooldownStore is an in-memory implementation of CooldownStore.
// Replace with a real database implementation in production.
type InMemoryCooldownStore struct {
	mu        sync.RWMutex
	cooldowns map[cooldownKey]*Cooldown
}

type cooldownKey struct {
	deviceID  uuid.UUID
	alertType string
}

// NewInMemoryCooldownStore creates a new in-memory cooldown store.
func NewInMemoryCooldownStore() *InMemoryCooldownStore {
	return &InMemoryCooldownStore{
		cooldowns: make(map[cooldownKey]*Cooldown),
	}
}

// Get retrieves the cooldown for a device and alert type.
func (s *InMemoryCooldownStore) Get(ctx context.Context, deviceID uuid.UUID, alertType string) (*Cooldown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cooldowns[cooldownKey{deviceID: deviceID, alertType: alertType}]
	if !ok {
		return nil, ErrCooldownNotFound
	}
	result := *c
	return &result, nil
}

// Upsert creates or restarts the cooldown window.
func (s *InMemoryCooldownStore) Upsert(ctx context.Context, c *Cooldown) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cooldownKey{deviceID: c.DeviceID, alertType: c.AlertType}
	if existing, ok := s.cooldowns[key]; ok {
		existing.LastAlertAt = c.LastAlertAt
		existing.ExpiresAt = c.ExpiresAt
		return nil
	}

	stored := *c
	s.cooldowns[key] = &stored
	return nil
}

// Ensure InMemoryCooldownStore implements CooldownStore.
var _ CooldownStore = (*InMemoryCooldownStore)(nil)
