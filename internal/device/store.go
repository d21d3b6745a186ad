package device

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
)

// ErrDeviceNotFound is returned when a device cannot be found.
var ErrDeviceNotFound = errors.New("device not found")

// ErrDuplicateExternalID is returned when a device with the same provider
// ID already exists.
var ErrDuplicateExternalID = errors.New("duplicate external device ID")

// Store defines the interface for device persistence.
type Store interface {
	// Create creates a new device.
	Create(ctx context.Context, d *Device) (*Device, error)

	// GetByID retrieves a device by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Device, error)

	// GetByExternalID retrieves a device by its provider ID.
	GetByExternalID(ctx context.Context, externalID string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]*Device, error)

	// Update updates an existing device.
	Update(ctx context.Context, d *Device) (*Device, error)

	// CountByEffectiveState returns device counts keyed by effective state.
	CountByEffectiveState(ctx context.Context) (map[State]int, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Replace with a real database implementation in production.
type InMemoryStore struct {
	mu         sync.RWMutex
	devices    map[uuid.UUID]*Device
	byExternal map[string]uuid.UUID
}

// NewInMemoryStore creates a new in-memory device store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		devices:    make(map[uuid.UUID]*Device),
		byExternal: make(map[string]uuid.UUID),
	}
}

// Create creates a new device.
func (s *InMemoryStore) Create(ctx context.Context, d *Device) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternal[d.ExternalID]; exists {
		return nil, ErrDuplicateExternalID
	}

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	stored := copyDevice(d)
	s.devices[d.ID] = stored
	s.byExternal[d.ExternalID] = d.ID

	return copyDevice(stored), nil
}

// GetByID retrieves a device by ID.
func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return copyDevice(d), nil
}

// GetByExternalID retrieves a device by its provider ID.
func (s *InMemoryStore) GetByExternalID(ctx context.Context, externalID string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byExternal[externalID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return copyDevice(s.devices[id]), nil
}

// List retrieves all devices ordered by name.
func (s *InMemoryStore) List(ctx context.Context) ([]*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Device, 0, len(s.devices))
	for _, d := range s.devices {
		result = append(result, copyDevice(d))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ExternalID < result[j].ExternalID
	})

	return result, nil
}

// Update updates an existing device.
func (s *InMemoryStore) Update(ctx context.Context, d *Device) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[d.ID]; !ok {
		return nil, ErrDeviceNotFound
	}

	d.UpdatedAt = time.Now().UTC()
	s.devices[d.ID] = copyDevice(d)

	return copyDevice(d), nil
}

// CountByEffectiveState returns device counts keyed by effective state.
func (s *InMemoryStore) CountByEffectiveState(ctx context.Context) (map[State]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[State]int)
	for _, d := range s.devices {
		counts[d.EffectiveState()]++
	}
	return counts, nil
}

func copyDevice(d *Device) *Device {
	c := *d
	if d.Browsers != nil {
		c.Browsers = append([]platform.BrowserInfo(nil), d.Browsers...)
	}
	if d.Issues != nil {
		c.Issues = append([]Issue(nil), d.Issues...)
	}
	if d.LastSyncAt != nil {
		t := *d.LastSyncAt
		c.LastSyncAt = &t
	}
	if d.LastEvaluatedAt != nil {
		t := *d.LastEvaluatedAt
		c.LastEvaluatedAt = &t
	}
	if d.EndOfSupportAt != nil {
		t := *d.EndOfSupportAt
		c.EndOfSupportAt = &t
	}
	return &c
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
