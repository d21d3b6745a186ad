package support

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
)

// ErrRecordNotFound is returned when a vendor support record cannot be
// found.
var ErrRecordNotFound = errors.New("vendor support record not found")

// Store defines the interface for vendor support record persistence.
type Store interface {
	// Create creates a new record.
	Create(ctx context.Context, r *Record) (*Record, error)

	// List retrieves all records.
	List(ctx context.Context) ([]*Record, error)

	// ListByPlatform retrieves records for one platform family.
	ListByPlatform(ctx context.Context, family platform.OSFamily) ([]*Record, error)

	// Update updates an existing record.
	Update(ctx context.Context, r *Record) (*Record, error)

	// Delete deletes a record by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Replace with a real database implementation in production.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	order   []uuid.UUID
}

// NewInMemoryStore creates a new in-memory vendor support store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[uuid.UUID]*Record),
	}
}

// Create creates a new record.
func (s *InMemoryStore) Create(ctx context.Context, r *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	stored := *r
	s.records[r.ID] = &stored
	s.order = append(s.order, r.ID)

	result := stored
	return &result, nil
}

// List retrieves all records in creation order.
func (s *InMemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := s.records[id]; ok {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

// ListByPlatform retrieves records for one platform family in creation
// order.
func (s *InMemoryStore) ListByPlatform(ctx context.Context, family platform.OSFamily) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Record
	for _, id := range s.order {
		if r, ok := s.records[id]; ok && r.Platform == family {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

// Update updates an existing record.
func (s *InMemoryStore) Update(ctx context.Context, r *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; !ok {
		return nil, ErrRecordNotFound
	}

	stored := *r
	s.records[r.ID] = &stored

	result := stored
	return &result, nil
}

// Delete deletes a record by ID.
func (s *InMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrRecordNotFound
	}

	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
