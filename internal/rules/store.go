package rules

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRuleNotFound is returned when a rule cannot be found.
var ErrRuleNotFound = errors.New("rule not found")

// Store defines the interface for rule persistence.
type Store interface {
	// Create creates a new rule.
	Create(ctx context.Context, rule *Rule) (*Rule, error)

	// GetByID retrieves a rule by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// List retrieves all rules.
	List(ctx context.Context) ([]*Rule, error)

	// ListEnabled retrieves all enabled rules.
	ListEnabled(ctx context.Context) ([]*Rule, error)

	// Update updates an existing rule.
	Update(ctx context.Context, rule *Rule) (*Rule, error)

	// SetEnabled enables or disables a rule.
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error

	// Delete deletes a rule by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// InMemoryStore is an in-memory implementation of Store.
// Replace with a real database implementation in production.
type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*Rule
	order []uuid.UUID
}

// NewInMemoryStore creates a new in-memory rule store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rules: make(map[uuid.UUID]*Rule),
	}
}

// Create creates a new rule.
func (s *InMemoryStore) Create(ctx context.Context, rule *Rule) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	stored := copyRule(rule)
	s.rules[rule.ID] = stored
	s.order = append(s.order, rule.ID)

	return copyRule(stored), nil
}

// GetByID retrieves a rule by ID.
func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return copyRule(rule), nil
}

// List retrieves all rules in creation order.
func (s *InMemoryStore) List(ctx context.Context) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Rule, 0, len(s.order))
	for _, id := range s.order {
		if rule, ok := s.rules[id]; ok {
			result = append(result, copyRule(rule))
		}
	}
	return result, nil
}

// ListEnabled retrieves all enabled rules in creation order.
func (s *InMemoryStore) ListEnabled(ctx context.Context) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Rule
	for _, id := range s.order {
		if rule, ok := s.rules[id]; ok && rule.Enabled {
			result = append(result, copyRule(rule))
		}
	}
	return result, nil
}

// Update updates an existing rule.
func (s *InMemoryStore) Update(ctx context.Context, rule *Rule) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.ID]; !ok {
		return nil, ErrRuleNotFound
	}

	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.ID] = copyRule(rule)

	return copyRule(rule), nil
}

// SetEnabled enables or disables a rule.
func (s *InMemoryStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return ErrRuleNotFound
	}

	rule.Enabled = enabled
	rule.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete deletes a rule by ID.
func (s *InMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return ErrRuleNotFound
	}

	delete(s.rules, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func copyRule(r *Rule) *Rule {
	c := *r
	if r.Config != nil {
		c.Config = make(Config, len(r.Config))
		for k, v := range r.Config {
			c.Config[k] = v
		}
	}
	return &c
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
