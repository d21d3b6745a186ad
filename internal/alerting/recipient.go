package alerting

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// ErrRecipientNotFound is returned when a recipient cannot be found.
var ErrRecipientNotFound = errors.New("alert recipient not found")

// Recipient is an administrator subscribed to alert email.
type Recipient struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	DisplayName     string         `json:"displayName"`
	Enabled         bool           `json:"enabled"`
	MinimumSeverity rules.Severity `json:"minimumSeverity"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// NewRecipient creates an enabled recipient. The email address is
// validated and normalized to lowercase.
func NewRecipient(email, displayName string, minimumSeverity rules.Severity) (*Recipient, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Recipient{
		ID:              uuid.New(),
		Email:           normalized,
		DisplayName:     displayName,
		Enabled:         true,
		MinimumSeverity: minimumSeverity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("invalid email address: %q", email)
	}
	return strings.ToLower(trimmed), nil
}

// ShouldReceive reports whether the recipient subscribes to alerts of
// the given severity.
func (r *Recipient) ShouldReceive(severity rules.Severity) bool {
	return r.Enabled && severity >= r.MinimumSeverity
}

// RecipientStore defines the interface for recipient persistence.
type RecipientStore interface {
	// Create creates a new recipient.
	Create(ctx context.Context, r *Recipient) (*Recipient, error)

	// GetByID retrieves a recipient by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)

	// List retrieves all recipients.
	List(ctx context.Context) ([]*Recipient, error)

	// ListEligible retrieves enabled recipients subscribed to alerts of
	// at least the given severity.
	ListEligible(ctx context.Context, severity rules.Severity) ([]*Recipient, error)

	// Update updates an existing recipient.
	Update(ctx context.Context, r *Recipient) (*Recipient, error)

	// Delete deletes a recipient by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// InMemoryRecipientStore is an in-memory implementation of RecipientStore.
// Replace with a real database implementation in production.
type InMemoryRecipientStore struct {
	mu         sync.RWMutex
	recipients map[uuid.UUID]*Recipient
	order      []uuid.UUID
}

// NewInMemoryRecipientStore creates a new in-memory recipient store.
func NewInMemoryRecipientStore() *InMemoryRecipientStore {
	return &InMemoryRecipientStore{
		recipients: make(map[uuid.UUID]*Recipient),
	}
}

// Create creates a new recipient.
func (s *InMemoryRecipientStore) Create(ctx context.Context, r *Recipient) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	stored := *r
	s.recipients[r.ID] = &stored
	s.order = append(s.order, r.ID)

	result := stored
	return &result, nil
}

// GetByID retrieves a recipient by ID.
func (s *InMemoryRecipientStore) GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipients[id]
	if !ok {
		return nil, ErrRecipientNotFound
	}
	result := *r
	return &result, nil
}

// List retrieves all recipients in creation order.
func (s *InMemoryRecipientStore) List(ctx context.Context) ([]*Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Recipient, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := s.recipients[id]; ok {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

// ListEligible retrieves enabled recipients subscribed to alerts of at
// least the given severity, in creation order.
func (s *InMemoryRecipientStore) ListEligible(ctx context.Context, severity rules.Severity) ([]*Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Recipient
	for _, id := range s.order {
		if r, ok := s.recipients[id]; ok && r.ShouldReceive(severity) {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

// Update updates an existing recipient.
func (s *InMemoryRecipientStore) Update(ctx context.Context, r *Recipient) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipients[r.ID]; !ok {
		return nil, ErrRecipientNotFound
	}

	r.UpdatedAt = time.Now().UTC()
	stored := *r
	s.recipients[r.ID] = &stored

	result := stored
	return &result, nil
}

// Delete deletes a recipient by ID.
func (s *InMemoryRecipientStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipients[id]; !ok {
		return ErrRecipientNotFound
	}

	delete(s.recipients, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ensure InMemoryRecipientStore implements RecipientStore.
var _ RecipientStore = (*InMemoryRecipientStore)(nil)
