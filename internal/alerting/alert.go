package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// ErrAlertNotFound is returned when an alert cannot be found.
var ErrAlertNotFound = errors.New("alert not found")

// RecipientRef is the snapshot of a recipient taken when an alert was
// assembled. Later recipient edits do not rewrite alert history.
type RecipientRef struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Alert is the audit record of one alert email.
type Alert struct {
	ID           uuid.UUID      `json:"id"`
	DeviceID     *uuid.UUID     `json:"deviceId,omitempty"`
	AlertType    string         `json:"alertType,omitempty"`
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	Severity     rules.Severity `json:"severity"`
	Recipients   []RecipientRef `json:"recipients"`
	Sent         bool           `json:"sent"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// NewAlert creates an unsent alert record.
func NewAlert(subject, body string, severity rules.Severity, alertType string, deviceID *uuid.UUID) (*Alert, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("alert subject is required")
	}

	now := time.Now().UTC()
	return &Alert{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		AlertType: alertType,
		Subject:   subject,
		Body:      body,
		Severity:  severity,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddRecipient records a recipient on the alert, deduplicating by email.
func (a *Alert) AddRecipient(email, displayName string) {
	for _, r := range a.Recipients {
		if r.Email == email {
			return
		}
	}
	a.Recipients = append(a.Recipients, RecipientRef{Email: email, DisplayName: displayName})
}

// RecipientEmails returns the recipient addresses in insertion order.
func (a *Alert) RecipientEmails() []string {
	emails := make([]string, 0, len(a.Recipients))
	for _, r := range a.Recipients {
		emails = append(emails, r.Email)
	}
	return emails
}

// MarkSent records a successful delivery.
func (a *Alert) MarkSent(now time.Time) {
	a.Sent = true
	sentAt := now
	a.SentAt = &sentAt
	a.ErrorMessage = ""
	a.UpdatedAt = now
}

// MarkFailed records a delivery failure.
func (a *Alert) MarkFailed(errorMessage string, now time.Time) {
	a.Sent = false
	a.ErrorMessage = errorMessage
	a.UpdatedAt = now
}

// AlertStore defines the interface for alert history persistence.
type AlertStore interface {
	// Create creates a new alert record.
	Create(ctx context.Context, a *Alert) (*Alert, error)

	// GetByID retrieves an alert by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// List retrieves all alerts, newest first.
	List(ctx context.Context) ([]*Alert, error)

	// ListByDevice retrieves alerts for one device, newest first.
	ListByDevice(ctx context.Context, deviceID uuid.UUID) ([]*Alert, error)

	// Update updates an existing alert record.
	Update(ctx context.Context, a *Alert) (*Alert, error)
}

// InMemoryAlertStore is an in-memory implementation of AlertStore.
// Replace with a real database implementation in production.
type InMemoryAlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*Alert
	order  []uuid.UUID
}

// NewInMemoryAlertStore creates a new in-memory alert store.
func NewInMemoryAlertStore() *InMemoryAlertStore {
	return &InMemoryAlertStore{
		alerts: make(map[uuid.UUID]*Alert),
	}
}

// Create creates a new alert record.
func (s *InMemoryAlertStore) Create(ctx context.Context, a *Alert) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	stored := copyAlert(a)
	s.alerts[a.ID] = stored
	s.order = append(s.order, a.ID)

	return copyAlert(stored), nil
}

// GetByID retrieves an alert by ID.
func (s *InMemoryAlertStore) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return copyAlert(a), nil
}

// List retrieves all alerts, newest first.
func (s *InMemoryAlertStore) List(ctx context.Context) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Alert, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if a, ok := s.alerts[s.order[i]]; ok {
			result = append(result, copyAlert(a))
		}
	}
	return result, nil
}

// ListByDevice retrieves alerts for one device, newest first.
func (s *InMemoryAlertStore) ListByDevice(ctx context.Context, deviceID uuid.UUID) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Alert
	for i := len(s.order) - 1; i >= 0; i-- {
		a, ok := s.alerts[s.order[i]]
		if ok && a.DeviceID != nil && *a.DeviceID == deviceID {
			result = append(result, copyAlert(a))
		}
	}
	return result, nil
}

// Update updates an existing alert record.
func (s *InMemoryAlertStore) Update(ctx context.Context, a *Alert) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[a.ID]; !ok {
		return nil, ErrAlertNotFound
	}

	a.UpdatedAt = time.Now().UTC()
	s.alerts[a.ID] = copyAlert(a)

	return copyAlert(a), nil
}

func copyAlert(a *Alert) *Alert {
	c := *a
	if a.DeviceID != nil {
		id := *a.DeviceID
		c.DeviceID = &id
	}
	if a.Recipients != nil {
		c.Recipients = append([]RecipientRef(nil), a.Recipients...)
	}
	if a.SentAt != nil {
		t := *a.SentAt
		c.SentAt = &t
	}
	return &c
}

// Ensure InMemoryAlertStore implements AlertStore.
var _ AlertStore = (*InMemoryAlertStore)(nil)
