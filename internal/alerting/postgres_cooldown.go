package alerting

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCooldownStore is a PostgreSQL implementation of CooldownStore.
//
// Expected schema:
//
//	CREATE TABLE alert_cooldowns (
//	    id            UUID PRIMARY KEY,
//	    device_id     UUID NOT NULL,
//	    alert_type    TEXT NOT NULL,
//	    last_alert_at TIMESTAMPTZ NOT NULL,
//	    expires_at    TIMESTAMPTZ NOT NULL,
//	    UNIQUE (device_id, alert_type)
//	);
type PostgresCooldownStore struct {
	db *pgxpool.Pool
}

// NewPostgresCooldownStore creates a new PostgreSQL-backed cooldown store.
func NewPostgresCooldownStore(db *pgxpool.Pool) *PostgresCooldownStore {
	return &PostgresCooldownStore{db: db}
}

// Get retrieves the cooldown for a device and alert type.
func (s *PostgresCooldownStore) Get(ctx context.Context, deviceID uuid.UUID, alertType string) (*Cooldown, error) {
	query := `
		SELECT id, device_id, alert_type, last_alert_at, expires_at
		FROM alert_cooldowns
		WHERE device_id = $1 AND alert_type = $2
	`

	var c Cooldown
	err := s.db.QueryRow(ctx, query, deviceID, alertType).
		Scan(&c.ID, &c.DeviceID, &c.AlertType, &c.LastAlertAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCooldownNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Upsert creates or restarts the cooldown window. The unique constraint
// on (device_id, alert_type) makes concurrent sends converge on a single
// row.
func (s *PostgresCooldownStore) Upsert(ctx context.Context, c *Cooldown) error {
	query := `
		INSERT INTO alert_cooldowns (id, device_id, alert_type, last_alert_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, alert_type) DO UPDATE
		SET last_alert_at = EXCLUDED.last_alert_at, expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.Exec(ctx, query, c.ID, c.DeviceID, c.AlertType, c.LastAlertAt, c.ExpiresAt)
	return err
}

// Ensure PostgresCooldownStore implements CooldownStore.
var _ CooldownStore = (*PostgresCooldownStore)(nil)
