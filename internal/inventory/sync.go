package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/platform"
)

// Syncer mirrors the provider's managed device inventory into the local
// device store. Provider-owned fields are refreshed on every pass; the
// internally computed compliance state is left for the evaluator.
type Syncer struct {
	devices device.Store
	source  Source
	logger  zerolog.Logger
	now     func() time.Time
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithSyncerClock overrides the sync clock, for tests.
func WithSyncerClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		s.now = now
	}
}

// NewSyncer creates a device syncer.
func NewSyncer(devices device.Store, source Source, logger zerolog.Logger, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		devices: devices,
		source:  source,
		logger:  logger.With().Str("component", "device_sync").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes a sync pass.
type Result struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Sync pulls the provider inventory and creates or updates local
// devices. A device that fails to persist is logged and skipped; the
// rest of the pass continues.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	start := s.now()

	raws, err := s.source.ListManagedDevices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list managed devices: %w", err)
	}

	var result Result
	for _, raw := range raws {
		created, err := s.syncOne(ctx, raw)
		if err != nil {
			s.logger.Error().Err(err).Str("external_id", raw.ID).Msg("failed to sync device")
			metrics.RecordDeviceSynced("failed")
			continue
		}
		if created {
			result.Created++
			metrics.RecordDeviceSynced("created")
		} else {
			result.Updated++
			metrics.RecordDeviceSynced("updated")
		}
	}
	result.Synced = result.Created + result.Updated

	metrics.RecordSyncDuration(s.now().Sub(start).Seconds())
	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("device sync completed")

	return result, nil
}

func (s *Syncer) syncOne(ctx context.Context, raw RawDevice) (created bool, err error) {
	name := raw.DeviceName
	if strings.TrimSpace(name) == "" {
		name = "Unknown"
	}

	os := platform.OSFromString(strings.TrimSpace(raw.OperatingSystem + " " + raw.OSVersion))
	update := device.ProviderUpdate{
		Name:              name,
		UserPrincipalName: raw.UserPrincipalName,
		UserDisplayName:   raw.UserDisplayName,
		Type:              classifyType(raw.OperatingSystem, raw.Model),
		OS:                os,
		ReportedState:     device.ParseReportedState(raw.ComplianceState),
		LastSyncAt:        raw.LastSyncDateTime,
		Encrypted:         raw.IsEncrypted,
		Managed:           raw.IsManaged,
		SerialNumber:      raw.SerialNumber,
		Model:             raw.Model,
		Manufacturer:      raw.Manufacturer,
	}

	existing, err := s.devices.GetByExternalID(ctx, raw.ID)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) {
			return false, err
		}

		d, err := device.New(raw.ID, name, os, update.Type)
		if err != nil {
			return false, err
		}
		d.ApplyProviderUpdate(update, s.now())
		if _, err := s.devices.Create(ctx, d); err != nil {
			return false, err
		}
		return true, nil
	}

	existing.ApplyProviderUpdate(update, s.now())
	if _, err := s.devices.Update(ctx, existing); err != nil {
		return false, err
	}
	return false, nil
}

// classifyType infers the device form factor from the provider's OS and
// model strings.
func classifyType(osName, model string) device.Type {
	os := strings.ToLower(osName)
	m := strings.ToLower(model)

	switch {
	case strings.Contains(os, "ios"), strings.Contains(os, "iphone"), strings.Contains(m, "iphone"):
		return device.TypePhone
	case strings.Contains(os, "ipad"), strings.Contains(m, "ipad"):
		return device.TypeTablet
	case strings.Contains(os, "android"):
		if strings.Contains(m, "tablet") || strings.Contains(m, "tab") {
			return device.TypeTablet
		}
		return device.TypePhone
	case strings.Contains(os, "macos"), strings.Contains(os, "mac os"):
		return device.TypeDesktop
	case strings.Contains(os, "windows"):
		if strings.Contains(m, "surface") && !strings.Contains(m, "laptop") {
			return device.TypeTablet
		}
		if strings.Contains(m, "laptop") || strings.Contains(m, "notebook") {
			return device.TypeLaptop
		}
		return device.TypeDesktop
	default:
		return device.TypeUnknown
	}
}
