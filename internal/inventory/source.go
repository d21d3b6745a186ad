// Package inventory syncs managed devices from the device-management
// provider into the local store.
package inventory

import (
	"context"
	"time"
)

// RawDevice is a provider device record before normalization. String
// fields carry the provider's free-text values as-is.
type RawDevice struct {
	ID                string     `json:"id"`
	DeviceName        string     `json:"deviceName"`
	UserPrincipalName string     `json:"userPrincipalName"`
	UserDisplayName   string     `json:"userDisplayName"`
	OperatingSystem   string     `json:"operatingSystem"`
	OSVersion         string     `json:"osVersion"`
	ComplianceState   string     `json:"complianceState"`
	LastSyncDateTime  *time.Time `json:"lastSyncDateTime"`
	IsEncrypted       bool       `json:"isEncrypted"`
	IsManaged         bool       `json:"isManaged"`
	SerialNumber      string     `json:"serialNumber"`
	Model             string     `json:"model"`
	Manufacturer      string     `json:"manufacturer"`
}

// Source lists managed devices from the provider.
type Source interface {
	// ListManagedDevices retrieves the full managed device inventory.
	ListManagedDevices(ctx context.Context) ([]RawDevice, error)

	// GetDevice retrieves one device by provider ID. ok=false means the
	// provider does not know the device.
	GetDevice(ctx context.Context, id string) (RawDevice, bool, error)
}
