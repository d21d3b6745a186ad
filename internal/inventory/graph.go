package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/msgraph"
)

const managedDeviceFields = "id,deviceName,userPrincipalName,userDisplayName,operatingSystem," +
	"osVersion,complianceState,lastSyncDateTime,isEncrypted,managedDeviceOwnerType," +
	"serialNumber,model,manufacturer"

// GraphSource lists managed devices from the Microsoft Graph device
// management API.
type GraphSource struct {
	client  *retryablehttp.Client
	baseURL string
	logger  zerolog.Logger
}

// NewGraphSource creates a Graph-backed device source.
func NewGraphSource(client *retryablehttp.Client, baseURL string, logger zerolog.Logger) *GraphSource {
	if baseURL == "" {
		baseURL = msgraph.DefaultBaseURL
	}
	return &GraphSource{
		client:  client,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "graph_inventory").Logger(),
	}
}

type managedDevice struct {
	ID                     string     `json:"id"`
	DeviceName             string     `json:"deviceName"`
	UserPrincipalName      string     `json:"userPrincipalName"`
	UserDisplayName        string     `json:"userDisplayName"`
	OperatingSystem        string     `json:"operatingSystem"`
	OSVersion              string     `json:"osVersion"`
	ComplianceState        string     `json:"complianceState"`
	LastSyncDateTime       *time.Time `json:"lastSyncDateTime"`
	IsEncrypted            bool       `json:"isEncrypted"`
	ManagedDeviceOwnerType string     `json:"managedDeviceOwnerType"`
	SerialNumber           string     `json:"serialNumber"`
	Model                  string     `json:"model"`
	Manufacturer           string     `json:"manufacturer"`
}

type managedDevicePage struct {
	NextLink string          `json:"@odata.nextLink"`
	Value    []managedDevice `json:"value"`
}

// ListManagedDevices retrieves the full managed device inventory,
// following @odata.nextLink paging.
func (s *GraphSource) ListManagedDevices(ctx context.Context) ([]RawDevice, error) {
	next := fmt.Sprintf("%s/deviceManagement/managedDevices?$select=%s",
		s.baseURL, url.QueryEscape(managedDeviceFields))

	var devices []RawDevice
	for next != "" {
		page, err := s.fetchPage(ctx, next)
		if err != nil {
			metrics.RecordProviderRequest("listManagedDevices", "error")
			return nil, err
		}
		for _, md := range page.Value {
			devices = append(devices, toRawDevice(md))
		}
		next = page.NextLink
	}

	metrics.RecordProviderRequest("listManagedDevices", "ok")
	s.logger.Info().Int("devices", len(devices)).Msg("retrieved managed devices from provider")
	return devices, nil
}

// GetDevice retrieves one device by provider ID.
func (s *GraphSource) GetDevice(ctx context.Context, id string) (RawDevice, bool, error) {
	endpoint := fmt.Sprintf("%s/deviceManagement/managedDevices/%s", s.baseURL, url.PathEscape(id))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RawDevice{}, false, fmt.Errorf("build device request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest("getDevice", "error")
		return RawDevice{}, false, fmt.Errorf("get device %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordProviderRequest("getDevice", "not_found")
		return RawDevice{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest("getDevice", fmt.Sprintf("%d", resp.StatusCode))
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RawDevice{}, false, fmt.Errorf("get device %s: unexpected status %d: %s",
			id, resp.StatusCode, detail)
	}

	var md managedDevice
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return RawDevice{}, false, fmt.Errorf("decode device %s: %w", id, err)
	}

	metrics.RecordProviderRequest("getDevice", "ok")
	return toRawDevice(md), true, nil
}

func (s *GraphSource) fetchPage(ctx context.Context, endpoint string) (*managedDevicePage, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build device list request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list managed devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list managed devices: unexpected status %d: %s",
			resp.StatusCode, detail)
	}

	var page managedDevicePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode device list page: %w", err)
	}
	return &page, nil
}

func toRawDevice(md managedDevice) RawDevice {
	return RawDevice{
		ID:                md.ID,
		DeviceName:        md.DeviceName,
		UserPrincipalName: md.UserPrincipalName,
		UserDisplayName:   md.UserDisplayName,
		OperatingSystem:   md.OperatingSystem,
		OSVersion:         md.OSVersion,
		ComplianceState:   md.ComplianceState,
		LastSyncDateTime:  md.LastSyncDateTime,
		IsEncrypted:       md.IsEncrypted,
		IsManaged:         !strings.EqualFold(md.ManagedDeviceOwnerType, "unknown") && md.ManagedDeviceOwnerType != "",
		SerialNumber:      md.SerialNumber,
		Model:             md.Model,
		Manufacturer:      md.Manufacturer,
	}
}

// Ensure GraphSource implements Source.
var _ Source = (*GraphSource)(nil)
