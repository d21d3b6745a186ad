package support

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/version"
)

// seedRecord is the YAML shape of one vendor lifecycle entry.
//
//	- platform: windows
//	  versionPattern: "Windows 10 22H2"
//	  minimumVersion: "10.0.19045"
//	  endOfSupport: 2025-10-14
//	  notes: Final Windows 10 release
type seedRecord struct {
	Platform       string `yaml:"platform"`
	VersionPattern string `yaml:"versionPattern"`
	MinimumVersion string `yaml:"minimumVersion"`
	EndOfSupport   string `yaml:"endOfSupport"`
	Notes          string `yaml:"notes"`
}

// LoadSeedFile parses vendor support records from a YAML seed file.
// Individual malformed entries are reported as errors; the file either
// loads completely or not at all.
func LoadSeedFile(path string) ([]*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedRecord
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	records := make([]*Record, 0, len(entries))
	for i, entry := range entries {
		family, ok := platform.ParseOSFamily(entry.Platform)
		if !ok {
			return nil, fmt.Errorf("seed entry %d: unknown platform %q", i, entry.Platform)
		}

		minimum, ok := version.Parse(entry.MinimumVersion)
		if !ok {
			return nil, fmt.Errorf("seed entry %d: invalid minimum version %q", i, entry.MinimumVersion)
		}

		endOfSupport, err := time.Parse("2006-01-02", entry.EndOfSupport)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: invalid end of support date %q", i, entry.EndOfSupport)
		}

		records = append(records, NewRecord(family, entry.VersionPattern, minimum, endOfSupport, entry.Notes))
	}

	return records, nil
}

// SeedStore loads the seed file into the store when the store is empty.
func SeedStore(ctx context.Context, store Store, path string, logger zerolog.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count vendor support records: %w", err)
	}
	if count > 0 {
		logger.Debug().Int("existing", count).Msg("vendor support store already populated, skipping seed")
		return nil
	}

	records, err := LoadSeedFile(path)
	if err != nil {
		return err
	}

	for _, r := range records {
		if _, err := store.Create(ctx, r); err != nil {
			return fmt.Errorf("seed vendor support record %s: %w", r.VersionPattern, err)
		}
	}

	logger.Info().Int("records", len(records)).Str("path", path).Msg("seeded vendor support records")
	return nil
}
