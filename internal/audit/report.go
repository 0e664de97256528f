package audit

import (
	"context"
	"fmt"

	"github.com/clinical-reasoning-server/internal/domain"
)

// ComplianceReport is the aggregate view consumed by the reporting
// workflow: how many encounters were processed, how many were flagged, and
// the resulting compliance rate.
type ComplianceReport struct {
	TotalEncounters   int64               `json:"total_encounters"`
	FlaggedEncounters int64               `json:"flagged_encounters"`
	ComplianceRate    float64             `json:"compliance_rate"`
	RecentFlags       []domain.StoredFlag `json:"recent_flags,omitempty"`
}

// NewStore builds the flag store selected by configuration.
func NewStore(cfg *domain.AuditConfig) (domain.FlagStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return OpenPostgresStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown audit driver: %s", cfg.Driver)
	}
}

// BuildReport computes the aggregate compliance rate from persisted flags.
// Rate is the flagged-free fraction; zero processed encounters reports a
// rate of 1.
func BuildReport(ctx context.Context, store domain.FlagStore, recentLimit int) (*ComplianceReport, error) {
	total, flagged, err := store.CountEncounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count encounters: %w", err)
	}

	report := &ComplianceReport{
		TotalEncounters:   total,
		FlaggedEncounters: flagged,
		ComplianceRate:    1,
	}
	if total > 0 {
		report.ComplianceRate = float64(total-flagged) / float64(total)
	}

	if recentLimit > 0 {
		flags, err := store.ListFlags(ctx, recentLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent flags: %w", err)
		}
		report.RecentFlags = flags
	}

	return report, nil
}
