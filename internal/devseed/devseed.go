// Package devseed populates a development database with example exports.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rowboat-io/rowboat/config"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// Run seeds example export definitions for local development. Seeding is
// idempotent; existing exports with the same name are updated in place.
func Run(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	repo := data.NewExportRepo(db)

	seeds := seedExports(cfg)
	failures := 0
	for _, e := range seeds {
		seed := e
		if _, err := repo.Upsert(ctx, &seed); err != nil {
			if apperrors.IsCode(err, apperrors.ErrCodeConflict) {
				logger.InfoContext(ctx, "export already exists", "name", seed.Name)
				continue
			}
			logger.ErrorContext(ctx, "failed to seed export", "name", seed.Name, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded export", "name", seed.Name, "schedule", seed.Schedule)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

// seedExports returns the development exports. Sinks without connection
// settings get disabled definitions so the exporter does not spin on them.
func seedExports(cfg *config.AppConfig) []model.Export {
	ftpConfigured := cfg != nil && cfg.Sinks.FTP.Configured()
	httpConfigured := cfg != nil && cfg.Sinks.HTTP.Configured()

	return []model.Export{
		{
			Name:     "pg-tables-csv",
			Query:    "SELECT schemaname, tablename, tableowner FROM pg_catalog.pg_tables ORDER BY schemaname, tablename",
			SinkType: model.SinkTypeFTP,
			Format:   model.FormatCSV,
			Filename: "pg_tables.csv",
			Schedule: "0 */5 * * * *",
			Enabled:  ftpConfigured,
		},
		{
			Name:      "pg-activity-json",
			Query:     "SELECT pid, state, query_start FROM pg_catalog.pg_stat_activity",
			SinkType:  model.SinkTypeHTTP,
			Format:    model.FormatJSON,
			Schedule:  "30 * * * * *",
			Transform: "{pid: pid, state: state}",
			Enabled:   httpConfigured,
		},
	}
}
