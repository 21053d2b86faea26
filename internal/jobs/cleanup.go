package jobs

import (
	"log/slog"
	"time"

	"pagemetry/internal/config"
	"pagemetry/internal/database"
	"pagemetry/internal/metadata"
	"pagemetry/internal/pages"
)

// CleanupJob enforces the page retention period: old page-views go first,
// then the metadata rows nothing references anymore.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes page-views older than the retention period, then orphaned
// metadata. Deletes run in batches to keep write locks short.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.PageRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Page retention disabled, skipping cleanup")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old page views",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("created_at < ?", cutoffDate).
			Limit(batchSize).
			Delete(&pages.Page{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old page views",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	orphansDeleted := int64(0)
	for {
		result := db.Where("id NOT IN (SELECT metadata_id FROM pages)").
			Limit(batchSize).
			Delete(&metadata.EventMetadata{})

		if result.Error != nil {
			j.logger.Error("Failed to delete orphaned metadata",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", orphansDeleted))
			return result.Error
		}

		orphansDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleanup finished",
		slog.Int64("pages_deleted", totalDeleted),
		slog.Int64("metadata_deleted", orphansDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
