package jobs

import (
	"log/slog"

	"pagemetry/internal/pkg/geoip"
)

// GeoReloadJob re-opens the GeoLite2 database so a replaced mmdb file is
// picked up without a restart.
type GeoReloadJob struct {
	logger *slog.Logger
}

func NewGeoReloadJob(logger *slog.Logger) *GeoReloadJob {
	return &GeoReloadJob{logger: logger}
}

func (j *GeoReloadJob) Run() error {
	geoip.Reload()
	j.logger.Debug("GeoLite2 database reloaded")
	return nil
}
