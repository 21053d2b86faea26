// Package geoip resolves visitor IP addresses to countries using an optional
// GeoLite2 database. When the database is absent every lookup returns the
// empty country, so ingestion keeps working without it.
package geoip

import (
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"

	"pagemetry/internal/config"
)

// Country holds the resolved location of a visitor IP.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	geoDB     *geoip2.Reader
	countries *gountries.Query
	once      sync.Once
	mu        sync.RWMutex
	logger    *slog.Logger
)

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

func openDatabase() *geoip2.Reader {
	cfg := config.GetConfig()
	if cfg.GeoDBPath == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured - country resolution disabled")
		}
		return nil
	}

	if _, err := os.Stat(cfg.GeoDBPath); os.IsNotExist(err) {
		if logger != nil {
			logger.Info("GeoLite2 database not found - country resolution disabled",
				slog.String("path", cfg.GeoDBPath),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
		return nil
	} else if err != nil {
		if logger != nil {
			logger.Warn("Error checking GeoLite2 database file",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	db, err := geoip2.Open(cfg.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoLite2 database initialized",
			slog.String("path", cfg.GeoDBPath))
	}
	return db
}

func getDatabase() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = openDatabase()
		countries = gountries.New()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// Reload re-opens the GeoLite2 database from disk. Call after replacing the
// database file.
func Reload() {
	getDatabase()

	mu.Lock()
	defer mu.Unlock()

	if geoDB != nil {
		geoDB.Close()
	}
	geoDB = openDatabase()
}

// Resolve looks up the country for an IP address. It returns the zero Country
// when the database is unavailable or the IP cannot be located.
func Resolve(ip string) Country {
	db := getDatabase()
	if db == nil {
		return Country{}
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Country{}
	}

	record, err := db.Country(parsed)
	if err != nil || record.Country.IsoCode == "" {
		return Country{}
	}

	result := Country{Code: record.Country.IsoCode}
	if found, err := countries.FindCountryByAlpha(record.Country.IsoCode); err == nil {
		result.Name = found.Name.Common
	}
	return result
}

// CountryName resolves an ISO alpha-2 code to its common English name.
// Unknown codes are returned unchanged.
func CountryName(code string) string {
	getDatabase()
	if code == "" {
		return ""
	}
	if found, err := countries.FindCountryByAlpha(code); err == nil {
		return found.Name.Common
	}
	return code
}
