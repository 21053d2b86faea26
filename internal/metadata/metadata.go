// Package metadata stores the per-event visitor context (browser, OS, device,
// country) that page views attach to.
package metadata

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"pagemetry/internal/clients"
	"pagemetry/internal/models"
	"pagemetry/internal/pkg/geoip"
	"pagemetry/internal/useragent"
)

// ErrBotTraffic is returned when the user agent belongs to a known crawler.
// Bot events are acknowledged but never stored.
var ErrBotTraffic = errors.New("bot traffic discarded")

// EventMetadata is the visitor context captured once per event. ClientID is
// the owning client's key; UserID is the anonymous visitor identifier sent by
// the tracking script.
type EventMetadata struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID  string    `gorm:"index;not null" json:"client_id"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	Country   string    `json:"country"`
	UserID    string    `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventMetadata) TableName() string {
	return "event_metadata"
}

// CreateMetadataInput carries the raw request context for one event.
type CreateMetadataInput struct {
	ClientKey string
	UserAgent string
	IP        string
	UserID    string
}

// CreateEventMetadata validates the client key, classifies the user agent and
// resolves the visitor country, then stores the metadata row. It returns
// ErrBotTraffic for crawler user agents and *clients.ClientNotFoundError for
// unregistered keys.
func CreateEventMetadata(db *gorm.DB, logger *slog.Logger, input CreateMetadataInput) (*EventMetadata, error) {
	if input.ClientKey == "" {
		return nil, errors.New("client key is required")
	}

	client, err := clients.GetClientByKey(db, input.ClientKey)
	if err != nil {
		return nil, err
	}

	agent := useragent.Parse(input.UserAgent)
	if agent.Bot {
		logger.Debug("Discarding bot event",
			slog.String("client_key", client.ClientKey),
			slog.String("bot", agent.Browser))
		return nil, ErrBotTraffic
	}

	row := EventMetadata{
		ClientID:  client.ClientKey,
		Browser:   agent.Browser,
		OS:        agent.OS,
		Device:    agent.Device,
		Country:   geoip.Resolve(input.IP).Code,
		UserID:    input.UserID,
		CreatedAt: time.Now().UTC(),
	}

	err = models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event metadata: %w", err)
	}

	return &row, nil
}

// GetMetadataByID retrieves a metadata row by primary key.
func GetMetadataByID(db *gorm.DB, id uint) (*EventMetadata, error) {
	var row EventMetadata
	if err := db.First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// TotalMetadataCount returns the number of metadata rows for a client key.
func TotalMetadataCount(db *gorm.DB, clientKey string) (int64, error) {
	var count int64
	err := db.Model(&EventMetadata{}).Where("client_id = ?", clientKey).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
