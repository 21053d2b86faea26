// Package clients manages the tenant boundary: every analytics query is
// scoped to exactly one client key.
package clients

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ClientNotFoundError represents an error when a client key is not registered
type ClientNotFoundError struct {
	ClientKey string
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client not found for key: %s", e.ClientKey)
}

// NewClientNotFoundError creates a new ClientNotFoundError
func NewClientNotFoundError(key string) *ClientNotFoundError {
	return &ClientNotFoundError{ClientKey: key}
}

// Client represents a registered tenant. ClientKey is the identifier carried
// on event metadata rows and in API requests.
type Client struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ClientKey string    `gorm:"uniqueIndex;not null" json:"client_key"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateClientInput carries the details supplied when registering a client.
type CreateClientInput struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// generateClientKey creates a URL-safe random key
func generateClientKey(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)[:length]
}

// CreateClientDetails registers a client for the given user, generating a
// fresh client key.
func CreateClientDetails(db *gorm.DB, logger *slog.Logger, userID uint, input CreateClientInput) (*Client, error) {
	if userID == 0 {
		return nil, errors.New("user id is required")
	}

	client := Client{
		UserID:    userID,
		ClientKey: generateClientKey(20),
		Name:      input.Name,
		Domain:    input.Domain,
		CreatedAt: time.Now().UTC(),
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&client).Error
	})
	if err != nil {
		return nil, err
	}

	return &client, nil
}

// GetClientByKey retrieves a client by its key.
func GetClientByKey(db *gorm.DB, key string) (*Client, error) {
	var client Client
	if err := db.Where("client_key = ?", key).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewClientNotFoundError(key)
		}
		return nil, fmt.Errorf("unexpected error querying client: %w", err)
	}
	return &client, nil
}

// GetClientsForUser retrieves all clients owned by a user.
func GetClientsForUser(db *gorm.DB, userID uint) ([]Client, error) {
	var result []Client
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to get clients: %w", err)
	}
	return result, nil
}

// DeleteClient deletes a client by its ID.
func DeleteClient(db *gorm.DB, logger *slog.Logger, id uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Delete(&Client{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
