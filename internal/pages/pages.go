// Package pages records page-view events and answers the two analytics
// queries the API exposes: a joined listing and a grouped aggregation, both
// client-scoped and paginated.
package pages

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"pagemetry/internal/models"
)

// ErrPagesNotFound is returned when a listing query matches no rows.
var ErrPagesNotFound = errors.New("pages not found")

// ErrMissingClient is returned when a query is attempted without a client
// scope. Analytics queries never run unscoped.
var ErrMissingClient = errors.New("client key is required")

// ErrInvalidParam is returned when a query parameter fails validation,
// e.g. an unknown sort column or a non-positive page index.
var ErrInvalidParam = errors.New("invalid query parameter")

// QueryError wraps a database failure during a listing or aggregation query.
// The cause is logged at the service boundary and not exposed to API callers.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Page represents one tracked page-view event. Keywords are persisted as a
// JSON text column.
type Page struct {
	ID         uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	MetadataID uint              `gorm:"index;not null" json:"metadata_id"`
	Name       string            `json:"name"`
	Path       string            `json:"path"`
	Referrer   string            `json:"referrer"`
	Search     string            `json:"search"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Keywords   models.StringList `gorm:"type:text" json:"keywords"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CreatePageInput carries the page-view fields sent by the tracking script.
type CreatePageInput struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Referrer string   `json:"referrer"`
	Search   string   `json:"search"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Keywords []string `json:"keywords"`
}

// CreatePage persists a page-view event against an existing metadata row and
// returns the stored record re-read from the database so generated fields are
// populated. Storage errors propagate unchanged.
func CreatePage(db *gorm.DB, logger *slog.Logger, metadataID uint, input CreatePageInput) (*Page, error) {
	if metadataID == 0 {
		return nil, errors.New("metadata id is required")
	}

	page := Page{
		MetadataID: metadataID,
		Name:       input.Name,
		Path:       input.Path,
		Referrer:   input.Referrer,
		Search:     input.Search,
		Title:      input.Title,
		URL:        input.URL,
		Keywords:   models.StringList(input.Keywords),
		CreatedAt:  time.Now().UTC(),
	}

	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&page).Error
	})
	if err != nil {
		return nil, err
	}

	var stored Page
	if err := db.First(&stored, page.ID).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
