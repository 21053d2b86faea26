// Package seeder generates development data: an admin user, a client, and a
// spread of page-view events over the last month.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"pagemetry/internal/clients"
	"pagemetry/internal/metadata"
	"pagemetry/internal/models"
	"pagemetry/internal/pages"
	"pagemetry/internal/users"
)

// Seeder handles the data seeding process for development environments.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	PageCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, pageCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		PageCount: pageCount,
	}
}

var (
	seedBrowsers = []string{"Chrome", "Firefox", "Safari", "Microsoft Edge"}
	seedOSes     = []string{"Windows", "macOS", "Linux", "iOS", "Android"}
	seedDevices  = []string{"desktop", "desktop", "desktop", "smartphone", "tablet"}
	seedPages    = []struct {
		Path     string
		Title    string
		Keywords []string
	}{
		{"/", "Home", []string{"landing", "home"}},
		{"/pricing", "Pricing", []string{"pricing", "plans"}},
		{"/blog", "Blog", []string{"blog"}},
		{"/blog/analytics-guide", "The Analytics Guide", []string{"analytics", "guide"}},
		{"/about", "About Us", nil},
		{"/docs", "Documentation", []string{"docs"}},
	}
	seedReferrers = []string{"", "https://google.com", "https://news.ycombinator.com", "https://duckduckgo.com"}
)

// Seed creates the demo user and client if needed, then generates page-views.
func (s *Seeder) Seed(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding development data...", slog.Int("pageCount", s.PageCount))

	db := s.DBManager.GetConnection()

	user, err := s.ensureUser(db)
	if err != nil {
		return err
	}

	client, err := s.ensureClient(db, user.ID)
	if err != nil {
		return err
	}

	for i := 0; i < s.PageCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.seedPageView(db, client.ClientKey); err != nil {
			return fmt.Errorf("failed to seed page view %d: %w", i, err)
		}
	}

	s.Logger.Info("Seeding completed",
		slog.String("client_key", client.ClientKey),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) ensureUser(db *gorm.DB) (*users.User, error) {
	user, err := users.FindByEmail(db, "demo@pagemetry.local")
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return users.CreateUser(db, s.Logger, users.CreateUserInput{
		Username:  "demo",
		Email:     "demo@pagemetry.local",
		Password:  "demo-password-123",
		FirstName: "Demo",
		LastName:  "User",
	})
}

func (s *Seeder) ensureClient(db *gorm.DB, userID uint) (*clients.Client, error) {
	existing, err := clients.GetClientsForUser(db, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	return clients.CreateClientDetails(db, s.Logger, userID, clients.CreateClientInput{
		Name:   "Demo Site",
		Domain: "demo.pagemetry.local",
	})
}

func (s *Seeder) seedPageView(db *gorm.DB, clientKey string) error {
	createdAt := time.Now().UTC().
		AddDate(0, 0, -rand.IntN(30)).
		Add(-time.Duration(rand.IntN(86400)) * time.Second)

	meta := metadata.EventMetadata{
		ClientID:  clientKey,
		Browser:   seedBrowsers[rand.IntN(len(seedBrowsers))],
		OS:        seedOSes[rand.IntN(len(seedOSes))],
		Device:    seedDevices[rand.IntN(len(seedDevices))],
		UserID:    fmt.Sprintf("visitor-%d", rand.IntN(s.PageCount/2+1)),
		CreatedAt: createdAt,
	}
	if err := db.Create(&meta).Error; err != nil {
		return err
	}

	entry := seedPages[rand.IntN(len(seedPages))]
	page := pages.Page{
		MetadataID: meta.ID,
		Name:       entry.Title,
		Path:       entry.Path,
		Referrer:   seedReferrers[rand.IntN(len(seedReferrers))],
		Title:      entry.Title,
		URL:        "https://demo.pagemetry.local" + entry.Path,
		Keywords:   models.StringList(entry.Keywords),
		CreatedAt:  createdAt,
	}
	return db.Create(&page).Error
}
