package metadata_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemetry/internal/clients"
	"pagemetry/internal/metadata"
	"pagemetry/internal/testsupport"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestCreateEventMetadata(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	user := testsupport.CreateTestUser(t, db, "owner", "owner@example.com", "pw123456")
	testsupport.CreateTestClient(t, db, user.ID, "ck_meta_123456789012")

	t.Run("classifies the user agent and stores the row", func(t *testing.T) {
		row, err := metadata.CreateEventMetadata(db, logger, metadata.CreateMetadataInput{
			ClientKey: "ck_meta_123456789012",
			UserAgent: chromeUA,
			IP:        "203.0.113.10",
			UserID:    "visitor-1",
		})
		require.NoError(t, err)
		assert.NotZero(t, row.ID)
		assert.Equal(t, "ck_meta_123456789012", row.ClientID)
		assert.Equal(t, "Chrome", row.Browser)
		assert.Equal(t, "Windows", row.OS)
		assert.Equal(t, "desktop", row.Device)
		assert.Equal(t, "visitor-1", row.UserID)

		fetched, err := metadata.GetMetadataByID(db, row.ID)
		require.NoError(t, err)
		assert.Equal(t, row.Browser, fetched.Browser)
	})

	t.Run("discards bot traffic", func(t *testing.T) {
		before, err := metadata.TotalMetadataCount(db, "ck_meta_123456789012")
		require.NoError(t, err)

		_, err = metadata.CreateEventMetadata(db, logger, metadata.CreateMetadataInput{
			ClientKey: "ck_meta_123456789012",
			UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		})
		assert.ErrorIs(t, err, metadata.ErrBotTraffic)

		after, err := metadata.TotalMetadataCount(db, "ck_meta_123456789012")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("rejects unregistered client keys", func(t *testing.T) {
		_, err := metadata.CreateEventMetadata(db, logger, metadata.CreateMetadataInput{
			ClientKey: "ck_unknown_000000000",
			UserAgent: chromeUA,
		})
		var notFound *clients.ClientNotFoundError
		assert.True(t, errors.As(err, &notFound))
	})

	t.Run("rejects empty client key", func(t *testing.T) {
		_, err := metadata.CreateEventMetadata(db, logger, metadata.CreateMetadataInput{UserAgent: chromeUA})
		assert.Error(t, err)
	})
}

func TestTotalMetadataCount(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	user := testsupport.CreateTestUser(t, db, "owner", "owner@example.com", "pw123456")
	testsupport.CreateTestClient(t, db, user.ID, "ck_count_12345678901")
	testsupport.CreateTestClient(t, db, user.ID, "ck_other_12345678901")

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		testsupport.CreateTestMetadata(t, db, "ck_count_12345678901", "Chrome", "Windows", "desktop", "u1", now)
	}
	testsupport.CreateTestMetadata(t, db, "ck_other_12345678901", "Chrome", "Windows", "desktop", "u1", now)

	count, err := metadata.TotalMetadataCount(db, "ck_count_12345678901")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
