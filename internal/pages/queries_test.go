package pages_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pagemetry/internal/pages"
	"pagemetry/internal/testsupport"
	"pagemetry/internal/timeframe"
)

const (
	alphaKey = "ck_alpha_1234567890"
	betaKey  = "ck_beta_1234567890x"
)

// seedPages loads a fixed data set: five pages for client alpha (two sharing
// the title "Home", one 30 days old, one on a fixed calendar date) and one
// page for client beta.
func seedPages(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()

	user := testsupport.CreateTestUser(t, db, "admin", "admin@example.com", "secret123")
	testsupport.CreateTestClient(t, db, user.ID, alphaKey)
	testsupport.CreateTestClient(t, db, user.ID, betaKey)

	m1 := testsupport.CreateTestMetadata(t, db, alphaKey, "Chrome", "Windows", "desktop", "u1", now.Add(-1*time.Hour))
	m2 := testsupport.CreateTestMetadata(t, db, alphaKey, "Firefox", "macOS", "desktop", "u2", now.Add(-2*time.Hour))
	m3 := testsupport.CreateTestMetadata(t, db, alphaKey, "Safari", "iOS", "smartphone", "u1", now.Add(-3*time.Hour))
	m4 := testsupport.CreateTestMetadata(t, db, alphaKey, "Chrome", "Linux", "desktop", "u3", now.AddDate(0, 0, -30))
	m5 := testsupport.CreateTestMetadata(t, db, alphaKey, "Edge", "Windows", "desktop", "u4", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	mBeta := testsupport.CreateTestMetadata(t, db, betaKey, "Chrome", "Windows", "desktop", "b1", now.Add(-1*time.Hour))

	testsupport.CreateTestPage(t, db, m1.ID, "Home", "http://alpha.example/", []string{"landing"}, now.Add(-1*time.Hour))
	testsupport.CreateTestPage(t, db, m2.ID, "Home", "http://alpha.example/", []string{"landing"}, now.Add(-2*time.Hour))
	testsupport.CreateTestPage(t, db, m3.ID, "About", "http://alpha.example/about", nil, now.Add(-3*time.Hour))
	testsupport.CreateTestPage(t, db, m4.ID, "Archive", "http://alpha.example/archive", nil, now.AddDate(0, 0, -30))
	testsupport.CreateTestPage(t, db, m5.ID, "Promo", "http://alpha.example/promo", nil, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	testsupport.CreateTestPage(t, db, mBeta.ID, "BetaHome", "http://beta.example/", nil, now.Add(-1*time.Hour))
}

func TestListWithMetadata(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Now().UTC()
	seedPages(t, db, now)

	defaults := func() pages.ListParams {
		params, err := pages.ParseListParams(map[string]string{})
		require.NoError(t, err)
		return params
	}

	t.Run("requires a client key", func(t *testing.T) {
		_, err := pages.ListWithMetadata(db, logger, "", defaults(), now)
		assert.ErrorIs(t, err, pages.ErrMissingClient)
	})

	t.Run("scopes rows to the requested client", func(t *testing.T) {
		result, err := pages.ListWithMetadata(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)
		assert.Len(t, result.Data, 5)
		for _, row := range result.Data {
			assert.Equal(t, alphaKey, row.ClientID)
			assert.NotZero(t, row.MetadataID)
		}
	})

	t.Run("joins event metadata fields", func(t *testing.T) {
		result, err := pages.ListWithMetadata(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)
		first := result.Data[0]
		assert.Equal(t, "Home", first.Title)
		assert.Equal(t, "Chrome", first.Browser)
		assert.Equal(t, "Windows", first.OS)
		assert.Equal(t, "desktop", first.Device)
		assert.Equal(t, "u1", first.UserID)
	})

	t.Run("default sort is ascending by id", func(t *testing.T) {
		result, err := pages.ListWithMetadata(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)
		for i := 1; i < len(result.Data); i++ {
			assert.Less(t, result.Data[i-1].ID, result.Data[i].ID)
		}
	})

	t.Run("respects sort column and direction", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"sort_by": "title", "sort_order": "DESC"})
		require.NoError(t, err)

		result, err := pages.ListWithMetadata(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		for i := 1; i < len(result.Data); i++ {
			assert.GreaterOrEqual(t, result.Data[i-1].Title, result.Data[i].Title)
		}
	})

	t.Run("paginates with metadata", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"page": "2", "page_size": "2"})
		require.NoError(t, err)

		result, err := pages.ListWithMetadata(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		assert.Len(t, result.Data, 2)
		assert.Equal(t, 2, result.Pagination.CurrentPage)
		assert.Equal(t, 2, result.Pagination.PerPage)
		assert.Equal(t, int64(5), result.Pagination.TotalItems)
		assert.Equal(t, 3, result.Pagination.TotalPages)
	})

	t.Run("relative date filters to the range through now", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"date": "7"})
		require.NoError(t, err)

		result, err := pages.ListWithMetadata(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		assert.Len(t, result.Data, 3)
		boundary := timeframe.StartOfDay(now.AddDate(0, 0, -7))
		for _, row := range result.Data {
			assert.True(t, !row.CreatedAt.Before(boundary))
			assert.True(t, !row.CreatedAt.After(now))
		}
	})

	t.Run("exact date filters on the calendar day", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"date": "2024-01-15"})
		require.NoError(t, err)

		result, err := pages.ListWithMetadata(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		require.Len(t, result.Data, 1)
		assert.Equal(t, "Promo", result.Data[0].Title)
	})

	t.Run("invalid date token is rejected", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"date": "sometime"})
		require.NoError(t, err)

		_, err = pages.ListWithMetadata(db, logger, alphaKey, params, now)
		assert.ErrorIs(t, err, timeframe.ErrInvalidToken)
	})

	t.Run("no matching rows yields not found", func(t *testing.T) {
		_, err := pages.ListWithMetadata(db, logger, "ck_unknown_00000000", defaults(), now)
		assert.ErrorIs(t, err, pages.ErrPagesNotFound)
	})
}

func TestAnalytics(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Now().UTC()
	seedPages(t, db, now)

	defaults := func() pages.AnalyticsParams {
		params, err := pages.ParseAnalyticsParams(map[string]string{})
		require.NoError(t, err)
		return params
	}

	t.Run("requires a client key", func(t *testing.T) {
		_, err := pages.Analytics(db, logger, "", defaults(), now)
		assert.ErrorIs(t, err, pages.ErrMissingClient)
	})

	t.Run("groups by title with maxima and user counts", func(t *testing.T) {
		result, err := pages.Analytics(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)
		require.Len(t, result.Data, 4)

		// Home has two rows, the rest one each; ties order by title.
		assert.Equal(t, "Home", result.Data[0].GroupValue)
		assert.Equal(t, int64(2), result.Data[0].TotalUser)
		assert.Equal(t, "Firefox", result.Data[0].MaxBrowser)
		assert.Equal(t, "macOS", result.Data[0].MaxOS)
		assert.Equal(t, "desktop", result.Data[0].MaxDevice)

		assert.Equal(t, "About", result.Data[1].GroupValue)
		assert.Equal(t, "Archive", result.Data[2].GroupValue)
		assert.Equal(t, "Promo", result.Data[3].GroupValue)
	})

	t.Run("ordering is descending by usage count", func(t *testing.T) {
		result, err := pages.Analytics(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)
		for i := 1; i < len(result.Data); i++ {
			assert.GreaterOrEqual(t, result.Data[i-1].TotalUser, result.Data[i].TotalUser)
		}
	})

	t.Run("group count never exceeds distinct values", func(t *testing.T) {
		result, err := pages.Analytics(db, logger, alphaKey, defaults(), now)
		require.NoError(t, err)

		var distinct int64
		require.NoError(t, db.Raw(`
            SELECT COUNT(DISTINCT pages.title)
            FROM pages
            INNER JOIN event_metadata ON event_metadata.id = pages.metadata_id
            WHERE event_metadata.client_id = ?`, alphaKey).Scan(&distinct).Error)
		assert.LessOrEqual(t, int64(len(result.Data)), distinct)
	})

	t.Run("groups by url with page size limit", func(t *testing.T) {
		params, err := pages.ParseAnalyticsParams(map[string]string{"getBy": "url", "page": "1", "page_size": "2"})
		require.NoError(t, err)

		result, err := pages.Analytics(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		assert.Equal(t, "url", result.GroupBy)
		assert.Len(t, result.Data, 2)
		assert.Equal(t, int64(4), result.Pagination.TotalItems)
		assert.Equal(t, 2, result.Pagination.TotalPages)

		// Two Home rows share one URL.
		assert.Equal(t, "http://alpha.example/", result.Data[0].GroupValue)
		assert.Equal(t, int64(2), result.Data[0].TotalUser)
	})

	t.Run("date filter narrows the aggregation", func(t *testing.T) {
		params := defaults()
		params.Date = "7"

		result, err := pages.Analytics(db, logger, alphaKey, params, now)
		require.NoError(t, err)
		require.Len(t, result.Data, 2)
		assert.Equal(t, "Home", result.Data[0].GroupValue)
		assert.Equal(t, "About", result.Data[1].GroupValue)
	})

	t.Run("empty result set is not an error", func(t *testing.T) {
		result, err := pages.Analytics(db, logger, "ck_unknown_00000000", defaults(), now)
		require.NoError(t, err)
		assert.Empty(t, result.Data)
		assert.Equal(t, int64(0), result.Pagination.TotalItems)
	})

	t.Run("hand-built params still pass the whitelist", func(t *testing.T) {
		params := pages.AnalyticsParams{GetBy: "id", Page: 1, PageSize: 5}
		_, err := pages.Analytics(db, logger, alphaKey, params, now)
		assert.ErrorIs(t, err, pages.ErrInvalidParam)
	})
}

func TestOverview(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Now().UTC()
	seedPages(t, db, now)

	result, err := pages.Overview(context.Background(), db, logger, alphaKey, "", now)
	require.NoError(t, err)

	require.Contains(t, result, "title")
	require.Contains(t, result, "url")
	require.Contains(t, result, "referrer")
	require.Contains(t, result, "path")

	assert.Equal(t, "Home", result["title"].Data[0].GroupValue)
	assert.Equal(t, int64(2), result["url"].Data[0].TotalUser)
}

func TestCreatePage(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Now().UTC()

	user := testsupport.CreateTestUser(t, db, "creator", "creator@example.com", "secret123")
	testsupport.CreateTestClient(t, db, user.ID, "ck_create_123456789")
	meta := testsupport.CreateTestMetadata(t, db, "ck_create_123456789", "Chrome", "Windows", "desktop", "u1", now)

	t.Run("stores and re-reads the record with keywords intact", func(t *testing.T) {
		input := pages.CreatePageInput{
			Name:     "Home",
			Path:     "/",
			URL:      "http://x/",
			Title:    "Home",
			Keywords: []string{"a", "b"},
		}

		stored, err := pages.CreatePage(db, logger, meta.ID, input)
		require.NoError(t, err)
		assert.NotZero(t, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, meta.ID, stored.MetadataID)
		assert.Equal(t, []string{"a", "b"}, []string(stored.Keywords))

		// The column itself holds JSON text.
		var raw string
		require.NoError(t, db.Raw("SELECT keywords FROM pages WHERE id = ?", stored.ID).Scan(&raw).Error)
		assert.JSONEq(t, `["a","b"]`, raw)
	})

	t.Run("nil keywords stored as empty list", func(t *testing.T) {
		stored, err := pages.CreatePage(db, logger, meta.ID, pages.CreatePageInput{Title: "Bare", URL: "http://x/bare"})
		require.NoError(t, err)

		var raw string
		require.NoError(t, db.Raw("SELECT keywords FROM pages WHERE id = ?", stored.ID).Scan(&raw).Error)
		assert.JSONEq(t, `[]`, raw)
	})

	t.Run("requires a metadata reference", func(t *testing.T) {
		_, err := pages.CreatePage(db, logger, 0, pages.CreatePageInput{Title: "Orphan"})
		assert.Error(t, err)
	})
}
