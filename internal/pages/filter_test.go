package pages_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemetry/internal/pages"
	"pagemetry/internal/timeframe"
)

func TestBuildDateFilter(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	t.Run("absent date yields no filter", func(t *testing.T) {
		filter, err := pages.BuildDateFilter("", now)
		require.NoError(t, err)
		assert.Equal(t, pages.FilterNone, filter.Mode)
	})

	t.Run("dashed date yields exact-date filter with raw value", func(t *testing.T) {
		filter, err := pages.BuildDateFilter("2024-01-15", now)
		require.NoError(t, err)
		assert.Equal(t, pages.FilterExactDate, filter.Mode)
		assert.Equal(t, "2024-01-15", filter.ExactDate)
	})

	t.Run("partial dashed date still exact", func(t *testing.T) {
		filter, err := pages.BuildDateFilter("2024-01", now)
		require.NoError(t, err)
		assert.Equal(t, pages.FilterExactDate, filter.Mode)
		assert.Equal(t, "2024-01", filter.ExactDate)
	})

	t.Run("single numeric token yields range through now", func(t *testing.T) {
		filter, err := pages.BuildDateFilter("7", now)
		require.NoError(t, err)
		assert.Equal(t, pages.FilterRange, filter.Mode)
		assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), filter.From)
		assert.Equal(t, now, filter.To)
	})

	t.Run("named token yields range", func(t *testing.T) {
		filter, err := pages.BuildDateFilter("week", now)
		require.NoError(t, err)
		assert.Equal(t, pages.FilterRange, filter.Mode)
		assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), filter.From)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		_, err := pages.BuildDateFilter("sometime", now)
		assert.ErrorIs(t, err, timeframe.ErrInvalidToken)
	})
}

func TestParseListParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, "id", params.SortBy)
		assert.Equal(t, "ASC", params.SortOrder)
		assert.Equal(t, 1, params.Page)
		assert.Equal(t, pages.DefaultPageSize, params.PageSize)
		assert.Empty(t, params.Date)
	})

	t.Run("explicit values", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{
			"sort_by":    "title",
			"sort_order": "desc",
			"page":       "3",
			"page_size":  "25",
			"date":       "7",
		})
		require.NoError(t, err)
		assert.Equal(t, "title", params.SortBy)
		assert.Equal(t, "DESC", params.SortOrder)
		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 25, params.PageSize)
		assert.Equal(t, "7", params.Date)
	})

	t.Run("unknown sort column rejected", func(t *testing.T) {
		_, err := pages.ParseListParams(map[string]string{"sort_by": "pages; DROP TABLE pages"})
		assert.ErrorIs(t, err, pages.ErrInvalidParam)
	})

	t.Run("bad sort order rejected", func(t *testing.T) {
		_, err := pages.ParseListParams(map[string]string{"sort_order": "sideways"})
		assert.ErrorIs(t, err, pages.ErrInvalidParam)
	})

	t.Run("non-positive page rejected", func(t *testing.T) {
		_, err := pages.ParseListParams(map[string]string{"page": "0"})
		assert.ErrorIs(t, err, pages.ErrInvalidParam)

		_, err = pages.ParseListParams(map[string]string{"page": "abc"})
		assert.ErrorIs(t, err, pages.ErrInvalidParam)
	})

	t.Run("oversized page size clamped", func(t *testing.T) {
		params, err := pages.ParseListParams(map[string]string{"page_size": "5000"})
		require.NoError(t, err)
		assert.Equal(t, pages.MaxPageSize, params.PageSize)
	})
}

func TestParseAnalyticsParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params, err := pages.ParseAnalyticsParams(map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, "title", params.GetBy)
		assert.Equal(t, 1, params.Page)
		assert.Equal(t, pages.DefaultAnalyticsPageSize, params.PageSize)
	})

	t.Run("explicit grouping column", func(t *testing.T) {
		params, err := pages.ParseAnalyticsParams(map[string]string{"getBy": "url", "page_size": "5"})
		require.NoError(t, err)
		assert.Equal(t, "url", params.GetBy)
		assert.Equal(t, 5, params.PageSize)
	})

	t.Run("unknown grouping column rejected", func(t *testing.T) {
		_, err := pages.ParseAnalyticsParams(map[string]string{"getBy": "id"})
		assert.ErrorIs(t, err, pages.ErrInvalidParam)
	})
}
