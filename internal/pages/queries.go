package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"pagemetry/internal/pkg/async"
)

// Pagination describes the position of a result page within the full result set.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
}

func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		CurrentPage: page,
		PerPage:     pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
	}
}

// PageWithMetadata is a listing row: the page-view plus its joined visitor
// context.
type PageWithMetadata struct {
	Page
	ClientID string `gorm:"column:client_id" json:"client_id"`
	Browser  string `gorm:"column:browser" json:"browser"`
	OS       string `gorm:"column:os" json:"os"`
	Device   string `gorm:"column:device" json:"device"`
	Country  string `gorm:"column:country" json:"country"`
	UserID   string `gorm:"column:user_id" json:"user_id"`
}

// PageListing is the result of a listing query.
type PageListing struct {
	Data       []PageWithMetadata `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// AnalyticsGroup is one aggregation bucket: a grouping value with the maxima
// of its visitor context fields and the number of user references.
type AnalyticsGroup struct {
	GroupValue string `gorm:"column:group_value" json:"group_value"`
	MaxBrowser string `gorm:"column:max_browser" json:"max_browser"`
	MaxOS      string `gorm:"column:max_os" json:"max_os"`
	MaxDevice  string `gorm:"column:max_device" json:"max_device"`
	TotalUser  int64  `gorm:"column:total_user" json:"total_user"`
}

// AnalyticsListing is the result of an aggregation query.
type AnalyticsListing struct {
	GroupBy    string           `json:"group_by"`
	Data       []AnalyticsGroup `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ListWithMetadata returns a paginated, client-scoped listing of page-views
// joined with their event metadata. It returns ErrMissingClient for an empty
// client key, ErrPagesNotFound when no rows match, and *QueryError for
// database failures (cause logged, not exposed).
func ListWithMetadata(db *gorm.DB, logger *slog.Logger, clientKey string, params ListParams, now time.Time) (*PageListing, error) {
	if clientKey == "" {
		return nil, ErrMissingClient
	}

	filter, err := BuildDateFilter(params.Date, now)
	if err != nil {
		return nil, err
	}

	query := db.Table("pages").
		Joins("INNER JOIN event_metadata ON event_metadata.id = pages.metadata_id").
		Where("event_metadata.client_id = ?", clientKey)
	query = filter.apply(query)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Page listing count failed",
			slog.String("client_key", clientKey),
			slog.Any("error", err))
		return nil, &QueryError{Op: "list", Err: err}
	}
	if total == 0 {
		return nil, ErrPagesNotFound
	}

	var rows []PageWithMetadata
	err = query.
		Select("pages.*, event_metadata.client_id, event_metadata.browser, event_metadata.os, event_metadata.device, event_metadata.country, event_metadata.user_id").
		Order(fmt.Sprintf("pages.%s %s", params.SortBy, params.SortOrder)).
		Limit(params.PageSize).
		Offset((params.Page - 1) * params.PageSize).
		Find(&rows).Error
	if err != nil {
		logger.Error("Page listing fetch failed",
			slog.String("client_key", clientKey),
			slog.Any("error", err))
		return nil, &QueryError{Op: "list", Err: err}
	}

	return &PageListing{
		Data:       rows,
		Pagination: paginate(params.Page, params.PageSize, total),
	}, nil
}

// Analytics returns a paginated breakdown of page-view activity grouped by
// one pages column. Groups carry max(browser), max(os), max(device) and the
// count of user references, ordered by that count descending with the
// grouping value ascending as tie-break. An empty result set is returned as
// an empty listing; database failures surface as *QueryError.
func Analytics(db *gorm.DB, logger *slog.Logger, clientKey string, params AnalyticsParams, now time.Time) (*AnalyticsListing, error) {
	if clientKey == "" {
		return nil, ErrMissingClient
	}
	// The grouping column is interpolated into SQL, so it must come from the
	// whitelist even when params were built by hand.
	if !groupColumns[params.GetBy] {
		return nil, fmt.Errorf("%w: unknown grouping column %q", ErrInvalidParam, params.GetBy)
	}

	filter, err := BuildDateFilter(params.Date, now)
	if err != nil {
		return nil, err
	}

	conditions := []string{"event_metadata.client_id = ?"}
	args := []interface{}{clientKey}
	switch filter.Mode {
	case FilterExactDate:
		conditions = append(conditions, "date(pages.created_at) = date(?)")
		args = append(args, filter.ExactDate)
	case FilterRange:
		conditions = append(conditions, "pages.created_at BETWEEN ? AND ?")
		args = append(args, filter.From, filter.To)
	}
	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`
    SELECT COUNT(*) FROM (
        SELECT pages.%[1]s
        FROM pages
        INNER JOIN event_metadata ON event_metadata.id = pages.metadata_id
        WHERE %[2]s
        GROUP BY pages.%[1]s
    )
    `, params.GetBy, where)

	var total int64
	if err := db.Raw(countQuery, args...).Scan(&total).Error; err != nil {
		logger.Error("Page aggregation count failed",
			slog.String("client_key", clientKey),
			slog.String("group_by", params.GetBy),
			slog.Any("error", err))
		return nil, &QueryError{Op: "analytics", Err: err}
	}

	groupQuery := fmt.Sprintf(`
    SELECT
        pages.%[1]s AS group_value,
        MAX(event_metadata.browser) AS max_browser,
        MAX(event_metadata.os) AS max_os,
        MAX(event_metadata.device) AS max_device,
        COUNT(event_metadata.user_id) AS total_user
    FROM pages
    INNER JOIN event_metadata ON event_metadata.id = pages.metadata_id
    WHERE %[2]s
    GROUP BY pages.%[1]s
    ORDER BY total_user DESC, pages.%[1]s ASC
    LIMIT ? OFFSET ?
    `, params.GetBy, where)

	groupArgs := append(args, params.PageSize, (params.Page-1)*params.PageSize)

	var groups []AnalyticsGroup
	if err := db.Raw(groupQuery, groupArgs...).Scan(&groups).Error; err != nil {
		logger.Error("Page aggregation fetch failed",
			slog.String("client_key", clientKey),
			slog.String("group_by", params.GetBy),
			slog.Any("error", err))
		return nil, &QueryError{Op: "analytics", Err: err}
	}

	return &AnalyticsListing{
		GroupBy:    params.GetBy,
		Data:       groups,
		Pagination: paginate(params.Page, params.PageSize, total),
	}, nil
}

// overviewColumns are the breakdowns computed by Overview.
var overviewColumns = []string{"title", "url", "referrer", "path"}

// Overview computes the top groups for several columns concurrently. Each
// breakdown is an independent read-only aggregation, so they run on a small
// worker pool.
func Overview(ctx context.Context, db *gorm.DB, logger *slog.Logger, clientKey, date string, now time.Time) (map[string]*AnalyticsListing, error) {
	if clientKey == "" {
		return nil, ErrMissingClient
	}

	jobs := make([]async.Job, 0, len(overviewColumns))
	for _, column := range overviewColumns {
		column := column
		jobs = append(jobs, async.Job{
			Name: column,
			Run: func() (interface{}, error) {
				params := AnalyticsParams{
					GetBy:    column,
					Page:     1,
					PageSize: DefaultAnalyticsPageSize,
					Date:     date,
				}
				return Analytics(db, logger, clientKey, params, now)
			},
		})
	}

	outcomes := async.RunAll(ctx, 3, jobs)

	result := make(map[string]*AnalyticsListing, len(outcomes))
	for name, outcome := range outcomes {
		if outcome.Err != nil {
			return nil, outcome.Err
		}
		result[name] = outcome.Data.(*AnalyticsListing)
	}
	return result, nil
}
