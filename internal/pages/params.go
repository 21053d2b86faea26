package pages

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPageSize          = 10
	DefaultAnalyticsPageSize = 5
	MaxPageSize              = 100
)

// sortColumns is the whitelist of pages columns accepted for sorting.
// Anything outside it is rejected before reaching SQL.
var sortColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"path":       true,
	"referrer":   true,
	"search":     true,
	"title":      true,
	"url":        true,
	"created_at": true,
}

// groupColumns is the whitelist of pages columns accepted for grouping.
var groupColumns = map[string]bool{
	"name":     true,
	"path":     true,
	"referrer": true,
	"search":   true,
	"title":    true,
	"url":      true,
}

// ListParams is the validated configuration for a listing query.
type ListParams struct {
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
	Date      string
}

// AnalyticsParams is the validated configuration for an aggregation query.
type AnalyticsParams struct {
	GetBy    string
	Page     int
	PageSize int
	Date     string
}

func parsePositiveInt(raw, name string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidParam, name, raw)
	}
	return n, nil
}

// ParseListParams validates raw query parameters for the listing query,
// applying defaults: sort by id ascending, page 1, page size 10.
func ParseListParams(raw map[string]string) (ListParams, error) {
	params := ListParams{
		SortBy:    "id",
		SortOrder: "ASC",
		Page:      1,
		PageSize:  DefaultPageSize,
		Date:      strings.TrimSpace(raw["date"]),
	}

	if v := raw["sort_by"]; v != "" {
		if !sortColumns[v] {
			return ListParams{}, fmt.Errorf("%w: unknown sort column %q", ErrInvalidParam, v)
		}
		params.SortBy = v
	}

	if v := raw["sort_order"]; v != "" {
		switch strings.ToUpper(v) {
		case "ASC":
			params.SortOrder = "ASC"
		case "DESC":
			params.SortOrder = "DESC"
		default:
			return ListParams{}, fmt.Errorf("%w: sort_order must be ASC or DESC, got %q", ErrInvalidParam, v)
		}
	}

	var err error
	if params.Page, err = parsePositiveInt(raw["page"], "page", 1); err != nil {
		return ListParams{}, err
	}
	if params.PageSize, err = parsePositiveInt(raw["page_size"], "page_size", DefaultPageSize); err != nil {
		return ListParams{}, err
	}
	if params.PageSize > MaxPageSize {
		params.PageSize = MaxPageSize
	}

	return params, nil
}

// ParseAnalyticsParams validates raw query parameters for the aggregation
// query, applying defaults: group by title, page 1, page size 5.
func ParseAnalyticsParams(raw map[string]string) (AnalyticsParams, error) {
	params := AnalyticsParams{
		GetBy:    "title",
		Page:     1,
		PageSize: DefaultAnalyticsPageSize,
		Date:     strings.TrimSpace(raw["date"]),
	}

	if v := raw["getBy"]; v != "" {
		if !groupColumns[v] {
			return AnalyticsParams{}, fmt.Errorf("%w: unknown grouping column %q", ErrInvalidParam, v)
		}
		params.GetBy = v
	}

	var err error
	if params.Page, err = parsePositiveInt(raw["page"], "page", 1); err != nil {
		return AnalyticsParams{}, err
	}
	if params.PageSize, err = parsePositiveInt(raw["page_size"], "page_size", DefaultAnalyticsPageSize); err != nil {
		return AnalyticsParams{}, err
	}
	if params.PageSize > MaxPageSize {
		params.PageSize = MaxPageSize
	}

	return params, nil
}
