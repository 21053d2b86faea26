package pages

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"pagemetry/internal/timeframe"
)

// FilterMode identifies how a date token constrains a query.
type FilterMode int

const (
	// FilterNone applies no date predicate.
	FilterNone FilterMode = iota
	// FilterExactDate matches rows whose creation date equals a calendar date.
	FilterExactDate
	// FilterRange matches rows between a normalized boundary and now.
	FilterRange
)

// DateFilter is the resolved date predicate for a query.
type DateFilter struct {
	Mode      FilterMode
	ExactDate string
	From      time.Time
	To        time.Time
}

// BuildDateFilter decides the filter mode from a raw date token:
//   - empty token: no filter
//   - token containing "-" (e.g. "2024-01-15"): exact calendar-date match
//   - single token (e.g. "7", "week"): range from the normalized boundary
//     through now
//
// Invalid relative tokens yield timeframe.ErrInvalidToken.
func BuildDateFilter(token string, now time.Time) (DateFilter, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return DateFilter{Mode: FilterNone}, nil
	}

	if len(strings.Split(token, "-")) > 1 {
		return DateFilter{Mode: FilterExactDate, ExactDate: token}, nil
	}

	from, err := timeframe.Normalize(token, now)
	if err != nil {
		return DateFilter{}, err
	}
	return DateFilter{Mode: FilterRange, From: from, To: now}, nil
}

// apply adds the date predicate to a query over the pages table.
func (f DateFilter) apply(query *gorm.DB) *gorm.DB {
	switch f.Mode {
	case FilterExactDate:
		return query.Where("date(pages.created_at) = date(?)", f.ExactDate)
	case FilterRange:
		return query.Where("pages.created_at BETWEEN ? AND ?", f.From, f.To)
	default:
		return query
	}
}
