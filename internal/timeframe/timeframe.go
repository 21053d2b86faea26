// Package timeframe normalizes relative date tokens into concrete time
// boundaries for analytics queries.
package timeframe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned when a date token cannot be normalized.
var ErrInvalidToken = errors.New("invalid date token")

// TimeProvider abstracts the current time so tests can pin it.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider returns the real current time in UTC.
type DefaultTimeProvider struct{}

func (DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Normalize converts a relative date token into the start boundary of a
// date range ending at now. Supported tokens:
//   - a non-negative integer N: start of the day N days before now
//   - "today", "yesterday", "week" (7 days back), "month" (30 days back)
//
// Anything else yields ErrInvalidToken.
func Normalize(token string, now time.Time) (time.Time, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return time.Time{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	daysBack := 0
	switch token {
	case "today":
		daysBack = 0
	case "yesterday":
		daysBack = 1
	case "week":
		daysBack = 7
	case "month":
		daysBack = 30
	default:
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidToken, token)
		}
		daysBack = n
	}

	boundary := now.UTC().AddDate(0, 0, -daysBack)
	return StartOfDay(boundary), nil
}

// StartOfDay truncates a time to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
