package http

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pagemetry/internal/http/middleware"
	"pagemetry/internal/pages"
	"pagemetry/internal/timeframe"
)

var titleCaser = cases.Title(language.English)

// displayLabel turns a column name into a human label, e.g. "max_browser"
// becomes "Max Browser".
func displayLabel(column string) string {
	return titleCaser.String(strings.ReplaceAll(column, "_", " "))
}

func clientKeyFromRequest(ctx *cartridge.Context) string {
	if key, ok := ctx.Locals(middleware.ClientKeyLocal).(string); ok && key != "" {
		return key
	}
	return strings.TrimSpace(ctx.Query("client_id", ""))
}

// respondPagesError maps query failures to API statuses: validation and bad
// date tokens to 422, empty listings to 404, database failures to 403 with
// the cause kept out of the response.
func respondPagesError(ctx *cartridge.Context, err error) error {
	switch {
	case errors.Is(err, pages.ErrMissingClient), errors.Is(err, pages.ErrInvalidParam), errors.Is(err, timeframe.ErrInvalidToken):
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "VALIDATION_ERROR",
		})
	case errors.Is(err, pages.ErrPagesNotFound):
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Pages not found",
			"code":  "NOT_FOUND",
		})
	default:
		var queryErr *pages.QueryError
		if errors.As(err, &queryErr) {
			return ctx.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": "Query failed",
				"code":  "QUERY_FAILURE",
			})
		}
		ctx.Logger.Error("Unhandled pages error", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}
}

func listQueryBag(ctx *cartridge.Context) map[string]string {
	return map[string]string{
		"sort_by":    ctx.Query("sort_by", ""),
		"sort_order": ctx.Query("sort_order", ""),
		"page":       ctx.Query("page", ""),
		"page_size":  ctx.Query("page_size", ""),
		"date":       ctx.Query("date", ""),
		"getBy":      ctx.Query("getBy", ""),
	}
}

// PagesIndexAction serves the joined page-view listing for one client.
func PagesIndexAction(ctx *cartridge.Context) error {
	params, err := pages.ParseListParams(listQueryBag(ctx))
	if err != nil {
		return respondPagesError(ctx, err)
	}

	now := timeframe.DefaultTimeProvider{}.Now()
	result, err := pages.ListWithMetadata(ctx.DB(), ctx.Logger, clientKeyFromRequest(ctx), params, now)
	if err != nil {
		return respondPagesError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"data": result})
}

// PagesAnalyticsAction serves the grouped aggregation for one client.
func PagesAnalyticsAction(ctx *cartridge.Context) error {
	params, err := pages.ParseAnalyticsParams(listQueryBag(ctx))
	if err != nil {
		return respondPagesError(ctx, err)
	}

	now := timeframe.DefaultTimeProvider{}.Now()
	result, err := pages.Analytics(ctx.DB(), ctx.Logger, clientKeyFromRequest(ctx), params, now)
	if err != nil {
		return respondPagesError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data": result,
		"labels": fiber.Map{
			"group_by":    displayLabel(result.GroupBy),
			"max_browser": displayLabel("max_browser"),
			"max_os":      "Max OS",
			"max_device":  displayLabel("max_device"),
			"total_user":  displayLabel("total_user"),
		},
	})
}

// PagesOverviewAction serves the multi-column breakdown used by dashboards.
func PagesOverviewAction(ctx *cartridge.Context) error {
	now := timeframe.DefaultTimeProvider{}.Now()
	result, err := pages.Overview(ctx.Ctx.UserContext(), ctx.DB(), ctx.Logger, clientKeyFromRequest(ctx), ctx.Query("date", ""), now)
	if err != nil {
		return respondPagesError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"data": result})
}
