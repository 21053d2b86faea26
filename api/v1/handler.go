// Package v1 is the public ingestion surface: the tracking script posts
// page-view events here.
package v1

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pagemetry/internal/clients"
	"pagemetry/internal/metadata"
	"pagemetry/internal/pages"
)

const (
	msgPageRecorded   = "Page view recorded"
	errInvalidRequest = "Invalid request"
)

type CreatePageParams struct {
	ClientID string                `json:"client_id"`
	UserID   string                `json:"user_id"`
	Page     pages.CreatePageInput `json:"page"`
}

// CreatePagePublicAPIHandler records one page-view event: it stores the
// visitor context as event metadata, then the page row referencing it.
func CreatePagePublicAPIHandler(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received page view request",
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.Path()))

	var params CreatePageParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "INVALID_BODY",
		})
	}

	if strings.TrimSpace(params.ClientID) == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "client_id is required",
			"code":  "VALIDATION_ERROR",
		})
	}
	if strings.TrimSpace(params.Page.URL) == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "page.url is required",
			"code":  "VALIDATION_ERROR",
		})
	}

	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	db := ctx.DB()
	meta, err := metadata.CreateEventMetadata(db, ctx.Logger, metadata.CreateMetadataInput{
		ClientKey: params.ClientID,
		UserAgent: userAgent,
		IP:        getClientIP(ctx.Ctx),
		UserID:    params.UserID,
	})
	if err != nil {
		if errors.Is(err, metadata.ErrBotTraffic) {
			// Acknowledged but never stored.
			return ctx.SendStatus(http.StatusAccepted)
		}

		var notFound *clients.ClientNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": "Client not registered",
				"code":  "CLIENT_NOT_FOUND",
			})
		}

		ctx.Logger.Error("Failed to create event metadata", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record page view",
			"code":  "COLLECTION_ERROR",
		})
	}

	if _, err := pages.CreatePage(db, ctx.Logger, meta.ID, params.Page); err != nil {
		ctx.Logger.Error("Failed to create page record", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record page view",
			"code":  "COLLECTION_ERROR",
		})
	}

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgPageRecorded,
		"status":  http.StatusAccepted,
	})
}
