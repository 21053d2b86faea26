// Package middleware holds request guards for the admin API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pagemetry/internal/clients"
)

// ClientKeyLocal is the fiber.Ctx local under which the validated client key
// is stored.
const ClientKeyLocal = "client_key"

// RequireClientKey validates the client scope on analytics endpoints. The key
// comes from the X-Client-Key header or the client_id query parameter.
// Requests without a key are rejected with 422, unregistered keys with 401.
func RequireClientKey(dbManager cartridge.DBManager, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get("X-Client-Key"))
		if key == "" {
			key = strings.TrimSpace(c.Query("client_id"))
		}

		if key == "" {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "client_id is required",
				"code":  "VALIDATION_ERROR",
			})
		}

		db := dbManager.GetConnection()
		if _, err := clients.GetClientByKey(db, key); err != nil {
			var notFound *clients.ClientNotFoundError
			if errors.As(err, &notFound) {
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unknown client key",
					"code":  "CLIENT_NOT_FOUND",
				})
			}
			logger.Error("Client key validation failed", slog.Any("error", err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to validate client key",
			})
		}

		c.Locals(ClientKeyLocal, key)
		return c.Next()
	}
}
