package http

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"pagemetry/internal/clients"
	"pagemetry/internal/users"
)

// UsersCheckAction reports whether a username or email is already taken.
func UsersCheckAction(ctx *cartridge.Context) error {
	username := ctx.Query("username", "")
	email := ctx.Query("email", "")
	if username == "" && email == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "username or email is required",
			"code":  "VALIDATION_ERROR",
		})
	}

	availability, err := users.CheckAvailability(ctx.DB(), username, email)
	if err != nil {
		ctx.Logger.Error("Availability check failed", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check availability",
		})
	}

	return ctx.JSON(fiber.Map{"data": availability})
}

// UsersIndexAction lists all registered users.
func UsersIndexAction(ctx *cartridge.Context) error {
	all, err := users.GetAllUsers(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to list users", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list users",
		})
	}
	return ctx.JSON(fiber.Map{"data": all})
}

// UsersShowAction returns one user by ID.
func UsersShowAction(ctx *cartridge.Context) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id < 1 {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid user id",
			"code":  "VALIDATION_ERROR",
		})
	}

	user, err := users.FindByID(ctx.DB(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
				"code":  "NOT_FOUND",
			})
		}
		ctx.Logger.Error("Failed to fetch user", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user",
		})
	}

	return ctx.JSON(fiber.Map{"data": user})
}

// CreateUserClientParams is the payload for registering a user together with
// their first client.
type CreateUserClientParams struct {
	users.CreateUserInput
	Client clients.CreateClientInput `json:"client"`
}

// UsersCreateClientAction registers a user and their client details in one
// call, returning the generated client key.
func UsersCreateClientAction(ctx *cartridge.Context) error {
	var params CreateUserClientParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request",
			"code":  "INVALID_BODY",
		})
	}

	db := ctx.DB()
	user, err := users.CreateUser(db, ctx.Logger, params.CreateUserInput)
	if err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return ctx.Status(http.StatusConflict).JSON(fiber.Map{
				"error": "Username or email already taken",
				"code":  "CONFLICT",
			})
		}
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "VALIDATION_ERROR",
		})
	}

	client, err := clients.CreateClientDetails(db, ctx.Logger, user.ID, params.Client)
	if err != nil {
		ctx.Logger.Error("Failed to create client details", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create client details",
		})
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user":   user,
			"client": client,
		},
	})
}

// UsersUpdateAction modifies a user's mutable fields.
func UsersUpdateAction(ctx *cartridge.Context) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id < 1 {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid user id",
			"code":  "VALIDATION_ERROR",
		})
	}

	var input users.UpdateUserInput
	if err := ctx.Ctx.BodyParser(&input); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request",
			"code":  "INVALID_BODY",
		})
	}

	user, err := users.UpdateUser(ctx.DB(), ctx.Logger, uint(id), input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
				"code":  "NOT_FOUND",
			})
		}
		ctx.Logger.Error("Failed to update user", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	return ctx.JSON(fiber.Map{"data": user})
}

// UsersDeleteAction removes a user.
func UsersDeleteAction(ctx *cartridge.Context) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id < 1 {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid user id",
			"code":  "VALIDATION_ERROR",
		})
	}

	if err := users.DeleteUser(ctx.DB(), ctx.Logger, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
				"code":  "NOT_FOUND",
			})
		}
		ctx.Logger.Error("Failed to delete user", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}

	return ctx.SendStatus(http.StatusNoContent)
}
