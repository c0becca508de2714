package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
)

// StatusFor maps a domain failure kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.WalletNotFound:
		return http.StatusNotFound
	case apperr.DuplicateGlobalID:
		return http.StatusConflict
	case apperr.InsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// ToFiberError converts a service error into a fiber error. Errors without a
// domain kind become opaque 500s.
func ToFiberError(err error) error {
	if kind, ok := apperr.KindOf(err); ok {
		var domainErr *apperr.Error
		errors.As(err, &domainErr)
		return &fiber.Error{Code: StatusFor(kind), Message: domainErr.Message}
	}
	return &fiber.Error{Code: http.StatusInternalServerError, Message: "internal server error"}
}

// ErrorHandler renders every error as {"message": "..."} and logs 5xx causes.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := http.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
