package handlers

import (
	"errors"
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.GetRequestID(c)
}

// respondServiceError translates a service-layer error into the
// response envelope. Taxonomy errors carry their own message; anything
// else is an opaque 500 with the fallback text.
func respondServiceError(c *fiber.Ctx, err error, fallback string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return utils.Error(c, apperrors.StatusCode(err), appErr.Msg)
	}
	return utils.Error(c, fiber.StatusInternalServerError, fallback)
}
