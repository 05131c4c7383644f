package handlers

import (
	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FavoritesHandler struct {
	Collections *services.CollectionService
	Access      *services.AccessService
	Audit       *services.AuditService
}

func NewFavoritesHandler(collections *services.CollectionService, access *services.AccessService, audit *services.AuditService) *FavoritesHandler {
	return &FavoritesHandler{Collections: collections, Access: access, Audit: audit}
}

func (h *FavoritesHandler) Add(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}
	entryID, err := parseUUID(c.Params("entryId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid entry id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	if err := h.Collections.AddToFavorites(c.Context(), spaceID, currentUser.ID, entryID); err != nil {
		return respondServiceError(c, err, "failed adding favorite")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "favorite.add",
		ResourceType: "file_system_entry",
		ResourceID:   &entryID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FavoritesHandler) Remove(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}
	entryID, err := parseUUID(c.Params("entryId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid entry id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	if err := h.Collections.RemoveFromFavorites(c.Context(), spaceID, currentUser.ID, entryID); err != nil {
		return respondServiceError(c, err, "failed removing favorite")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "favorite.remove",
		ResourceType: "file_system_entry",
		ResourceID:   &entryID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FavoritesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	favorites, err := h.Collections.ListFavorites(c.Context(), spaceID, currentUser.ID)
	if err != nil {
		return respondServiceError(c, err, "failed listing favorites")
	}
	return utils.Success(c, fiber.StatusOK, favorites)
}
