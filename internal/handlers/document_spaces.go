package handlers

import (
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DocumentSpacesHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Tree   *services.TreeService
	Audit  *services.AuditService
}

func NewDocumentSpacesHandler(db *gorm.DB, access *services.AccessService, tree *services.TreeService, audit *services.AuditService) *DocumentSpacesHandler {
	return &DocumentSpacesHandler{DB: db, Access: access, Tree: tree, Audit: audit}
}

type createSpaceRequest struct {
	Name string `json:"name"`
}

func (h *DocumentSpacesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createSpaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	space := models.DocumentSpace{Name: name}
	space.CreatedBy = currentUser.Email
	space.LastModifiedBy = currentUser.Email

	if err := h.DB.Create(&space).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return utils.Error(c, fiber.StatusConflict, "a document space with that name already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document space")
	}

	// The creator gets every privilege on the new space.
	if err := h.Access.Grant(c.Context(), space.ID, currentUser.ID, true, true, true, currentUser.Email); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed granting creator access")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "space.create",
		ResourceType: "document_space",
		ResourceID:   &space.ID,
		Details:      map[string]interface{}{"name": name},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, space)
}

func (h *DocumentSpacesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	ids, err := h.Access.ReadableSpaceIDs(c.Context(), currentUser)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing document spaces")
	}
	if len(ids) == 0 {
		return utils.Success(c, fiber.StatusOK, []models.DocumentSpace{})
	}

	var spaces []models.DocumentSpace
	if err := h.DB.Where("id IN ?", ids).Order("name ASC").Find(&spaces).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing document spaces")
	}
	return utils.Success(c, fiber.StatusOK, spaces)
}

func (h *DocumentSpacesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasMembershipAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "membership privilege required")
	}

	var space models.DocumentSpace
	if err := h.DB.First(&space, "id = ?", spaceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document space not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document space")
	}

	failures, err := h.Tree.PurgeSpace(c.Context(), spaceID)
	if err != nil {
		return respondServiceError(c, err, "failed purging document space contents")
	}
	if len(failures) > 0 {
		logger.WarnWithUser(currentUser.ID.String(), "space_delete_orphaned_objects", map[string]interface{}{
			"space_id": spaceID.String(),
			"orphaned": len(failures),
		})
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DocumentSpaceMember{}, "document_space_id = ?", spaceID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.DocumentSpaceUserCollection{}, "document_space_id = ?", spaceID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DocumentSpace{}, "id = ?", spaceID).Error
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document space")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "space.delete",
		ResourceType: "document_space",
		ResourceID:   &spaceID,
		Details:      map[string]interface{}{"name": space.Name},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

type grantMemberRequest struct {
	Email     string `json:"email"`
	CanRead   bool   `json:"canRead"`
	CanWrite  bool   `json:"canWrite"`
	CanManage bool   `json:"canManage"`
}

func (h *DocumentSpacesHandler) GrantMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasMembershipAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "membership privilege required")
	}

	var req grantMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var user models.DashboardUser
	if err := h.DB.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if err := h.Access.Grant(c.Context(), spaceID, user.ID, req.CanRead, req.CanWrite, req.CanManage, currentUser.Email); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed granting access")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DocumentSpacesHandler) RevokeMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if !h.Access.HasMembershipAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "membership privilege required")
	}

	if err := h.Access.Revoke(c.Context(), spaceID, userID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed revoking access")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
